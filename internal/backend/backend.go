// Package backend declares the collaborator operations the session store
// consumes. Implementations live in backend/memory and backend/postgres.
package backend

import (
	"context"

	"github.com/Mehdi-code-93/fitrun/internal/domain"
	"github.com/Mehdi-code-93/fitrun/internal/feed"
)

// Auth covers authentication and session lifecycle.
type Auth interface {
	// CurrentSession resolves a previously issued token. A nil session with a
	// nil error means no session is active.
	CurrentSession(ctx context.Context, token string) (*domain.Session, error)
	// SignUp registers a new account. Rejects duplicate or invalid email and
	// too-short passwords.
	SignUp(ctx context.Context, email, password string) (*domain.Session, error)
	// SignIn exchanges credentials for a session and an opaque token.
	SignIn(ctx context.Context, email, password string) (*domain.Session, string, error)
	// SignOut revokes the token and fires auth-change watchers.
	SignOut(ctx context.Context, token string) error
	// OnAuthChange registers a watcher invoked on every auth transition with
	// the new session, or nil on sign-out. Returns an unsubscribe closure.
	OnAuthChange(fn func(*domain.Session)) func()
}

// ProfileRepository stores per-user physiological parameters.
type ProfileRepository interface {
	// GetProfile returns the stored params, or nil when the user has none.
	GetProfile(ctx context.Context, userID string) (*domain.UserParams, error)
	UpsertProfile(ctx context.Context, userID string, params domain.UserParams) error
}

// GoalsRepository stores per-user weekly targets.
type GoalsRepository interface {
	// GetGoals returns the stored goals, or nil when the user has none.
	GetGoals(ctx context.Context, userID string) (*domain.Goals, error)
	UpsertGoals(ctx context.Context, userID string, goals domain.Goals) error
}

// TrainingRepository stores training records.
type TrainingRepository interface {
	// ListTrainings returns the user's records ordered newest first.
	ListTrainings(ctx context.Context, userID string) ([]domain.TrainingRecord, error)
	// InsertTraining persists a new record and returns it with its assigned ID.
	InsertTraining(ctx context.Context, userID string, fields domain.TrainingFields) (*domain.TrainingRecord, error)
	// UpdateTraining replaces the mutable fields of an existing record and
	// returns the stored result. Returns domain.ErrTrainingNotFound when absent.
	UpdateTraining(ctx context.Context, id string, fields domain.TrainingFields) (*domain.TrainingRecord, error)
	// DeleteTraining removes a record. Returns domain.ErrTrainingNotFound when absent.
	DeleteTraining(ctx context.Context, id string) error
}

// ChangeFeed delivers asynchronous row-level change events scoped to one owner.
type ChangeFeed interface {
	// SubscribeTrainings registers a handler for the user's change events and
	// returns an idempotent unsubscribe closure.
	SubscribeTrainings(userID string, handler func(feed.ChangeEvent)) func()
}
