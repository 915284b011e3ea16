// Package memory provides in-process implementations of the collaborator
// boundary for local development and tests. Change events are delivered
// synchronously on every CRUD call.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/Mehdi-code-93/fitrun/internal/domain"
	"github.com/Mehdi-code-93/fitrun/internal/feed"
)

// Repository stores profiles, goals, and trainings in memory and emits change
// events through an embedded feed hub.
type Repository struct {
	mu        sync.RWMutex
	profiles  map[string]domain.UserParams
	goals     map[string]domain.Goals
	trainings map[string]domain.TrainingRecord
	hub       *feed.Hub
}

// NewRepository constructs an empty Repository.
func NewRepository() *Repository {
	return &Repository{
		profiles:  make(map[string]domain.UserParams),
		goals:     make(map[string]domain.Goals),
		trainings: make(map[string]domain.TrainingRecord),
		hub:       feed.NewHub(),
	}
}

// GetProfile implements backend.ProfileRepository.
func (r *Repository) GetProfile(ctx context.Context, userID string) (*domain.UserParams, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	params, ok := r.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &params, nil
}

// UpsertProfile implements backend.ProfileRepository.
func (r *Repository) UpsertProfile(ctx context.Context, userID string, params domain.UserParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[userID] = params
	return nil
}

// GetGoals implements backend.GoalsRepository.
func (r *Repository) GetGoals(ctx context.Context, userID string) (*domain.Goals, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	goals, ok := r.goals[userID]
	if !ok {
		return nil, nil
	}
	return &goals, nil
}

// UpsertGoals implements backend.GoalsRepository.
func (r *Repository) UpsertGoals(ctx context.Context, userID string, goals domain.Goals) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.goals[userID] = goals
	return nil
}

// ListTrainings implements backend.TrainingRepository, newest first.
func (r *Repository) ListTrainings(ctx context.Context, userID string) ([]domain.TrainingRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.TrainingRecord, 0)
	for _, rec := range r.trainings {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// InsertTraining implements backend.TrainingRepository and emits an insert event.
func (r *Repository) InsertTraining(ctx context.Context, userID string, fields domain.TrainingFields) (*domain.TrainingRecord, error) {
	rec := domain.TrainingRecord{
		ID:          uuid.NewString(),
		UserID:      userID,
		Category:    fields.Category,
		Type:        fields.Type,
		DurationMin: fields.DurationMin,
		Date:        domain.DateOnly(fields.Date),
		Note:        fields.Note,
	}

	r.mu.Lock()
	r.trainings[rec.ID] = rec
	r.mu.Unlock()

	emitted := rec
	r.hub.Publish(userID, feed.ChangeEvent{Type: feed.ChangeInsert, New: &emitted})
	return &rec, nil
}

// UpdateTraining implements backend.TrainingRepository and emits an update event.
func (r *Repository) UpdateTraining(ctx context.Context, id string, fields domain.TrainingFields) (*domain.TrainingRecord, error) {
	r.mu.Lock()
	rec, ok := r.trainings[id]
	if !ok {
		r.mu.Unlock()
		return nil, domain.ErrTrainingNotFound
	}
	rec.Category = fields.Category
	rec.Type = fields.Type
	rec.DurationMin = fields.DurationMin
	rec.Date = domain.DateOnly(fields.Date)
	rec.Note = fields.Note
	r.trainings[id] = rec
	r.mu.Unlock()

	emitted := rec
	r.hub.Publish(rec.UserID, feed.ChangeEvent{Type: feed.ChangeUpdate, New: &emitted})
	return &rec, nil
}

// DeleteTraining implements backend.TrainingRepository and emits a delete event.
func (r *Repository) DeleteTraining(ctx context.Context, id string) error {
	r.mu.Lock()
	rec, ok := r.trainings[id]
	if !ok {
		r.mu.Unlock()
		return domain.ErrTrainingNotFound
	}
	delete(r.trainings, id)
	r.mu.Unlock()

	emitted := rec
	r.hub.Publish(rec.UserID, feed.ChangeEvent{Type: feed.ChangeDelete, Old: &emitted})
	return nil
}

// SubscribeTrainings implements backend.ChangeFeed.
func (r *Repository) SubscribeTrainings(userID string, handler func(feed.ChangeEvent)) func() {
	return r.hub.Subscribe(userID, handler)
}

// SubscriberCount reports the number of live change subscriptions for userID.
func (r *Repository) SubscriberCount(userID string) int {
	return r.hub.SubscriberCount(userID)
}
