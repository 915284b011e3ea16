package store

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/Mehdi-code-93/fitrun/internal/backend"
	"github.com/Mehdi-code-93/fitrun/internal/domain"
	"github.com/Mehdi-code-93/fitrun/internal/feed"
)

// Controller drives a Store through the collaborator boundary: authentication,
// initial load, CRUD, and the realtime change subscription lifecycle.
type Controller struct {
	store     *Store
	auth      backend.Auth
	profiles  backend.ProfileRepository
	goals     backend.GoalsRepository
	trainings backend.TrainingRepository
	changes   backend.ChangeFeed
	logger    *log.Logger

	mu          sync.Mutex
	epoch       int
	token       string
	unbindFeed  func()
	unwatchAuth func()
}

// ControllerConfig wires the collaborators a Controller depends on.
type ControllerConfig struct {
	Store     *Store
	Auth      backend.Auth
	Profiles  backend.ProfileRepository
	Goals     backend.GoalsRepository
	Trainings backend.TrainingRepository
	Changes   backend.ChangeFeed
	Logger    *log.Logger
}

// NewController constructs a Controller. The controller watches auth
// transitions until Close is called.
func NewController(cfg ControllerConfig) *Controller {
	c := &Controller{
		store:     cfg.Store,
		auth:      cfg.Auth,
		profiles:  cfg.Profiles,
		goals:     cfg.Goals,
		trainings: cfg.Trainings,
		changes:   cfg.Changes,
		logger:    cfg.Logger,
	}
	if c.logger == nil {
		c.logger = log.New(log.Writer(), "[session] ", log.LstdFlags)
	}
	c.unwatchAuth = c.auth.OnAuthChange(c.handleAuthChange)
	return c
}

// Store exposes the underlying observable store.
func (c *Controller) Store() *Store {
	return c.store
}

// Restore resolves a previously issued token and, when a session is active,
// loads the user's data and binds the change feed.
func (c *Controller) Restore(ctx context.Context, token string) error {
	session, err := c.auth.CurrentSession(ctx, token)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	c.store.SetSession(session)
	if session == nil {
		return nil
	}

	c.mu.Lock()
	c.token = token
	epoch := c.epoch
	c.mu.Unlock()

	applied, err := c.loadAll(ctx, session.UserID, epoch)
	if err != nil {
		return err
	}
	if applied {
		c.bindFeed(session.UserID)
	}
	return nil
}

// SignUp registers an account, signs in, and seeds the default profile and
// goals before the initial load.
func (c *Controller) SignUp(ctx context.Context, email, password string) error {
	if _, err := c.auth.SignUp(ctx, email, password); err != nil {
		return err
	}
	session, err := c.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if err := c.profiles.UpsertProfile(ctx, session.UserID, domain.DefaultUserParams()); err != nil {
		return fmt.Errorf("seed profile: %w", err)
	}
	if err := c.goals.UpsertGoals(ctx, session.UserID, domain.DefaultGoals()); err != nil {
		return fmt.Errorf("seed goals: %w", err)
	}

	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()
	_, err = c.loadAll(ctx, session.UserID, epoch)
	return err
}

// Login exchanges credentials for a session, loads the user's data, and binds
// the change feed.
func (c *Controller) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	session, token, err := c.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.epoch++
	epoch := c.epoch
	c.token = token
	c.mu.Unlock()

	c.store.SetSession(session)
	applied, err := c.loadAll(ctx, session.UserID, epoch)
	if err != nil {
		return nil, err
	}
	if applied {
		c.bindFeed(session.UserID)
	}
	return session, nil
}

// Logout tears down the change subscription, resets the store to its defaults,
// and revokes the token. Local teardown happens unconditionally so a failed
// revocation cannot leave a live subscription or a stale session behind.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	token := c.token
	c.token = ""
	c.epoch++
	unbind := c.unbindFeed
	c.unbindFeed = nil
	c.mu.Unlock()

	if unbind != nil {
		unbind()
	}
	c.store.SetSession(nil)
	c.store.Reset()
	return c.auth.SignOut(ctx, token)
}

// AddTraining persists a new record for the current user. The collection is
// updated by the resulting change event, not by a local insert.
func (c *Controller) AddTraining(ctx context.Context, fields domain.TrainingFields) error {
	session := c.store.Session()
	if session == nil {
		return domain.ErrNoSession
	}
	if err := fields.Validate(); err != nil {
		return err
	}
	_, err := c.trainings.InsertTraining(ctx, session.UserID, fields)
	return err
}

// UpdateTraining replaces the mutable fields of an existing record. The id
// must belong to the current user's collection.
func (c *Controller) UpdateTraining(ctx context.Context, id string, fields domain.TrainingFields) error {
	if c.store.Session() == nil {
		return domain.ErrNoSession
	}
	if err := fields.Validate(); err != nil {
		return err
	}
	if !c.ownsTraining(id) {
		return domain.ErrTrainingNotFound
	}
	_, err := c.trainings.UpdateTraining(ctx, id, fields)
	return err
}

// DeleteTraining removes a record. The id must belong to the current user's
// collection.
func (c *Controller) DeleteTraining(ctx context.Context, id string) error {
	if c.store.Session() == nil {
		return domain.ErrNoSession
	}
	if !c.ownsTraining(id) {
		return domain.ErrTrainingNotFound
	}
	return c.trainings.DeleteTraining(ctx, id)
}

// ownsTraining reports whether the id is present in the session's collection.
func (c *Controller) ownsTraining(id string) bool {
	for _, r := range c.store.Trainings() {
		if r.ID == id {
			return true
		}
	}
	return false
}

// SaveUserParams applies the parameters locally first, then persists them.
// The local update and its notify are never rolled back; a persistence failure
// is reported through the returned error.
func (c *Controller) SaveUserParams(ctx context.Context, params domain.UserParams) error {
	c.store.SetUserParams(params)
	session := c.store.Session()
	if session == nil {
		return nil
	}
	if err := c.profiles.UpsertProfile(ctx, session.UserID, params); err != nil {
		return fmt.Errorf("persist profile: %w", err)
	}
	return nil
}

// SaveGoals applies the targets locally first, then persists them, with the
// same optimistic policy as SaveUserParams.
func (c *Controller) SaveGoals(ctx context.Context, goals domain.Goals) error {
	c.store.SetGoals(goals)
	session := c.store.Session()
	if session == nil {
		return nil
	}
	if err := c.goals.UpsertGoals(ctx, session.UserID, goals); err != nil {
		return fmt.Errorf("persist goals: %w", err)
	}
	return nil
}

// UserTrainings returns the current user's records, or nil when signed out.
func (c *Controller) UserTrainings() []domain.TrainingRecord {
	if c.store.Session() == nil {
		return nil
	}
	return c.store.Trainings()
}

// Close stops watching auth transitions and tears down the change subscription.
func (c *Controller) Close() {
	c.mu.Lock()
	unbind := c.unbindFeed
	c.unbindFeed = nil
	unwatch := c.unwatchAuth
	c.unwatchAuth = nil
	c.mu.Unlock()

	if unbind != nil {
		unbind()
	}
	if unwatch != nil {
		unwatch()
	}
}

// loadAll fetches profile, goals, and trainings, then applies them only if no
// newer session transition happened while the calls were in flight. It reports
// whether the results were applied so callers can skip binding the feed after
// a stale load.
func (c *Controller) loadAll(ctx context.Context, userID string, epoch int) (bool, error) {
	params, err := c.profiles.GetProfile(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load profile: %w", err)
	}
	goals, err := c.goals.GetGoals(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load goals: %w", err)
	}
	records, err := c.trainings.ListTrainings(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load trainings: %w", err)
	}

	c.mu.Lock()
	stale := epoch != c.epoch
	c.mu.Unlock()
	if stale {
		c.logger.Printf("discarding stale load for user %s", userID)
		return false, nil
	}

	if params != nil {
		c.store.SetUserParams(*params)
	} else {
		c.store.SetUserParams(domain.DefaultUserParams())
	}
	if goals != nil {
		c.store.SetGoals(*goals)
	} else {
		c.store.SetGoals(domain.DefaultGoals())
	}
	c.store.SetTrainings(records)
	return true, nil
}

// bindFeed subscribes the store to the user's change events, tearing down any
// prior subscription first so rebinding never yields duplicate delivery.
func (c *Controller) bindFeed(userID string) {
	c.mu.Lock()
	prior := c.unbindFeed
	c.mu.Unlock()
	if prior != nil {
		prior()
	}

	unbind := c.changes.SubscribeTrainings(userID, func(ev feed.ChangeEvent) {
		c.store.ApplyChange(ev)
	})

	c.mu.Lock()
	c.unbindFeed = unbind
	c.mu.Unlock()
}

// handleAuthChange mirrors external auth transitions into the store.
func (c *Controller) handleAuthChange(session *domain.Session) {
	if session == nil {
		c.mu.Lock()
		c.epoch++
		unbind := c.unbindFeed
		c.unbindFeed = nil
		c.mu.Unlock()
		if unbind != nil {
			unbind()
		}
		c.store.SetSession(nil)
		c.store.Reset()
		return
	}

	c.mu.Lock()
	c.epoch++
	epoch := c.epoch
	c.mu.Unlock()

	c.store.SetSession(session)
	applied, err := c.loadAll(context.Background(), session.UserID, epoch)
	if err != nil {
		c.logger.Printf("load after auth change failed: %v", err)
		return
	}
	if applied {
		c.bindFeed(session.UserID)
	}
}
