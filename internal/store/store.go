// Package store holds the observable session state: the current session, the
// user's trainings, physiological parameters, and weekly goals. Every mutation
// triggers one synchronous notify pass over the registered subscribers.
package store

import (
	"log"
	"sync"

	"github.com/Mehdi-code-93/fitrun/internal/domain"
	"github.com/Mehdi-code-93/fitrun/internal/feed"
	"github.com/Mehdi-code-93/fitrun/internal/observability"
)

type subscriber struct {
	id int
	fn func()
}

// Store is the single owner of the in-memory entity state. Construct instances
// with New; there is no package-level singleton.
type Store struct {
	mu          sync.Mutex
	session     *domain.Session
	trainings   []domain.TrainingRecord
	userParams  domain.UserParams
	goals       domain.Goals
	subscribers []subscriber
	nextID      int
	logger      *log.Logger
}

// Option configures optional behaviour for the Store.
type Option func(*Store)

// WithLogger overrides the logger used to report subscriber panics.
func WithLogger(logger *log.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New constructs a Store with default params and goals and no session.
func New(opts ...Option) *Store {
	s := &Store{
		userParams: domain.DefaultUserParams(),
		goals:      domain.DefaultGoals(),
		logger:     log.New(log.Writer(), "[store] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers a callback invoked with no arguments on every notify
// pass, in registration order. The returned closure deregisters the callback
// and is safe to call more than once. A subscriber added during a notify pass
// is not called within that pass.
func (s *Store) Subscribe(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subscribers = append(s.subscribers, subscriber{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subscribers {
			if sub.id == id {
				s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
				return
			}
		}
	}
}

// notify synchronously calls every subscriber registered at the start of the
// pass. A panicking subscriber is recovered and logged so it cannot starve the
// rest of the pass.
func (s *Store) notify(snapshot []subscriber) {
	observability.RecordNotification()
	for _, sub := range snapshot {
		s.invoke(sub)
	}
}

func (s *Store) invoke(sub subscriber) {
	defer func() {
		if r := recover(); r != nil {
			observability.RecordSubscriberPanic()
			s.logger.Printf("subscriber %d panicked: %v", sub.id, r)
		}
	}()
	sub.fn()
}

// snapshotLocked copies the subscriber list; callers must hold mu.
func (s *Store) snapshotLocked() []subscriber {
	snapshot := make([]subscriber, len(s.subscribers))
	copy(snapshot, s.subscribers)
	return snapshot
}

// Session returns the current session, or nil when signed out.
func (s *Store) Session() *domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	session := *s.session
	return &session
}

// SetSession replaces the session and notifies.
func (s *Store) SetSession(session *domain.Session) {
	s.mu.Lock()
	if session == nil {
		s.session = nil
	} else {
		copied := *session
		s.session = &copied
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snapshot)
}

// Trainings returns a copy of the current trainings collection, newest first.
func (s *Store) Trainings() []domain.TrainingRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.TrainingRecord, len(s.trainings))
	copy(out, s.trainings)
	return out
}

// SetTrainings replaces the trainings collection and notifies.
func (s *Store) SetTrainings(records []domain.TrainingRecord) {
	s.mu.Lock()
	s.trainings = records
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snapshot)
}

// UserParams returns the current physiological parameters.
func (s *Store) UserParams() domain.UserParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userParams
}

// SetUserParams replaces the parameters wholesale and notifies. Persistence is
// an explicit, separate concern composed by the caller.
func (s *Store) SetUserParams(params domain.UserParams) {
	s.mu.Lock()
	s.userParams = params
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snapshot)
}

// Goals returns the current weekly targets.
func (s *Store) Goals() domain.Goals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.goals
}

// SetGoals replaces the targets wholesale and notifies.
func (s *Store) SetGoals(goals domain.Goals) {
	s.mu.Lock()
	s.goals = goals
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snapshot)
}

// ApplyChange folds one change event into the trainings collection. Every
// recognized event ends in exactly one mutation and one notify pass, including
// updates whose id matched nothing. Unrecognized tags are counted and logged,
// never silently dropped.
func (s *Store) ApplyChange(ev feed.ChangeEvent) {
	s.mu.Lock()
	folded, ok := feed.Fold(s.trainings, ev)
	if !ok {
		s.mu.Unlock()
		observability.RecordUnknownChange()
		s.logger.Printf("dropping change event with unrecognized type %q", ev.Type)
		return
	}
	s.trainings = folded
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	observability.RecordFold(string(ev.Type))
	s.notify(snapshot)
}

// Reset restores trainings, params, and goals to their defaults. The session
// is managed separately by the controller.
func (s *Store) Reset() {
	s.mu.Lock()
	s.trainings = nil
	s.userParams = domain.DefaultUserParams()
	s.goals = domain.DefaultGoals()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snapshot)
}
