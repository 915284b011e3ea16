// Package accounts implements the authentication collaborator: credential
// storage with bcrypt hashes, signed session tokens, and auth-change watchers.
package accounts

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Mehdi-code-93/fitrun/internal/auth"
	"github.com/Mehdi-code-93/fitrun/internal/domain"
)

// Sentinel errors live in the domain package so interface consumers can match
// them without importing this implementation.
var (
	ErrEmailTaken         = domain.ErrEmailTaken
	ErrInvalidEmail       = domain.ErrInvalidEmail
	ErrPasswordTooShort   = domain.ErrPasswordTooShort
	ErrInvalidCredentials = domain.ErrInvalidCredentials
)

type account struct {
	id           string
	email        string
	passwordHash []byte
}

// Service holds registered accounts and issued-token state.
type Service struct {
	cfg auth.Config

	mu       sync.Mutex
	byEmail  map[string]*account
	byID     map[string]*account
	revoked  map[string]struct{}
	watchers map[int]func(*domain.Session)
	nextID   int
}

// NewService constructs an empty account service.
func NewService(cfg auth.Config) *Service {
	return &Service{
		cfg:      cfg,
		byEmail:  make(map[string]*account),
		byID:     make(map[string]*account),
		revoked:  make(map[string]struct{}),
		watchers: make(map[int]func(*domain.Session)),
	}
}

// SignUp implements backend.Auth. The session is returned without a token;
// callers sign in to obtain one.
func (s *Service) SignUp(ctx context.Context, email, password string) (*domain.Session, error) {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}
	if len(password) < 8 {
		return nil, ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[email]; exists {
		return nil, ErrEmailTaken
	}

	acc := &account{
		id:           uuid.NewString(),
		email:        email,
		passwordHash: hash,
	}
	s.byEmail[email] = acc
	s.byID[acc.id] = acc

	return &domain.Session{UserID: acc.id, Email: acc.email}, nil
}

// SignIn implements backend.Auth. Watchers observe the new session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*domain.Session, string, error) {
	email = normalizeEmail(email)

	s.mu.Lock()
	acc, ok := s.byEmail[email]
	s.mu.Unlock()
	if !ok {
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := auth.Sign(acc.id, acc.email, s.cfg)
	if err != nil {
		return nil, "", err
	}

	session := &domain.Session{UserID: acc.id, Email: acc.email}
	s.fireWatchers(session)
	return session, token, nil
}

// SignOut implements backend.Auth. Revokes the token and notifies watchers.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if token != "" {
		s.mu.Lock()
		s.revoked[token] = struct{}{}
		s.mu.Unlock()
	}
	s.fireWatchers(nil)
	return nil
}

// CurrentSession implements backend.Auth. A nil session with a nil error
// means no session is active.
func (s *Service) CurrentSession(ctx context.Context, token string) (*domain.Session, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}

	s.mu.Lock()
	_, revoked := s.revoked[token]
	s.mu.Unlock()
	if revoked {
		return nil, nil
	}

	claims, err := auth.Parse(token, s.cfg)
	if err != nil {
		return nil, nil
	}

	s.mu.Lock()
	acc, ok := s.byID[claims.UserID]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return &domain.Session{UserID: acc.id, Email: acc.email}, nil
}

// OnAuthChange implements backend.Auth.
func (s *Service) OnAuthChange(fn func(*domain.Session)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.watchers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers, id)
	}
}

func (s *Service) fireWatchers(session *domain.Session) {
	s.mu.Lock()
	snapshot := make([]func(*domain.Session), 0, len(s.watchers))
	for _, fn := range s.watchers {
		snapshot = append(snapshot, fn)
	}
	s.mu.Unlock()

	for _, fn := range snapshot {
		fn(session)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1 && !strings.Contains(email, " ")
}
