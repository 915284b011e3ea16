package auth

import (
	"context"
	"net/http"
	"strings"
)

// Skipper allows callers to bypass authentication for specific requests.
type Skipper func(r *http.Request) bool

// SessionResolver reports whether a bearer token still maps to a live session.
// Signature checks alone cannot observe revocation; the resolver closes that gap.
type SessionResolver func(ctx context.Context, token string) (bool, error)

// Middleware provides HTTP middleware for bearer-token validation.
type Middleware struct {
	Config   Config
	Skipper  Skipper
	Sessions SessionResolver
}

// NewMiddleware constructs a middleware with optional skipper and session
// resolver.
func NewMiddleware(cfg Config, skipper Skipper, sessions SessionResolver) Middleware {
	return Middleware{Config: cfg, Skipper: skipper, Sessions: sessions}
}

// Wrap wraps an http.Handler with authentication. Tokens must carry a valid
// signature and, when a session resolver is configured, still map to a live
// session, so sign-out takes effect immediately rather than at TTL expiry.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Skipper != nil && m.Skipper(r) {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.parseRequest(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		if m.Sessions != nil {
			active, err := m.Sessions(r.Context(), Token(r))
			if err != nil {
				http.Error(w, "session lookup failed", http.StatusInternalServerError)
				return
			}
			if !active {
				http.Error(w, ErrSessionRevoked.Error(), http.StatusUnauthorized)
				return
			}
		}

		ctx := WithClaims(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Token extracts the raw bearer token from a request, or an empty string.
func Token(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[len("Bearer "):])
}

func (m Middleware) parseRequest(r *http.Request) (*Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, ErrMissingToken
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return nil, ErrInvalidToken
	}
	token := strings.TrimSpace(header[len("Bearer "):])
	return Parse(token, m.Config)
}
