// Package httptransport builds the API's HTTP server.
package httptransport

import (
	"net/http"
	"time"
)

// ServerConfig carries the listen address and connection deadlines. A zero
// WriteTimeout disables the write deadline, which the long-lived event stream
// endpoint relies on.
type ServerConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// NewServer wraps the handler in an *http.Server configured from cfg. Header
// reads get their own deadline so idle stream connections cannot hold a slot
// during the handshake.
func NewServer(cfg ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}
