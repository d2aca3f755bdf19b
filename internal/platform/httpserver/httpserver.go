// Package httpserver builds the *http.Server the prms binary listens on.
package httpserver

import (
	"net/http"
	"time"
)

// Option adjusts the server before it is returned.
type Option func(*http.Server)

// WithTimeouts overrides the body read and response write limits. QR
// rendering at the largest size is the slowest response, well under the
// default write limit.
func WithTimeouts(read, write time.Duration) Option {
	return func(s *http.Server) {
		if read > 0 {
			s.ReadTimeout = read
		}
		if write > 0 {
			s.WriteTimeout = write
		}
	}
}

// New returns a server for handler on addr. Header reads are bounded
// separately so a slow client cannot hold a connection open indefinitely.
func New(addr string, handler http.Handler, opts ...Option) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    64 << 10,
	}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}
