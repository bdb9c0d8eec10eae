package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server for the lookup API. WriteTimeout is left unset:
// a resolve request may legitimately spend several lookup timeouts walking
// the cascade with retries.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
