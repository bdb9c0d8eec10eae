// Package requesttime pins one "now" per request so cache expiry and logs
// inside a request agree on the time.
package requesttime

import (
	"net/http"
	"time"

	"devicelink/pkg/requestcontext"
)

// Middleware stores the request start time in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
