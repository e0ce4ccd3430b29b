package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout cancels the request context after the given duration. Handlers
// observing ctx.Done() abort in-flight work; slow upstream calls fail
// with context.DeadlineExceeded.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
