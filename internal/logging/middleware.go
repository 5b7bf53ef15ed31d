package logging

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Middleware puts the logger of ctx into every request context, tagged with a request id.
func Middleware(ctx context.Context) func(http.Handler) http.Handler {
	base := FromContext(ctx)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := base.With("request_id", uuid.New().String(), "method", r.Method, "path", r.URL.Path)
			next.ServeHTTP(w, r.WithContext(WithLogger(r.Context(), logger)))
		})
	}
}
