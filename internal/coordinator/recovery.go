package coordinator

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"
)

// recoveryMiddleware intercepts panics from downstream handlers, logs
// details, and returns a generic HTTP 500 (§7, "no error reaches the HTTP
// client other than a generic 500 for coordinator-level failures").
// Adapted from the teacher's internal/api/recovery.Middleware.
func recoveryMiddleware(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error().
						Interface("panic", rec).
						Str("method", r.Method).
						Str("url", r.URL.String()).
						Bytes("stack", debug.Stack()).
						Msg("panic recovered")
					writeError(w, http.StatusInternalServerError, "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
