package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/google/uuid"

	"lifeplan/internal/httputil"
)

// Recovery turns a panic anywhere below it into a 500 problem response.
// The response carries an incident id that also appears in the log line,
// alongside the request and the user resolved by the auth middleware.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, trace := httputil.WithTrace(r)

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				incident := uuid.NewString()
				logger.Error("panic recovered",
					"incident_id", incident,
					"error", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"user_id", trace.UserID,
					"stack", string(debug.Stack()),
				)

				httputil.RespondErrorWithExtras(w, http.StatusInternalServerError, "internal server error", map[string]interface{}{
					"incident_id": incident,
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
