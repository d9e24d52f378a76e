package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Logger returns a request logging middleware using zerolog. Server errors
// are logged at error level, everything else at info; preflights at debug.
func Logger(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				var ev *zerolog.Event
				switch {
				case ww.Status() >= http.StatusInternalServerError:
					ev = logger.Error()
				case r.Method == http.MethodOptions:
					ev = logger.Debug()
				default:
					ev = logger.Info()
				}

				ev.Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("room", r.URL.Query().Get("room")).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("latency", time.Since(start)).
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("remote_addr", r.RemoteAddr).
					Msg("request completed")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
