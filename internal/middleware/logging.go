package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/kiwari-pos/tablepos/internal/logger"
)

// RequestLogger logs one line per request and attaches the request id to
// the context logger. It expects chi's RequestID middleware to run first.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()
			if id := chimw.GetReqID(ctx); id != "" {
				ctx = log.WithRequestID(ctx, id)
			}
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      status,
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
			}
			if claims := ClaimsFromContext(r.Context()); claims != nil {
				fields["user_id"] = claims.UserID.String()
			}
			entry := log.WithFields(ctx, fields)
			switch {
			case status >= http.StatusInternalServerError:
				log.Error(entry, "request failed", nil)
			case status >= http.StatusBadRequest:
				log.Warn(entry, "request rejected")
			default:
				log.Info(entry, "request completed")
			}
		})
	}
}
