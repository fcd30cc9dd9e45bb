package reqlog

import (
	"log/slog"
	"net/http"
	"time"

	"rolelink/internal/http-server/middleware/throttle"
	"rolelink/lib/sl"

	"github.com/go-chi/chi/v5/middleware"
)

// New logs every request once, after the response is written.
func New(log *slog.Logger, trustForwarded bool) func(next http.Handler) http.Handler {
	mod := sl.Module("middleware.reqlog")
	log.With(mod).Info("request log middleware initialized")

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			id := middleware.GetReqID(r.Context())
			logger := log.With(
				mod,
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				sl.Remote(throttle.ClientAddr(r, trustForwarded)),
				slog.String("request_id", id),
			)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			t1 := time.Now()
			defer func() {
				logger.With(
					slog.Int("status", ww.Status()),
					slog.Int("size", ww.BytesWritten()),
					slog.Float64("duration", time.Since(t1).Seconds()),
				).Info("incoming request")
			}()

			if id != "" {
				ww.Header().Set("X-Request-ID", id)
			}
			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}
