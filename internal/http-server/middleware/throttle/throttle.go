package throttle

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"rolelink/internal/ratelimit"
	"rolelink/lib/sl"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// New rejects clients that exceed the limiter with 429.
func New(log *slog.Logger, limiter ratelimit.Limiter, trustForwarded bool) func(next http.Handler) http.Handler {
	mod := sl.Module("middleware.throttle")
	log.With(mod, slog.Bool("trust_forwarded", trustForwarded)).Info("rate limit middleware initialized")

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			remote := ClientAddr(r, trustForwarded)
			if !limiter.Allow(remote) {
				log.With(
					mod,
					sl.Remote(remote),
					slog.String("path", r.URL.Path),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				).Warn("rate limit exceeded")
				render.Status(r, http.StatusTooManyRequests)
				render.PlainText(w, r, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}

// ClientAddr is the peer host. With trustForwarded it is the right-most
// X-Forwarded-For hop, the one appended by the proxy in front of us.
func ClientAddr(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			hops := strings.Split(xff, ",")
			if last := strings.TrimSpace(hops[len(hops)-1]); last != "" {
				return last
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
