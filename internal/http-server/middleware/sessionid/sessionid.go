package sessionid

import (
	"net/http"

	"rolelink/internal/config"
	"rolelink/lib/api/cont"

	"github.com/google/uuid"
)

// New ensures every browser carries a session cookie and puts its id into the context.
// Unknown or malformed ids are replaced.
func New(conf config.SessionConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			sid := ""
			if c, err := r.Cookie(conf.CookieName); err == nil {
				if id, err := uuid.Parse(c.Value); err == nil {
					sid = id.String()
				}
			}
			if sid == "" {
				sid = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     conf.CookieName,
					Value:    sid,
					Path:     "/",
					MaxAge:   int(conf.TTL.Seconds()),
					HttpOnly: true,
					Secure:   conf.Secure,
					// Strict would drop the cookie on the cross-site redirect to /callback.
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(cont.PutSessionID(r.Context(), sid)))
		}
		return http.HandlerFunc(fn)
	}
}
