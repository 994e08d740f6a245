package session

import (
	"net/http"

	"github.com/user/tvitter-go/logging"
)

// Middleware reads the session cookie and, when it holds a valid token, adds the
// claims to the request context. Anonymous requests pass through unchanged.
// A cookie that fails verification is expired so the browser stops sending it.
func (m *Manager) Middleware(log logging.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(CookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := m.Parse(cookie.Value)
			if err != nil {
				log.Debug(r.Context(), "discarding invalid session cookie", "error", err)
				m.End(w)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(NewContextWithClaims(r.Context(), claims)))
		})
	}
}

// RequireSession redirects requests without a session to the landing page.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ClaimsFromContext(r.Context()); !ok {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
