package http

import (
	"net/http"

	"minitracker/internal/core"
	"minitracker/internal/log"
)

// SessionCookie carries the stored session id, never the API token.
const SessionCookie = "minitracker_session"

type authedHandler func(w http.ResponseWriter, r *http.Request, sess *core.Session)

// authed resolves the session cookie and rejects the request with 401 when
// it is missing or unknown.
func (s *Server) authed(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(SessionCookie); err == nil {
			id = c.Value
		}
		sess, err := s.svc.Accounts.Lookup(r.Context(), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		ctx := log.IntoContext(r.Context(),
			log.FromContext(r.Context()).With(log.FieldUserID, sess.UserID, log.FieldRole, sess.Role.String()))
		next(w, r.WithContext(ctx), sess)
	}
}

func (s *Server) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
