package http

import (
	"net/http"

	"minitracker/internal/core"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	sess, err := s.svc.Accounts.Login(r.Context(), req.Email, req.Password, false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.setSessionCookie(w, sess.ID)
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

// handleLogout always clears the cookie, even for unknown sessions.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		sess, err := s.svc.Accounts.Lookup(r.Context(), c.Value)
		if err == nil {
			if err := s.svc.Accounts.Logout(r.Context(), sess); err != nil {
				s.writeError(w, r, err)
				return
			}
		}
	}
	s.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	err := s.svc.Accounts.Register(r.Context(), core.Registration{
		Name:     sanitizeInput(req.Name),
		Surname:  sanitizeInput(req.Surname),
		Username: sanitizeInput(req.Username),
		Email:    sanitizeInput(req.Email),
		Password: req.Password,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request, sess *core.Session) {
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}
