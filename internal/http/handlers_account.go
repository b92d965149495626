package http

import (
	"net/http"

	"minitracker/internal/core"
)

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request, sess *core.Session) {
	u, err := s.svc.Accounts.Profile(r.Context(), sess)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(u))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, sess *core.Session) {
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	u, err := s.svc.Accounts.UpdateProfile(r.Context(), sess, core.ProfileUpdate{
		Name:     sanitizeInput(req.Name),
		Surname:  sanitizeInput(req.Surname),
		Username: sanitizeInput(req.Username),
		Email:    sanitizeInput(req.Email),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(u))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request, sess *core.Session) {
	users, err := s.svc.Accounts.ListUsers(r.Context(), sess)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]userResponse, len(users))
	for i, u := range users {
		out[i] = newUserResponse(u)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSetLocked(locked bool) authedHandler {
	return func(w http.ResponseWriter, r *http.Request, sess *core.Session) {
		id, err := pathID(r)
		if err == nil {
			err = s.svc.Accounts.SetLocked(r.Context(), sess, id, locked)
		}
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
