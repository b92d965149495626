package session

import (
	"errors"

	"github.com/google/uuid"

	"minitracker/internal/core"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrForbidden        = errors.New("forbidden: admin role required")
	ErrInvalidSession   = errors.New("invalid session")
)

// Require admits any valid session.
func Require(s *core.Session) error {
	if !s.Valid() {
		return ErrNotAuthenticated
	}
	return nil
}

// RequireAdmin admits only sessions holding the admin role.
func RequireAdmin(s *core.Session) error {
	if err := Require(s); err != nil {
		return err
	}
	return core.MatchRole(s.Role,
		func(core.UserRole) error { return ErrForbidden },
		func(core.AdminRole) error { return nil },
	)
}

// NewID returns a fresh random session id.
func NewID() string {
	return uuid.NewString()
}
