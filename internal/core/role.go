package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Role is a closed set of account roles. The unexported marker keeps other
// packages from adding variants; use MatchRole to dispatch on it.
type Role interface {
	isRole()
	String() string
}

type (
	UserRole  struct{}
	AdminRole struct{}
)

func (UserRole) isRole()  {}
func (AdminRole) isRole() {}

func (UserRole) String() string  { return "USER" }
func (AdminRole) String() string { return "ADMIN" }

var ErrUnknownRole = errors.New("unknown role")

// ParseRole maps the wire representation of a role to its variant.
func ParseRole(s string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "USER", "ROLE_USER":
		return UserRole{}, nil
	case "ADMIN", "ROLE_ADMIN":
		return AdminRole{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// MatchRole calls exactly one of the handlers depending on the role variant.
// Both arms are mandatory, so adding a role breaks every call site at compile
// time rather than at runtime.
func MatchRole[T any](r Role, onUser func(UserRole) T, onAdmin func(AdminRole) T) T {
	switch v := r.(type) {
	case UserRole:
		return onUser(v)
	case AdminRole:
		return onAdmin(v)
	default:
		panic(fmt.Sprintf("core: unhandled role %T", r))
	}
}

// IsAdmin reports whether r is the administrator role.
func IsAdmin(r Role) bool {
	return MatchRole(r,
		func(UserRole) bool { return false },
		func(AdminRole) bool { return true },
	)
}

// Session is the authenticated identity passed to every collaborator that
// talks to the remote API.
type Session struct {
	ID        string
	Token     string
	UserID    int64
	Role      Role
	CreatedAt time.Time
}

// Valid reports whether the session carries everything an API call needs.
func (s *Session) Valid() bool {
	return s != nil && s.Token != "" && s.UserID > 0 && s.Role != nil
}
