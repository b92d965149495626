package core

import (
	"errors"
	"testing"
)

func TestParseRole(t *testing.T) {
	cases := []struct {
		in    string
		admin bool
		ok    bool
	}{
		{"USER", false, true},
		{"admin", true, true},
		{"ROLE_ADMIN", true, true},
		{" user ", false, true},
		{"GUEST", false, false},
		{"", false, false},
	}
	for _, tc := range cases {
		r, err := ParseRole(tc.in)
		if !tc.ok {
			if !errors.Is(err, ErrUnknownRole) {
				t.Fatalf("%q expected ErrUnknownRole, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q unexpected error: %v", tc.in, err)
		}
		if IsAdmin(r) != tc.admin {
			t.Fatalf("%q admin=%v, want %v", tc.in, IsAdmin(r), tc.admin)
		}
	}
}

func TestMatchRoleDispatch(t *testing.T) {
	label := func(r Role) string {
		return MatchRole(r,
			func(UserRole) string { return "user" },
			func(AdminRole) string { return "admin" },
		)
	}
	if got := label(UserRole{}); got != "user" {
		t.Fatalf("got %q", got)
	}
	if got := label(AdminRole{}); got != "admin" {
		t.Fatalf("got %q", got)
	}
}

func TestSessionValid(t *testing.T) {
	var nilSess *Session
	if nilSess.Valid() {
		t.Fatalf("nil session must be invalid")
	}
	if (&Session{Token: "t", UserID: 1}).Valid() {
		t.Fatalf("session without role must be invalid")
	}
	if !(&Session{Token: "t", UserID: 1, Role: UserRole{}}).Valid() {
		t.Fatalf("expected valid session")
	}
}
