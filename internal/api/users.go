package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"minitracker/internal/core"
)

type userDTO struct {
	UserID    int64  `json:"userId"`
	Name      string `json:"name"`
	Surname   string `json:"surname"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Locked    bool   `json:"locked"`
	AvatarURL string `json:"avatarURL"`
}

type profilePayload struct {
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// toCore maps the wire user. An unknown or missing role degrades to
// UserRole so that listing never fails on a single odd record.
func (d userDTO) toCore() core.User {
	role, err := core.ParseRole(d.Role)
	if err != nil {
		role = core.UserRole{}
	}
	return core.User{
		ID:        d.UserID,
		Name:      d.Name,
		Surname:   d.Surname,
		Username:  d.Username,
		Email:     d.Email,
		Role:      role,
		Locked:    d.Locked,
		AvatarURL: d.AvatarURL,
	}
}

func userPath(id int64) string {
	return "/user/" + strconv.FormatInt(id, 10)
}

// GetProfile returns the session owner's profile.
func (c *Client) GetProfile(ctx context.Context, sess *core.Session) (core.User, error) {
	var u userDTO
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     userPath(sess.UserID),
		sess:     sess,
		fallback: "cannot load profile",
	}, &u)
	if err != nil {
		return core.User{}, err
	}
	user := u.toCore()
	if user.ID == 0 {
		user.ID = sess.UserID
	}
	return user, nil
}

// UpdateProfile replaces the editable profile fields.
func (c *Client) UpdateProfile(ctx context.Context, sess *core.Session, p core.ProfileUpdate) (core.User, error) {
	var u userDTO
	err := c.do(ctx, request{
		method: http.MethodPut,
		path:   userPath(sess.UserID),
		body: profilePayload{
			Name:     strings.TrimSpace(p.Name),
			Surname:  strings.TrimSpace(p.Surname),
			Username: strings.TrimSpace(p.Username),
			Email:    strings.TrimSpace(p.Email),
		},
		sess:     sess,
		fallback: "cannot update profile",
	}, &u)
	if err != nil {
		return core.User{}, err
	}
	if u.UserID == 0 {
		return c.GetProfile(ctx, sess)
	}
	return u.toCore(), nil
}

// ListUsers returns every account. Admin only on the server side.
func (c *Client) ListUsers(ctx context.Context, sess *core.Session) ([]core.User, error) {
	var page Page[userDTO]
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/user",
		sess:     sess,
		fallback: "cannot load users",
	}, &page)
	if err != nil {
		return nil, err
	}
	out := make([]core.User, len(page.Content))
	for i, u := range page.Content {
		out[i] = u.toCore()
	}
	return out, nil
}

// SetLocked locks or unlocks an account.
func (c *Client) SetLocked(ctx context.Context, sess *core.Session, userID int64, locked bool) error {
	action, fallback := "unlock", "cannot unlock user"
	if locked {
		action, fallback = "lock", "cannot lock user"
	}
	return c.do(ctx, request{
		method:   http.MethodPatch,
		path:     userPath(userID) + "/" + action,
		sess:     sess,
		fallback: fallback,
	}, nil)
}

func (c *Client) TotalUsers(ctx context.Context, sess *core.Session) (int64, error) {
	var body struct {
		TotalUsers int64 `json:"totalUsers"`
	}
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/user/stats/total",
		sess:     sess,
		fallback: "cannot load user statistics",
	}, &body)
	return body.TotalUsers, err
}

func (c *Client) LockedUsers(ctx context.Context, sess *core.Session) (int64, error) {
	var body struct {
		TotalLocked int64 `json:"totalLocked"`
	}
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/user/stats/locked",
		sess:     sess,
		fallback: "cannot load locked user statistics",
	}, &body)
	return body.TotalLocked, err
}

// GlobalEconomy returns the platform-wide revenue and expense totals.
func (c *Client) GlobalEconomy(ctx context.Context, sess *core.Session) (revenue, expenses decimal.Decimal, err error) {
	var body struct {
		GlobalRevenue  decimal.Decimal `json:"globalRevenue"`
		GlobalExpenses decimal.Decimal `json:"globalExpenses"`
	}
	err = c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/user/stats/global-economy",
		sess:     sess,
		fallback: "cannot load global economy",
	}, &body)
	return body.GlobalRevenue, body.GlobalExpenses, err
}
