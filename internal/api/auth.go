package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"minitracker/internal/core"
)

// ErrMissingClaims is returned when neither the login response nor the token
// identify the user and role.
var ErrMissingClaims = errors.New("login response lacks user id or role")

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token  string      `json:"token"`
	UserID json.Number `json:"userId"`
	Role   string      `json:"role"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a session. The returned session has no ID;
// the caller assigns one when storing it.
func (c *Client) Login(ctx context.Context, email, password string) (*core.Session, error) {
	var resp loginResponse
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/auth/login",
		body:     loginRequest{Email: strings.TrimSpace(email), Password: password},
		fallback: "login failed",
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, &APIError{Status: http.StatusOK, Message: "login failed: empty token"}
	}

	userID, role, err := sessionClaims(resp)
	if err != nil {
		return nil, err
	}
	return &core.Session{Token: resp.Token, UserID: userID, Role: role, CreatedAt: time.Now()}, nil
}

// Register creates a new account. It does not log the user in.
func (c *Client) Register(ctx context.Context, r core.Registration) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/register",
		body: registerRequest{
			Name:     strings.TrimSpace(r.Name),
			Surname:  strings.TrimSpace(r.Surname),
			Username: strings.TrimSpace(r.Username),
			Email:    strings.TrimSpace(r.Email),
			Password: r.Password,
		},
		fallback: "registration failed",
	}, nil)
}

// SessionFromToken builds a session from a bearer token alone, reading the
// user id and role from its claims. Used for service tokens handed to
// background workers.
func SessionFromToken(token string) (*core.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingClaims
	}
	userID, role, err := sessionClaims(loginResponse{Token: token})
	if err != nil {
		return nil, err
	}
	return &core.Session{Token: token, UserID: userID, Role: role, CreatedAt: time.Now()}, nil
}

// sessionClaims prefers the explicit response fields and falls back to the
// token payload. The signature is not checked here; the API does that on
// every request.
func sessionClaims(resp loginResponse) (int64, core.Role, error) {
	userID, _ := resp.UserID.Int64()
	roleName := resp.Role

	if userID <= 0 || roleName == "" {
		claims := jwt.MapClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(resp.Token, claims); err != nil {
			return 0, nil, fmt.Errorf("%w: %v", ErrMissingClaims, err)
		}
		if userID <= 0 {
			userID = claimUserID(claims)
		}
		if roleName == "" {
			roleName = claimRole(claims)
		}
	}

	if userID <= 0 || roleName == "" {
		return 0, nil, ErrMissingClaims
	}
	role, err := core.ParseRole(roleName)
	if err != nil {
		return 0, nil, err
	}
	return userID, role, nil
}

func claimUserID(claims jwt.MapClaims) int64 {
	for _, key := range []string{"userId", "user_id", "id", "sub"} {
		switch v := claims[key].(type) {
		case float64:
			if v > 0 {
				return int64(v)
			}
		case string:
			if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
				return id
			}
		}
	}
	return 0
}

func claimRole(claims jwt.MapClaims) string {
	if r, ok := claims["role"].(string); ok && r != "" {
		return r
	}
	for _, key := range []string{"roles", "authorities"} {
		if list, ok := claims[key].([]any); ok && len(list) > 0 {
			if r, ok := list[0].(string); ok {
				return r
			}
		}
	}
	return ""
}
