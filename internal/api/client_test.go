package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"minitracker/internal/core"
	"minitracker/internal/log"
)

func newTestClient(t *testing.T, h http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, 5*time.Second, opts...)
	require.NoError(t, err)
	return c
}

func userSession() *core.Session {
	return &core.Session{ID: "s", Token: "tok", UserID: 7, Role: core.UserRole{}}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewClientRejectsRelativeURL(t *testing.T) {
	_, err := NewClient("/api", time.Second)
	require.Error(t, err)
}

func TestLogin_ExplicitFields(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/login", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "a@b.it", body["email"])
		writeJSON(w, http.StatusOK, map[string]any{"token": "abc", "userId": 12, "role": "ADMIN"})
	}))

	sess, err := c.Login(context.Background(), " a@b.it ", "secret123")
	require.NoError(t, err)
	require.Equal(t, "abc", sess.Token)
	require.Equal(t, int64(12), sess.UserID)
	require.Equal(t, core.AdminRole{}, sess.Role)
}

func TestLogin_ClaimsFromToken(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "33",
		"roles": []string{"ROLE_USER"},
	}).SignedString([]byte("server-secret"))
	require.NoError(t, err)

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"token": token})
	}))

	sess, err := c.Login(context.Background(), "a@b.it", "secret123")
	require.NoError(t, err)
	require.Equal(t, int64(33), sess.UserID)
	require.Equal(t, core.UserRole{}, sess.Role)
}

func TestLogin_OpaqueTokenWithoutClaims(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"token": "opaque"})
	}))
	_, err := c.Login(context.Background(), "a@b.it", "secret123")
	require.ErrorIs(t, err, ErrMissingClaims)
}

func TestLogin_BadCredentials(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	_, err := c.Login(context.Background(), "a@b.it", "wrong")
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestRegister_FieldErrors(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": "Validation failed",
			"errors":  map[string]string{"username": "already taken", "email": "invalid"},
		})
	}))

	err := c.Register(context.Background(), core.Registration{Name: "A", Surname: "B", Username: "ab", Email: "a@b.it", Password: "password1"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.Equal(t, "email: invalid; username: already taken", apiErr.Message)
	require.Len(t, apiErr.FieldErrors, 2)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
		expired bool
	}{
		{"unauthorized", http.StatusUnauthorized, "", "", true},
		{"forbidden", http.StatusForbidden, `{"message":"nope"}`, "", true},
		{"server message", http.StatusInternalServerError, `{"message":"db down"}`, "db down", false},
		{"non json body", http.StatusBadGateway, "<html>oops</html>", "cannot load revenues", false},
		{"empty message", http.StatusNotFound, `{"message":"  "}`, "cannot load revenues", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			_, err := c.ListRevenues(context.Background(), userSession())
			if tt.expired {
				require.ErrorIs(t, err, ErrSessionExpired)
				return
			}
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			require.Equal(t, tt.status, apiErr.Status)
			require.Equal(t, tt.wantMsg, apiErr.Message)
		})
	}
}

func TestTransportErrorIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(url, time.Second)
	require.NoError(t, err)
	_, err = c.ListExpenses(context.Background(), userSession())
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot load expenses")
	require.False(t, errors.Is(err, ErrSessionExpired))
}

func TestListRevenues_RequestShapeAndDecimals(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/user/7/revenue", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.Equal(t, "1000", r.URL.Query().Get("size"))
		require.Equal(t, "date,asc", r.URL.Query().Get("sort"))
		_, _ = io.WriteString(w, `{"content":[{"revenueId":1,"date":"2024-01-05","amount":1000.10},{"revenueId":2,"date":"2024-02-01","amount":"0.20"}],"totalPages":1,"totalElements":2}`)
	}))

	revs, err := c.ListRevenues(context.Background(), userSession())
	require.NoError(t, err)
	require.Len(t, revs, 2)
	require.Equal(t, int64(1), revs[0].ID)
	require.True(t, revs[0].Amount.Equal(decimal.RequireFromString("1000.10")))
	require.True(t, revs[1].Amount.Equal(decimal.RequireFromString("0.2")))
}

func TestListRevenues_CacheIsPerToken(t *testing.T) {
	var lists int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&lists, 1)
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"content":[{"revenueId":1,"date":"2024-01-05","amount":10}],"totalPages":1}`)
	}), WithListCache(8, time.Minute))

	ctx := context.Background()
	good := &core.Session{ID: "a", Token: "good", UserID: 7, Role: core.UserRole{}}
	revoked := &core.Session{ID: "b", Token: "revoked", UserID: 7, Role: core.UserRole{}}

	revs, err := c.ListRevenues(ctx, good)
	require.NoError(t, err)
	require.Len(t, revs, 1)

	revs, err = c.ListRevenues(ctx, revoked)
	require.ErrorIs(t, err, ErrSessionExpired)
	require.Nil(t, revs)
	require.Equal(t, int32(2), atomic.LoadInt32(&lists), "a different token must reach the API")

	_, err = c.ListRevenues(ctx, good)
	require.NoError(t, err)
	require.Equal(t, int32(2), atomic.LoadInt32(&lists), "the original token is still cached")

	c.Invalidate(7)
	_, err = c.ListRevenues(ctx, good)
	require.NoError(t, err)
	require.Equal(t, int32(3), atomic.LoadInt32(&lists), "invalidation drops every token of the user")
}

func TestListExpenses_CachedSliceIsCopied(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"content":[{"expenseId":1,"date":"2024-01-05","amount":4,"type":"rent"}]}`)
	}), WithListCache(8, time.Minute))

	ctx := context.Background()
	first, err := c.ListExpenses(ctx, userSession())
	require.NoError(t, err)
	first[0].Type = "changed"

	second, err := c.ListExpenses(ctx, userSession())
	require.NoError(t, err)
	require.Equal(t, "rent", second[0].Type)
	second[0].Type = "changed again"

	third, err := c.ListExpenses(ctx, userSession())
	require.NoError(t, err)
	require.Equal(t, "rent", third[0].Type)
}

func TestListRevenues_WarnsWhenTruncated(t *testing.T) {
	var buf bytes.Buffer
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"content":[{"revenueId":1,"date":"2024-01-05","amount":10}],"totalPages":2,"totalElements":1500}`)
	}), WithLogger(log.New(log.Config{Output: &buf})))

	revs, err := c.ListRevenues(context.Background(), userSession())
	require.NoError(t, err)
	require.Len(t, revs, 1)
	require.Contains(t, buf.String(), "Ledger listing truncated to first page")
	require.Contains(t, buf.String(), "total_pages=2")
	require.Contains(t, buf.String(), "total_elements=1500")
}

func TestCreateExpense_PayloadAndInvalidation(t *testing.T) {
	var lists int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			atomic.AddInt32(&lists, 1)
			_, _ = io.WriteString(w, `{"content":[]}`)
		case http.MethodPost:
			raw, _ := io.ReadAll(r.Body)
			require.JSONEq(t, `{"date":"2024-03-02","amount":12.5,"type":"food"}`, string(raw))
			writeJSON(w, http.StatusCreated, map[string]any{"expenseId": 99, "date": "2024-03-02", "amount": 12.5, "type": "food"})
		case http.MethodDelete:
			require.Equal(t, "/user/7/expense/99", r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		}
	}), WithListCache(8, time.Minute))

	ctx := context.Background()
	sess := userSession()

	_, err := c.ListExpenses(ctx, sess)
	require.NoError(t, err)
	_, err = c.ListExpenses(ctx, sess)
	require.NoError(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&lists), "second list should be served from cache")

	created, err := c.CreateExpense(ctx, sess, core.Expense{Date: "2024-03-02", Amount: decimal.RequireFromString("12.50"), Type: "food"})
	require.NoError(t, err)
	require.Equal(t, int64(99), created.ID)

	_, err = c.ListExpenses(ctx, sess)
	require.NoError(t, err)
	require.Equal(t, int32(2), atomic.LoadInt32(&lists), "create must invalidate the cache")

	require.NoError(t, c.DeleteExpense(ctx, sess, 99))
	require.Len(t, c.Cleaners(), 2)
}

func TestCreateRevenue_EmptyCreatedBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	in := core.Revenue{Date: "2024-01-01", Amount: decimal.NewFromInt(5)}
	got, err := c.CreateRevenue(context.Background(), userSession(), in)
	require.NoError(t, err)
	require.Equal(t, in, got)
}

func TestFetchLedger_Concurrent(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/user/7/revenue":
			_, _ = io.WriteString(w, `{"content":[{"revenueId":1,"date":"2024-01-05","amount":10}]}`)
		case "/user/7/expense":
			_, _ = io.WriteString(w, `{"content":[{"expenseId":2,"date":"2024-01-06","amount":4,"type":"rent"}]}`)
		}
	}))
	revs, exps, err := c.FetchLedger(context.Background(), userSession())
	require.NoError(t, err)
	require.Len(t, revs, 1)
	require.Len(t, exps, 1)
	require.Equal(t, "rent", exps[0].Type)
}

func TestFetchLedger_FailureWins(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/user/7/expense" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"content":[]}`)
	}))
	_, _, err := c.FetchLedger(context.Background(), userSession())
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestUsersAndStats(t *testing.T) {
	admin := &core.Session{ID: "a", Token: "adm", UserID: 1, Role: core.AdminRole{}}
	var lockedPath string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/user":
			_, _ = io.WriteString(w, `{"content":[{"userId":2,"username":"bob","email":"b@x.it","locked":true,"role":"USER"},{"userId":3,"username":"eve","role":"weird"}]}`)
		case r.Method == http.MethodPatch:
			lockedPath = r.URL.Path
			w.WriteHeader(http.StatusOK)
		case r.URL.Path == "/user/stats/total":
			_, _ = io.WriteString(w, `{"totalUsers":10}`)
		case r.URL.Path == "/user/stats/locked":
			_, _ = io.WriteString(w, `{"totalLocked":3}`)
		case r.URL.Path == "/user/stats/global-economy":
			_, _ = io.WriteString(w, `{"globalRevenue":1500.5,"globalExpenses":300}`)
		case r.URL.Path == "/user/1":
			_, _ = io.WriteString(w, `{"userId":1,"name":"Ada","role":"ADMIN","avatarURL":"http://x/a.png"}`)
		}
	}))
	ctx := context.Background()

	users, err := c.ListUsers(ctx, admin)
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.True(t, users[0].Locked)
	require.Equal(t, core.UserRole{}, users[1].Role)

	require.NoError(t, c.SetLocked(ctx, admin, 2, true))
	require.Equal(t, "/user/2/lock", lockedPath)
	require.NoError(t, c.SetLocked(ctx, admin, 2, false))
	require.Equal(t, "/user/2/unlock", lockedPath)

	total, err := c.TotalUsers(ctx, admin)
	require.NoError(t, err)
	require.Equal(t, int64(10), total)
	locked, err := c.LockedUsers(ctx, admin)
	require.NoError(t, err)
	require.Equal(t, int64(3), locked)
	rev, exp, err := c.GlobalEconomy(ctx, admin)
	require.NoError(t, err)
	require.Equal(t, "1500.5", rev.String())
	require.Equal(t, "300", exp.String())

	profile, err := c.GetProfile(ctx, admin)
	require.NoError(t, err)
	require.Equal(t, "Ada", profile.Name)
	require.Equal(t, core.AdminRole{}, profile.Role)
}

func TestSessionFromToken(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": 5,
		"role":   "ROLE_ADMIN",
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	sess, err := SessionFromToken(" " + token + " ")
	require.NoError(t, err)
	require.Equal(t, int64(5), sess.UserID)
	require.Equal(t, core.AdminRole{}, sess.Role)
	require.Equal(t, token, sess.Token)

	_, err = SessionFromToken("")
	require.ErrorIs(t, err, ErrMissingClaims)
}
