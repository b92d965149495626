package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"minitracker/internal/amqp"
	"minitracker/internal/api"
	"minitracker/internal/core"
	"minitracker/internal/log"
	"minitracker/internal/session"
)

// Ports for the remote API, satisfied by *api.Client.
type (
	LedgerAPI interface {
		ListRevenues(ctx context.Context, sess *core.Session) ([]core.Revenue, error)
		CreateRevenue(ctx context.Context, sess *core.Session, r core.Revenue) (core.Revenue, error)
		DeleteRevenue(ctx context.Context, sess *core.Session, id int64) error
		ListExpenses(ctx context.Context, sess *core.Session) ([]core.Expense, error)
		CreateExpense(ctx context.Context, sess *core.Session, e core.Expense) (core.Expense, error)
		DeleteExpense(ctx context.Context, sess *core.Session, id int64) error
	}

	StatsAPI interface {
		FetchLedger(ctx context.Context, sess *core.Session) ([]core.Revenue, []core.Expense, error)
		TotalUsers(ctx context.Context, sess *core.Session) (int64, error)
		LockedUsers(ctx context.Context, sess *core.Session) (int64, error)
		GlobalEconomy(ctx context.Context, sess *core.Session) (decimal.Decimal, decimal.Decimal, error)
	}

	AccountAPI interface {
		Login(ctx context.Context, email, password string) (*core.Session, error)
		Register(ctx context.Context, r core.Registration) error
		GetProfile(ctx context.Context, sess *core.Session) (core.User, error)
		UpdateProfile(ctx context.Context, sess *core.Session, p core.ProfileUpdate) (core.User, error)
		ListUsers(ctx context.Context, sess *core.Session) ([]core.User, error)
		SetLocked(ctx context.Context, sess *core.Session, userID int64, locked bool) error
	}

	// Publisher announces ledger mutations. Nil means events are disabled.
	Publisher interface {
		PublishEntryChanged(ctx context.Context, msg *amqp.EntryChanged) error
	}
)

var (
	_ LedgerAPI  = (*api.Client)(nil)
	_ StatsAPI   = (*api.Client)(nil)
	_ AccountAPI = (*api.Client)(nil)
	_ Publisher  = (*amqp.Client)(nil)
)

// forgetExpired drops a stored session once the API has rejected its token.
// It always returns err unchanged.
func forgetExpired(ctx context.Context, store session.Store, sess *core.Session, err error) error {
	if store == nil || sess == nil || sess.ID == "" || !errors.Is(err, api.ErrSessionExpired) {
		return err
	}
	if derr := store.Delete(ctx, sess.ID); derr != nil {
		log.LogError(ctx, "Failed to drop expired session", derr, log.ComponentSession, log.OpDelete, nil)
	} else {
		log.FromContext(ctx).InfoContext(ctx, "Expired session dropped",
			log.FieldSessionID, sess.ID, log.FieldUserID, sess.UserID)
	}
	return err
}
