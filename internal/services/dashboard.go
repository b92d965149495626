package services

import (
	"context"
	"fmt"
	"time"

	"minitracker/internal/core"
	"minitracker/internal/log"
	"minitracker/internal/session"
)

// Dashboard is what the landing page shows: a closed variant with one case
// per role.
type Dashboard interface {
	isDashboard()
}

type (
	UserDashboard struct {
		Result core.AggregateResult
	}

	AdminDashboard struct {
		Stats core.AdminStats
	}
)

func (UserDashboard) isDashboard()  {}
func (AdminDashboard) isDashboard() {}

// MatchDashboard dispatches on the dashboard variant.
func MatchDashboard[T any](d Dashboard, onUser func(UserDashboard) T, onAdmin func(AdminDashboard) T) T {
	switch v := d.(type) {
	case UserDashboard:
		return onUser(v)
	case AdminDashboard:
		return onAdmin(v)
	default:
		panic(fmt.Sprintf("services: unknown dashboard variant %T", d))
	}
}

type loader func(context.Context, *core.Session) (Dashboard, error)

type DashboardService struct {
	api   StatsAPI
	store session.Store
}

// NewDashboardService wires the dashboard loader. store may be nil, in which
// case expired sessions are not dropped.
func NewDashboardService(api StatsAPI, store session.Store) *DashboardService {
	return &DashboardService{api: api, store: store}
}

// Load builds the dashboard for the session's role.
func (s *DashboardService) Load(ctx context.Context, sess *core.Session) (Dashboard, error) {
	if err := session.Require(sess); err != nil {
		return nil, err
	}

	start := time.Now()
	load := core.MatchRole(sess.Role,
		func(core.UserRole) loader { return s.loadUser },
		func(core.AdminRole) loader { return s.loadAdmin },
	)
	d, err := load(ctx, sess)
	if err != nil {
		return nil, forgetExpired(ctx, s.store, sess, err)
	}

	log.FromContext(ctx).DebugContext(ctx, "Dashboard loaded",
		log.FieldOperation, log.OpAggregate,
		log.FieldUserID, sess.UserID,
		log.FieldRole, sess.Role.String(),
		log.FieldDuration, time.Since(start).Milliseconds())
	return d, nil
}

func (s *DashboardService) loadUser(ctx context.Context, sess *core.Session) (Dashboard, error) {
	revenues, expenses, err := s.api.FetchLedger(ctx, sess)
	if err != nil {
		return nil, err
	}
	result, err := core.Aggregate(core.RevenueRecords(revenues), core.ExpenseRecords(expenses))
	if err != nil {
		return nil, fmt.Errorf("aggregate ledger: %w", err)
	}
	return UserDashboard{Result: result}, nil
}

// loadAdmin issues the three statistics calls in order; the first failure
// aborts the rest.
func (s *DashboardService) loadAdmin(ctx context.Context, sess *core.Session) (Dashboard, error) {
	var stats core.AdminStats
	var err error

	if stats.TotalUsers, err = s.api.TotalUsers(ctx, sess); err != nil {
		return nil, err
	}
	if stats.LockedUsers, err = s.api.LockedUsers(ctx, sess); err != nil {
		return nil, err
	}
	if stats.GlobalRevenue, stats.GlobalExpenses, err = s.api.GlobalEconomy(ctx, sess); err != nil {
		return nil, err
	}
	return AdminDashboard{Stats: stats}, nil
}
