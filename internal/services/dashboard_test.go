package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"minitracker/internal/api"
	"minitracker/internal/core"
	"minitracker/internal/session"
)

func TestDashboardLoadUser(t *testing.T) {
	fake := &fakeAPI{
		revenues: []core.Revenue{
			{ID: 1, Date: "2024-01-10", Amount: decimal.NewFromInt(1000)},
			{ID: 2, Date: "2024-02-05", Amount: decimal.NewFromInt(500)},
		},
		expenses: []core.Expense{
			{ID: 3, Date: "2024-01-15", Amount: decimal.NewFromInt(200), Type: "Food"},
		},
	}
	svc := NewDashboardService(fake, nil)

	d, err := svc.Load(context.Background(), userSession("s1"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	u, ok := d.(UserDashboard)
	if !ok {
		t.Fatalf("got %T, want UserDashboard", d)
	}
	if !u.Result.AvailableBalance.Equal(decimal.NewFromInt(1300)) {
		t.Errorf("balance = %s, want 1300", u.Result.AvailableBalance)
	}
	if len(u.Result.MonthlySeries) != 2 {
		t.Errorf("months = %d, want 2", len(u.Result.MonthlySeries))
	}
	if fake.called("TotalUsers") {
		t.Error("user dashboard must not call admin statistics")
	}
}

func TestDashboardLoadAdmin(t *testing.T) {
	fake := &fakeAPI{
		totalUsers:  42,
		lockedUsers: 3,
		globalRev:   decimal.RequireFromString("10000.50"),
		globalExp:   decimal.RequireFromString("2500.25"),
	}
	svc := NewDashboardService(fake, nil)

	d, err := svc.Load(context.Background(), adminSession("a1"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	a, ok := d.(AdminDashboard)
	if !ok {
		t.Fatalf("got %T, want AdminDashboard", d)
	}
	if a.Stats.TotalUsers != 42 || a.Stats.LockedUsers != 3 {
		t.Errorf("stats = %+v", a.Stats)
	}
	if !a.Stats.GlobalRevenue.Equal(decimal.RequireFromString("10000.5")) {
		t.Errorf("global revenue = %s", a.Stats.GlobalRevenue)
	}
	if fake.called("FetchLedger") {
		t.Error("admin dashboard must not fetch a ledger")
	}
}

func TestDashboardAdminStopsOnFirstFailure(t *testing.T) {
	fake := &fakeAPI{statsErr: errors.New("boom")}
	svc := NewDashboardService(fake, nil)

	if _, err := svc.Load(context.Background(), adminSession("a1")); err == nil {
		t.Fatal("expected error")
	}
	if fake.called("LockedUsers") || fake.called("GlobalEconomy") {
		t.Error("later statistics calls should be skipped")
	}
}

func TestDashboardRequiresSession(t *testing.T) {
	svc := NewDashboardService(&fakeAPI{}, nil)
	_, err := svc.Load(context.Background(), nil)
	if !errors.Is(err, session.ErrNotAuthenticated) {
		t.Fatalf("err = %v, want ErrNotAuthenticated", err)
	}
}

func TestDashboardExpiredSessionIsDropped(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	sess := userSession("s1")
	if err := store.Save(ctx, sess); err != nil {
		t.Fatal(err)
	}

	fake := &fakeAPI{ledgerErr: api.ErrSessionExpired}
	svc := NewDashboardService(fake, store)

	_, err := svc.Load(ctx, sess)
	if !errors.Is(err, api.ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if _, err := store.Get(ctx, "s1"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("session should be deleted, got %v", err)
	}
}

func TestDashboardMalformedRecord(t *testing.T) {
	fake := &fakeAPI{revenues: []core.Revenue{{ID: 1, Date: "2024", Amount: decimal.NewFromInt(1)}}}
	svc := NewDashboardService(fake, nil)

	_, err := svc.Load(context.Background(), userSession("s1"))
	if !errors.Is(err, core.ErrMalformedRecord) {
		t.Fatalf("err = %v, want ErrMalformedRecord", err)
	}
}

func TestMatchDashboard(t *testing.T) {
	name := func(d Dashboard) string {
		return MatchDashboard(d,
			func(UserDashboard) string { return "user" },
			func(AdminDashboard) string { return "admin" },
		)
	}
	if got := name(UserDashboard{}); got != "user" {
		t.Errorf("got %q", got)
	}
	if got := name(AdminDashboard{}); got != "admin" {
		t.Errorf("got %q", got)
	}
}
