package services

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"minitracker/internal/amqp"
	"minitracker/internal/core"
)

// fakeAPI implements every API port. Each *Err field, when set, is returned
// by the matching call.
type fakeAPI struct {
	mu sync.Mutex

	revenues []core.Revenue
	expenses []core.Expense
	users    []core.User
	profile  core.User
	session  *core.Session

	totalUsers, lockedUsers int64
	globalRev, globalExp    decimal.Decimal
	ledgerErr, statsErr     error
	createErr, deleteErr    error
	loginErr, profileErr    error
	calls                   []string
	lockedTarget            int64
	lockedValue             bool
}

func (f *fakeAPI) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeAPI) ListRevenues(context.Context, *core.Session) ([]core.Revenue, error) {
	f.record("ListRevenues")
	return f.revenues, f.ledgerErr
}

func (f *fakeAPI) CreateRevenue(_ context.Context, _ *core.Session, r core.Revenue) (core.Revenue, error) {
	f.record("CreateRevenue")
	if f.createErr != nil {
		return core.Revenue{}, f.createErr
	}
	r.ID = 100
	return r, nil
}

func (f *fakeAPI) DeleteRevenue(context.Context, *core.Session, int64) error {
	f.record("DeleteRevenue")
	return f.deleteErr
}

func (f *fakeAPI) ListExpenses(context.Context, *core.Session) ([]core.Expense, error) {
	f.record("ListExpenses")
	return f.expenses, f.ledgerErr
}

func (f *fakeAPI) CreateExpense(_ context.Context, _ *core.Session, e core.Expense) (core.Expense, error) {
	f.record("CreateExpense")
	if f.createErr != nil {
		return core.Expense{}, f.createErr
	}
	e.ID = 200
	return e, nil
}

func (f *fakeAPI) DeleteExpense(context.Context, *core.Session, int64) error {
	f.record("DeleteExpense")
	return f.deleteErr
}

func (f *fakeAPI) FetchLedger(context.Context, *core.Session) ([]core.Revenue, []core.Expense, error) {
	f.record("FetchLedger")
	if f.ledgerErr != nil {
		return nil, nil, f.ledgerErr
	}
	return f.revenues, f.expenses, nil
}

func (f *fakeAPI) TotalUsers(context.Context, *core.Session) (int64, error) {
	f.record("TotalUsers")
	return f.totalUsers, f.statsErr
}

func (f *fakeAPI) LockedUsers(context.Context, *core.Session) (int64, error) {
	f.record("LockedUsers")
	return f.lockedUsers, nil
}

func (f *fakeAPI) GlobalEconomy(context.Context, *core.Session) (decimal.Decimal, decimal.Decimal, error) {
	f.record("GlobalEconomy")
	return f.globalRev, f.globalExp, nil
}

func (f *fakeAPI) Login(context.Context, string, string) (*core.Session, error) {
	f.record("Login")
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	s := *f.session
	return &s, nil
}

func (f *fakeAPI) Register(context.Context, core.Registration) error {
	f.record("Register")
	return nil
}

func (f *fakeAPI) GetProfile(context.Context, *core.Session) (core.User, error) {
	f.record("GetProfile")
	return f.profile, f.profileErr
}

func (f *fakeAPI) UpdateProfile(_ context.Context, _ *core.Session, p core.ProfileUpdate) (core.User, error) {
	f.record("UpdateProfile")
	u := f.profile
	u.Name, u.Surname, u.Username, u.Email = p.Name, p.Surname, p.Username, p.Email
	return u, f.profileErr
}

func (f *fakeAPI) ListUsers(context.Context, *core.Session) ([]core.User, error) {
	f.record("ListUsers")
	return f.users, nil
}

func (f *fakeAPI) SetLocked(_ context.Context, _ *core.Session, userID int64, locked bool) error {
	f.record("SetLocked")
	f.lockedTarget, f.lockedValue = userID, locked
	return nil
}

func (f *fakeAPI) called(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == name {
			return true
		}
	}
	return false
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*amqp.EntryChanged
	err  error
}

func (p *fakePublisher) PublishEntryChanged(_ context.Context, msg *amqp.EntryChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func userSession(id string) *core.Session {
	return &core.Session{ID: id, Token: "tok", UserID: 7, Role: core.UserRole{}}
}

func adminSession(id string) *core.Session {
	return &core.Session{ID: id, Token: "tok", UserID: 1, Role: core.AdminRole{}}
}
