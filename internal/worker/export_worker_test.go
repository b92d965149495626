package worker

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"minitracker/internal/amqp"
	"minitracker/internal/api"
	"minitracker/internal/core"
	"minitracker/internal/log"
	"minitracker/internal/services"
	"minitracker/internal/sheets/memory"
)

type stubLoader struct {
	mu    sync.Mutex
	d     services.Dashboard
	err   error
	loads int
}

func (s *stubLoader) Load(context.Context, *core.Session) (services.Dashboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	return s.d, s.err
}

func (s *stubLoader) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

type recordingInvalidator struct {
	mu  sync.Mutex
	ids []int64
}

func (r *recordingInvalidator) Invalidate(userID int64) {
	r.mu.Lock()
	r.ids = append(r.ids, userID)
	r.mu.Unlock()
}

func quietLogger() *log.Logger {
	return log.New(log.Config{Output: io.Discard})
}

func userDashboard() services.Dashboard {
	return services.UserDashboard{Result: core.AggregateResult{
		TotalRevenue:     decimal.NewFromInt(100),
		TotalExpense:     decimal.NewFromInt(40),
		AvailableBalance: decimal.NewFromInt(60),
		MonthlySeries:    []core.MonthlyBucket{{Month: "2024-01"}},
	}}
}

func newTestWorker(loader *stubLoader, inv Invalidator) (*ExportWorker, *memory.Store) {
	store := memory.New()
	sess := &core.Session{ID: "svc", Token: "tok", UserID: 7, Role: core.UserRole{}}
	w := NewExportWorker(loader, store, inv, sess, time.Hour, quietLogger())
	w.now = func() time.Time { return time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC) }
	return w, store
}

func TestExportWritesSnapshot(t *testing.T) {
	w, store := newTestWorker(&stubLoader{d: userDashboard()}, nil)

	if err := w.Export(context.Background()); err != nil {
		t.Fatalf("Export: %v", err)
	}
	snap, ok := store.Latest(7)
	if !ok {
		t.Fatal("no snapshot written")
	}
	if !snap.Result.AvailableBalance.Equal(decimal.NewFromInt(60)) {
		t.Errorf("balance = %s", snap.Result.AvailableBalance)
	}
	if !snap.GeneratedAt.Equal(time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("GeneratedAt = %v", snap.GeneratedAt)
	}
}

func TestExportRejectsAdminDashboard(t *testing.T) {
	w, store := newTestWorker(&stubLoader{d: services.AdminDashboard{}}, nil)

	if err := w.Export(context.Background()); !errors.Is(err, ErrNotUserSession) {
		t.Fatalf("err = %v, want ErrNotUserSession", err)
	}
	if store.Writes() != 0 {
		t.Error("admin dashboard must not be written")
	}
}

func TestHandleEntryChanged(t *testing.T) {
	tests := []struct {
		name        string
		loader      *stubLoader
		owner       int64
		wantErr     bool
		wantWrites  int
		wantInvalid int
	}{
		{name: "own event exports", loader: &stubLoader{d: userDashboard()}, owner: 7, wantWrites: 1, wantInvalid: 1},
		{name: "other owner skipped", loader: &stubLoader{d: userDashboard()}, owner: 8},
		{name: "expired token acknowledged", loader: &stubLoader{err: api.ErrSessionExpired}, owner: 7, wantInvalid: 1},
		{name: "admin session acknowledged", loader: &stubLoader{d: services.AdminDashboard{}}, owner: 7, wantInvalid: 1},
		{name: "transient failure requeued", loader: &stubLoader{err: errors.New("api down")}, owner: 7, wantErr: true, wantInvalid: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &recordingInvalidator{}
			w, store := newTestWorker(tt.loader, inv)

			msg := amqp.NewEntryChanged(tt.owner, amqp.KindExpense, amqp.ActionCreated, 3)
			err := w.HandleEntryChanged(context.Background(), msg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if store.Writes() != tt.wantWrites {
				t.Errorf("writes = %d, want %d", store.Writes(), tt.wantWrites)
			}
			if len(inv.ids) != tt.wantInvalid {
				t.Errorf("invalidations = %d, want %d", len(inv.ids), tt.wantInvalid)
			}
		})
	}
}

func TestExportWorkerLifecycle(t *testing.T) {
	loader := &stubLoader{d: userDashboard()}
	w, store := newTestWorker(loader, nil)
	ctx := context.Background()

	if w.IsRunning() {
		t.Fatal("worker should not be running initially")
	}
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := w.Start(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Start err = %v, want ErrAlreadyRunning", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for store.Writes() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if store.Writes() == 0 {
		t.Fatal("startup export did not run")
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := w.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if w.IsRunning() {
		t.Error("worker should be stopped")
	}
	if err := w.Stop(stopCtx); err != nil {
		t.Errorf("second Stop should be a no-op, got %v", err)
	}
	if loader.count() < 1 {
		t.Error("loader was never called")
	}
}
