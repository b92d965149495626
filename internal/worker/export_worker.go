package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"minitracker/internal/amqp"
	"minitracker/internal/api"
	"minitracker/internal/core"
	"minitracker/internal/log"
	"minitracker/internal/services"
	"minitracker/internal/sheets"
)

var (
	ErrAlreadyRunning = errors.New("export worker is already running")
	ErrNotUserSession = errors.New("export session must belong to a regular user")
)

// DashboardLoader is satisfied by *services.DashboardService.
type DashboardLoader interface {
	Load(ctx context.Context, sess *core.Session) (services.Dashboard, error)
}

// Invalidator drops cached API listings for a user.
type Invalidator interface {
	Invalidate(userID int64)
}

// ExportWorker keeps a spreadsheet copy of one user's dashboard current. It
// reacts to EntryChanged events and also exports on a fixed interval in case
// events were missed.
type ExportWorker struct {
	loader      DashboardLoader
	writer      sheets.DashboardWriter
	invalidator Invalidator
	sess        *core.Session
	interval    time.Duration
	logger      *log.Logger
	now         func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewExportWorker wires the worker. invalidator may be nil.
func NewExportWorker(loader DashboardLoader, writer sheets.DashboardWriter, invalidator Invalidator,
	sess *core.Session, interval time.Duration, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.New(log.Config{Component: log.ComponentWorker})
	}
	return &ExportWorker{
		loader:      loader,
		writer:      writer,
		invalidator: invalidator,
		sess:        sess,
		interval:    interval,
		logger:      logger.WithComponent(log.ComponentWorker),
		now:         time.Now,
	}
}

// HandleEntryChanged exports when the event concerns the configured user and
// acknowledges everything else. An expired token is logged and acknowledged
// since redelivery cannot fix it.
func (w *ExportWorker) HandleEntryChanged(ctx context.Context, msg *amqp.EntryChanged) error {
	ctx = log.IntoContext(ctx, w.logger)
	if msg.OwnerID != w.sess.UserID {
		w.logger.DebugContext(ctx, "Skipping event for another user",
			log.FieldUserID, msg.OwnerID, log.FieldEntryKind, msg.Kind)
		return nil
	}
	if w.invalidator != nil {
		w.invalidator.Invalidate(msg.OwnerID)
	}

	err := w.Export(ctx)
	if errors.Is(err, api.ErrSessionExpired) || errors.Is(err, ErrNotUserSession) {
		log.LogError(ctx, "Export token rejected, dropping event", err, log.ComponentWorker, log.OpExport,
			log.NewFields().WithUser(w.sess.UserID, w.sess.Role.String()))
		return nil
	}
	return err
}

// Export loads the dashboard and writes it out.
func (w *ExportWorker) Export(ctx context.Context) error {
	d, err := w.loader.Load(ctx, w.sess)
	if err != nil {
		return fmt.Errorf("load dashboard: %w", err)
	}

	var result core.AggregateResult
	err = services.MatchDashboard(d,
		func(u services.UserDashboard) error { result = u.Result; return nil },
		func(services.AdminDashboard) error { return ErrNotUserSession },
	)
	if err != nil {
		return err
	}

	snap := sheets.Snapshot{OwnerID: w.sess.UserID, GeneratedAt: w.now(), Result: result}
	if err := w.writer.WriteDashboard(ctx, snap); err != nil {
		return fmt.Errorf("write dashboard: %w", err)
	}

	w.logger.InfoContext(ctx, "Dashboard export completed",
		log.FieldOperation, log.OpExport,
		log.FieldUserID, w.sess.UserID,
		log.FieldCount, len(result.MonthlySeries))
	return nil
}

// Start runs an export immediately and then every interval until Stop or
// ctx cancellation.
func (w *ExportWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ErrAlreadyRunning
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.runLoop(log.IntoContext(ctx, w.logger))

	w.logger.InfoContext(ctx, "Periodic export started", "interval", w.interval)
	return nil
}

// Stop signals the loop and waits for it, bounded by ctx.
func (w *ExportWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	w.mu.Unlock()

	select {
	case <-done:
		w.logger.InfoContext(ctx, "Periodic export stopped")
		return nil
	case <-ctx.Done():
		w.logger.WarnContext(ctx, "Periodic export stop timed out")
		return ctx.Err()
	}
}

func (w *ExportWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *ExportWorker) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.exportLogged(ctx)
	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.exportLogged(ctx)
		}
	}
}

func (w *ExportWorker) exportLogged(ctx context.Context) {
	if w.invalidator != nil {
		w.invalidator.Invalidate(w.sess.UserID)
	}
	if err := w.Export(ctx); err != nil && ctx.Err() == nil {
		log.LogError(ctx, "Periodic export failed", err, log.ComponentWorker, log.OpExport, nil)
	}
}
