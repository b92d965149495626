package sheets

import (
	"context"
	"time"

	"minitracker/internal/core"
)

// Snapshot is one export of a user's dashboard.
type Snapshot struct {
	OwnerID     int64
	GeneratedAt time.Time
	Result      core.AggregateResult
}

// Ports for outbound adapters.
type (
	// DashboardWriter replaces the exported dashboard with s.
	DashboardWriter interface {
		WriteDashboard(ctx context.Context, s Snapshot) error
	}
)
