// Package memory keeps exported dashboards in process memory. It backs the
// export worker when no spreadsheet is configured and serves as a test double.
package memory

import (
	"context"
	"sync"

	"minitracker/internal/sheets"
)

type Store struct {
	mu     sync.Mutex
	latest map[int64]sheets.Snapshot
	writes int
}

var _ sheets.DashboardWriter = (*Store)(nil)

func New() *Store {
	return &Store{latest: make(map[int64]sheets.Snapshot)}
}

// WriteDashboard keeps s as the latest snapshot of its owner.
func (s *Store) WriteDashboard(_ context.Context, snap sheets.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[snap.OwnerID] = snap
	s.writes++
	return nil
}

// Latest returns the last snapshot written for ownerID.
func (s *Store) Latest(ownerID int64) (sheets.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.latest[ownerID]
	return snap, ok
}

// Writes returns how many exports were written.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
