package backend

import (
	"context"

	"minitracker/internal/services"
	"minitracker/internal/session"
)

// CleanupFunc releases whatever the factory opened.
type CleanupFunc func() error

// Pinger reports whether a backing resource is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BackendResult bundles the session store with the optional event publisher.
type BackendResult struct {
	Store session.Store
	// Publisher is nil when AMQP is not configured or unreachable.
	Publisher services.Publisher
	// Pinger is nil for backends that cannot fail, such as memory.
	Pinger  Pinger
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Optional event publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType names a session storage implementation.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
