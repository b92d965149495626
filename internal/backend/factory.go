package backend

import (
	"context"
	"errors"
	"fmt"

	"minitracker/internal/amqp"
	"minitracker/internal/log"
	"minitracker/internal/session"
	"minitracker/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.Config{Component: log.ComponentStorage})
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend opens the session store for config.Type and, when AMQP_URL
// is set, a publisher. A broker that cannot be reached is logged and
// skipped; a store that cannot be opened is an error.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *BackendResult
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		res = f.createMemoryBackend(ctx)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.AMQPURL == "" {
		return res, nil
	}
	amqpClient, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events",
			log.FieldError, err.Error())
		return res, nil
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	res.Publisher = amqpClient
	storeCleanup := res.Cleanup
	res.Cleanup = func() error {
		var errs []error
		errs = append(errs, amqpClient.Close())
		if storeCleanup != nil {
			errs = append(errs, storeCleanup())
		}
		return errors.Join(errs...)
	}
	return res, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := storage.NewSQLiteSessionStore(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite session store: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized SQLite session store", "db_path", config.SQLiteDBPath)
	return &BackendResult{Store: store, Pinger: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context) *BackendResult {
	f.logger.InfoContext(ctx, "Initialized memory session store")
	return &BackendResult{Store: session.NewMemoryStore()}
}
