package backend

import (
	"context"
	"errors"
	"fmt"

	"conti/internal/amqp"
	"conti/internal/ledger"
	"conti/internal/log"
	"conti/internal/storage"
	"conti/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
	dial   func(url, exchange string, queues amqp.Queues) (*amqp.Client, error)
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
		dial:   amqp.NewClient,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *Result
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(config)
	case MemoryBackend:
		res = f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	f.attachAMQP(ctx, config, res)
	return res, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &Result{
		Store:   repo,
		Ready:   repo.Ping,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() *Result {
	f.logger.Warn("Initialized memory backend; records are lost on restart")
	return &Result{Store: memory.New()}
}

// attachAMQP connects the broker when configured. A broker that cannot be
// reached leaves the backend running without record events.
func (f *DefaultFactory) attachAMQP(ctx context.Context, config Config, res *Result) {
	if config.AMQPURL == "" {
		return
	}

	client, err := f.dial(config.AMQPURL, config.AMQPExchange, config.AMQPQueues)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events",
			log.FieldError, err)
		return
	}

	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		log.FieldQueue, config.AMQPQueues.Ledger)

	res.AMQP = client
	res.Notifier = client

	storeCleanup := res.Cleanup
	res.Cleanup = func() error {
		err := client.Close()
		if storeCleanup != nil {
			err = errors.Join(err, storeCleanup())
		}
		return err
	}
}

var _ ledger.Notifier = (*amqp.Client)(nil)
