package backend

import (
	"context"

	"conti/internal/amqp"
	"conti/internal/ledger"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result bundles the ledger store with the optional messaging side.
type Result struct {
	Store ledger.Store
	// Notifier is nil when AMQP is disabled or unreachable.
	Notifier ledger.Notifier
	// AMQP is the client behind Notifier, also used to consume chat events.
	AMQP *amqp.Client
	// Ready checks the store; nil when the store has nothing to check.
	Ready   func(ctx context.Context) error
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string

	AMQPURL      string
	AMQPExchange string
	AMQPQueues   amqp.Queues
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
