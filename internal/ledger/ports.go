package ledger

import (
	"context"

	"conti/internal/core"
)

// Ports for the ledger's outbound adapters.
type (
	// Store is the durable table of records. Operations on an id that does not
	// exist return core.ErrNotFound.
	Store interface {
		// Insert stores r and returns its new id. A zero OccurredOn means today.
		Insert(ctx context.Context, r core.Record) (int64, error)
		Get(ctx context.Context, id int64) (core.Record, error)
		// Update overwrites amount and category only.
		Update(ctx context.Context, id int64, amount core.Money, category string) error
		Delete(ctx context.Context, id int64) error
		// ListForUser orders by occurred_on desc, then id desc.
		ListForUser(ctx context.Context, userID int64) ([]core.Record, error)
		// Sum returns zero when no rows match.
		Sum(ctx context.Context, userID int64, kind core.Kind) (core.Money, error)
		// DailySeries groups by date within month, ascending.
		DailySeries(ctx context.Context, userID int64, kind core.Kind, month core.Month) ([]core.DailyAmount, error)
	}

	// Notifier receives record mutations after they are committed.
	Notifier interface {
		NotifyRecord(ctx context.Context, op Op, r core.Record) error
	}
)

// Op names a committed mutation.
type Op string

const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
	OpDeleted Op = "deleted"
)
