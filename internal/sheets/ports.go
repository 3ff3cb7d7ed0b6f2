package sheets

import (
	"context"

	"conti/internal/core"
)

// Ports for outbound adapters.
type (
	// RecordMirror keeps a spreadsheet copy of the ledger, one row per record
	// keyed by record id. Both operations are idempotent.
	RecordMirror interface {
		Upsert(ctx context.Context, r core.Record) error
		// Delete removes the row of id; a missing row is not an error.
		Delete(ctx context.Context, id int64) error
	}
)
