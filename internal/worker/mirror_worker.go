package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"conti/internal/amqp"
	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/log"
	"conti/internal/sheets"
)

// MirrorWorker replays ledger record events onto the spreadsheet mirror.
type MirrorWorker struct {
	store  ledger.Store
	mirror sheets.RecordMirror
}

func NewMirrorWorker(store ledger.Store, mirror sheets.RecordMirror) *MirrorWorker {
	return &MirrorWorker{
		store:  store,
		mirror: mirror,
	}
}

// HandleRecordEvent processes a single record event from AMQP. A returned
// error requeues the message.
func (w *MirrorWorker) HandleRecordEvent(ctx context.Context, msg *amqp.RecordEventMessage) error {
	slog.InfoContext(ctx, "Processing record event",
		log.FieldComponent, log.ComponentWorker,
		log.FieldMessageID, msg.ID,
		log.FieldOperation, string(msg.Op),
		log.FieldRecordID, msg.RecordID)

	switch msg.Op {
	case ledger.OpDeleted:
		if err := w.mirror.Delete(ctx, msg.RecordID); err != nil {
			return fmt.Errorf("delete mirror row %d: %w", msg.RecordID, err)
		}
		return nil

	case ledger.OpCreated, ledger.OpUpdated:
		// The store is the source of truth: events may arrive late or out of order.
		r, err := w.store.Get(ctx, msg.RecordID)
		if errors.Is(err, core.ErrNotFound) {
			slog.InfoContext(ctx, "Record gone before mirroring, skipping",
				log.FieldComponent, log.ComponentWorker,
				log.FieldRecordID, msg.RecordID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("get record from storage: %w", err)
		}
		if err := w.mirror.Upsert(ctx, r); err != nil {
			return fmt.Errorf("upsert mirror row %d: %w", r.ID, err)
		}

		slog.InfoContext(ctx, "Successfully mirrored record",
			log.FieldComponent, log.ComponentWorker,
			log.FieldOperation, log.OpMirror,
			log.FieldRecordID, r.ID,
			log.FieldAmountCents, r.Amount.Cents)
		return nil

	default:
		return fmt.Errorf("unknown record op %q", msg.Op)
	}
}
