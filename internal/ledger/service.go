package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"conti/internal/core"
	"conti/internal/log"
)

// Service orchestrates record mutations: ownership checks, the store write,
// and a best-effort notification once the write is committed.
type Service struct {
	store    Store
	notifier Notifier
	now      func() time.Time
}

func NewService(store Store, notifier Notifier) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		now:      time.Now,
	}
}

// WithClock overrides the clock used for default dates.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Add records a new entry of the given kind dated today.
func (s *Service) Add(ctx context.Context, userID int64, kind core.Kind, amount core.Money, category string) (core.Record, error) {
	r := core.Record{
		UserID:     userID,
		Kind:       kind,
		Amount:     amount,
		Category:   category,
		OccurredOn: core.DateOf(s.now()),
	}
	if err := r.Validate(); err != nil {
		return core.Record{}, fmt.Errorf("validate record: %w", err)
	}

	id, err := s.store.Insert(ctx, r)
	if err != nil {
		return core.Record{}, fmt.Errorf("insert record: %w", err)
	}
	r.ID = id

	slog.InfoContext(ctx, "Record created", recordFields(r, log.OpCreate)...)
	s.notify(ctx, OpCreated, r)
	return r, nil
}

// AuthorizeEdit loads record id and checks that userID may change it.
func (s *Service) AuthorizeEdit(ctx context.Context, userID, id int64) (core.Record, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return core.Record{}, fmt.Errorf("get record %d: %w", id, err)
	}
	if err := Authorize(userID, r); err != nil {
		slog.WarnContext(ctx, "Ownership check failed",
			log.FieldUserID, userID,
			log.FieldRecordID, id,
			log.FieldOwnerID, r.UserID)
		return core.Record{}, err
	}
	return r, nil
}

// Edit overwrites amount and category of a record owned by userID.
// Kind, owner and date are kept.
func (s *Service) Edit(ctx context.Context, userID, id int64, amount core.Money, category string) (core.Record, error) {
	r, err := s.AuthorizeEdit(ctx, userID, id)
	if err != nil {
		return core.Record{}, err
	}

	r.Amount = amount
	r.Category = category
	if err := r.Validate(); err != nil {
		return core.Record{}, fmt.Errorf("validate record: %w", err)
	}

	if err := s.store.Update(ctx, id, amount, category); err != nil {
		return core.Record{}, fmt.Errorf("update record %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Record updated", recordFields(r, log.OpUpdate)...)
	s.notify(ctx, OpUpdated, r)
	return r, nil
}

// Delete removes a record owned by userID.
func (s *Service) Delete(ctx context.Context, userID, id int64) (core.Record, error) {
	r, err := s.AuthorizeEdit(ctx, userID, id)
	if err != nil {
		return core.Record{}, err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return core.Record{}, fmt.Errorf("delete record %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Record deleted", recordFields(r, log.OpDelete)...)
	s.notify(ctx, OpDeleted, r)
	return r, nil
}

// History lists the user's records, most recent first.
func (s *Service) History(ctx context.Context, userID int64) ([]core.Record, error) {
	records, err := s.store.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

func (s *Service) notify(ctx context.Context, op Op, r core.Record) {
	if s.notifier == nil {
		return
	}
	// The record is committed; a lost notification only delays the mirror.
	if err := s.notifier.NotifyRecord(ctx, op, r); err != nil {
		slog.ErrorContext(ctx, "Failed to publish record event",
			log.FieldRecordID, r.ID,
			log.FieldOperation, string(op),
			log.FieldError, err)
	}
}

func recordFields(r core.Record, op string) []any {
	return log.NewFields().
		WithComponent(log.ComponentLedger).
		WithOperation(op).
		WithRecord(r.ID, r.UserID, string(r.Kind), r.Amount.Cents, r.Category).
		ToSlice()
}
