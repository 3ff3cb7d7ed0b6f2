package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"conti/internal/amqp"
	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/storage/memory"
)

type fakeMirror struct {
	mu   sync.Mutex
	rows map[int64]core.Record
	err  error
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{rows: make(map[int64]core.Record)}
}

func (m *fakeMirror) Upsert(_ context.Context, r core.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rows[r.ID] = r
	return nil
}

func (m *fakeMirror) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.rows, id)
	return nil
}

func insert(t *testing.T, store ledger.Store, cents int64, category string) core.Record {
	t.Helper()
	r := core.Record{UserID: 1, Kind: core.Expense, Amount: core.Money{Cents: cents}, Category: category, OccurredOn: core.NewDate(2024, 5, 2)}
	id, err := store.Insert(context.Background(), r)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	r.ID = id
	return r
}

func TestMirrorWorker_CreateUpdateDelete(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	mirror := newFakeMirror()
	w := NewMirrorWorker(store, mirror)

	r := insert(t, store, 1000, "x")
	if err := w.HandleRecordEvent(ctx, amqp.NewRecordEventMessage(ledger.OpCreated, r)); err != nil {
		t.Fatalf("created: %v", err)
	}
	if got := mirror.rows[r.ID]; got.Amount.Cents != 1000 {
		t.Fatalf("mirror row = %+v", got)
	}

	// A stale payload still mirrors the stored state.
	stale := amqp.NewRecordEventMessage(ledger.OpUpdated, r)
	if err := store.Update(ctx, r.ID, core.Money{Cents: 2000}, "y"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := w.HandleRecordEvent(ctx, stale); err != nil {
		t.Fatalf("updated: %v", err)
	}
	if got := mirror.rows[r.ID]; got.Amount.Cents != 2000 || got.Category != "y" {
		t.Fatalf("mirror row after update = %+v", got)
	}

	if err := w.HandleRecordEvent(ctx, amqp.NewRecordEventMessage(ledger.OpDeleted, r)); err != nil {
		t.Fatalf("deleted: %v", err)
	}
	if _, ok := mirror.rows[r.ID]; ok {
		t.Fatal("row still mirrored after delete")
	}
}

func TestMirrorWorker_SkipsMissingRecord(t *testing.T) {
	store := memory.New()
	mirror := newFakeMirror()
	w := NewMirrorWorker(store, mirror)

	r := core.Record{ID: 404, UserID: 1, Kind: core.Income, Amount: core.Money{Cents: 1}, Category: "x", OccurredOn: core.NewDate(2024, 5, 2)}
	if err := w.HandleRecordEvent(context.Background(), amqp.NewRecordEventMessage(ledger.OpCreated, r)); err != nil {
		t.Fatalf("expected skip, got %v", err)
	}
	if len(mirror.rows) != 0 {
		t.Fatalf("unexpected rows %+v", mirror.rows)
	}
}

func TestMirrorWorker_MirrorErrorRequeues(t *testing.T) {
	store := memory.New()
	mirror := newFakeMirror()
	mirror.err = errors.New("quota exceeded")
	w := NewMirrorWorker(store, mirror)

	r := insert(t, store, 100, "x")
	for _, op := range []ledger.Op{ledger.OpCreated, ledger.OpDeleted} {
		if err := w.HandleRecordEvent(context.Background(), amqp.NewRecordEventMessage(op, r)); err == nil {
			t.Fatalf("%s: expected error", op)
		}
	}
}
