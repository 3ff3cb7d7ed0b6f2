package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/ledger/ledgertest"
)

func newTestRepository(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "conti.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func TestSQLiteRepository(t *testing.T) {
	ledgertest.RunStoreTests(t, func(t *testing.T, now func() time.Time) ledger.Store {
		repo, _ := newTestRepository(t)
		return repo.WithClock(now)
	})
}

func TestSQLiteRepositorySurvivesReopen(t *testing.T) {
	repo, path := newTestRepository(t)
	ctx := context.Background()

	id, err := repo.Insert(ctx, core.Record{
		UserID:     42,
		Kind:       core.Income,
		Amount:     core.Money{Cents: 100000},
		Category:   "salary",
		OccurredOn: core.NewDate(2024, 5, 1),
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := repo.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, id)
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if got.Category != "salary" || got.Amount.Cents != 100000 || got.OccurredOn.String() != "2024-05-01" {
		t.Fatalf("unexpected record %+v", got)
	}
}

func TestSchemaVersion(t *testing.T) {
	_, path := newTestRepository(t)
	version, dirty, err := SchemaVersion(path)
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if version != 1 || dirty {
		t.Fatalf("version=%d dirty=%v, want 1 clean", version, dirty)
	}
}
