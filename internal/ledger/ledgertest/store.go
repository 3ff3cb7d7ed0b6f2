// Package ledgertest checks ledger.Store implementations against the
// behavior the ledger relies on.
package ledgertest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"conti/internal/core"
	"conti/internal/ledger"
)

// Today is the clock value handed to stores under test.
var Today = time.Date(2024, 5, 20, 15, 4, 5, 0, time.UTC)

// NewStoreFunc builds an empty store whose default date comes from now.
type NewStoreFunc func(t *testing.T, now func() time.Time) ledger.Store

// RunStoreTests runs the conformance suite against newStore.
func RunStoreTests(t *testing.T, newStore NewStoreFunc) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s ledger.Store)
	}{
		{"InsertGet", testInsertGet},
		{"InsertDefaultsToToday", testInsertDefaultsToToday},
		{"IDsNotReused", testIDsNotReused},
		{"UpdateKeepsIdentity", testUpdateKeepsIdentity},
		{"DeleteTwice", testDeleteTwice},
		{"MissingID", testMissingID},
		{"ListForUserOrder", testListForUserOrder},
		{"SumAndBalance", testSumAndBalance},
		{"DailySeriesMonthBounds", testDailySeriesMonthBounds},
		{"ConcurrentUpdates", testConcurrentUpdates},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t, func() time.Time { return Today }))
		})
	}
}

func mustInsert(t *testing.T, s ledger.Store, r core.Record) int64 {
	t.Helper()
	id, err := s.Insert(context.Background(), r)
	if err != nil {
		t.Fatalf("insert %+v: %v", r, err)
	}
	return id
}

func rec(user int64, kind core.Kind, cents int64, category, date string) core.Record {
	r := core.Record{UserID: user, Kind: kind, Amount: core.Money{Cents: cents}, Category: category}
	if date != "" {
		d, err := core.ParseDate(date)
		if err != nil {
			panic(err)
		}
		r.OccurredOn = d
	}
	return r
}

func testInsertGet(t *testing.T, s ledger.Store) {
	id := mustInsert(t, s, rec(1, core.Expense, 1000, "x", "2024-05-02"))
	got, err := s.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != id || got.UserID != 1 || got.Kind != core.Expense || got.Amount.Cents != 1000 ||
		got.Category != "x" || got.OccurredOn.String() != "2024-05-02" {
		t.Fatalf("unexpected record %+v (id %d)", got, id)
	}
}

func testInsertDefaultsToToday(t *testing.T, s ledger.Store) {
	id := mustInsert(t, s, rec(1, core.Income, 100, core.Uncategorized, ""))
	got, err := s.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.OccurredOn.String() != "2024-05-20" {
		t.Fatalf("occurred_on = %s, want 2024-05-20", got.OccurredOn)
	}
}

func testIDsNotReused(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	a := mustInsert(t, s, rec(1, core.Income, 100, "a", ""))
	b := mustInsert(t, s, rec(1, core.Income, 100, "b", ""))
	if err := s.Delete(ctx, b); err != nil {
		t.Fatalf("delete: %v", err)
	}
	c := mustInsert(t, s, rec(1, core.Income, 100, "c", ""))
	if a == b || c == a || c == b {
		t.Fatalf("ids reused: a=%d b=%d c=%d", a, b, c)
	}
}

func testUpdateKeepsIdentity(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	id := mustInsert(t, s, rec(1, core.Expense, 1000, "x", "2024-05-02"))
	if err := s.Update(ctx, id, core.Money{Cents: 2000}, "y"); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Amount.Cents != 2000 || got.Category != "y" {
		t.Fatalf("update not applied: %+v", got)
	}
	if got.Kind != core.Expense || got.UserID != 1 || got.ID != id || got.OccurredOn.String() != "2024-05-02" {
		t.Fatalf("update changed identity fields: %+v", got)
	}
}

func testDeleteTwice(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	id := mustInsert(t, s, rec(1, core.Expense, 1000, "x", ""))
	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get after delete: %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete: %v, want ErrNotFound", err)
	}
}

func testMissingID(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	if _, err := s.Get(ctx, 404); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get: %v", err)
	}
	if err := s.Update(ctx, 404, core.Money{Cents: 1}, "x"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("update: %v", err)
	}
	if err := s.Delete(ctx, 404); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("delete: %v", err)
	}
}

func testListForUserOrder(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	older := mustInsert(t, s, rec(1, core.Income, 100, "a", "2024-05-01"))
	sameDay1 := mustInsert(t, s, rec(1, core.Expense, 100, "b", "2024-05-03"))
	sameDay2 := mustInsert(t, s, rec(1, core.Expense, 100, "c", "2024-05-03"))
	mustInsert(t, s, rec(2, core.Expense, 100, "other", "2024-05-04"))

	got, err := s.ListForUser(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []int64{sameDay2, sameDay1, older}
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: id %d, want %d", i, got[i].ID, id)
		}
		if got[i].UserID != 1 {
			t.Fatalf("foreign record listed: %+v", got[i])
		}
	}

	empty, err := s.ListForUser(ctx, 99)
	if err != nil || len(empty) != 0 {
		t.Fatalf("unknown user: %v %v", empty, err)
	}
}

func testSumAndBalance(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	zero, err := s.Sum(ctx, 1, core.Income)
	if err != nil || zero.Cents != 0 {
		t.Fatalf("empty sum = %v, %v", zero, err)
	}

	mustInsert(t, s, rec(1, core.Expense, 333, "a", ""))
	mustInsert(t, s, rec(1, core.Income, 100010, "b", ""))
	mustInsert(t, s, rec(1, core.Expense, 1, "c", ""))
	mustInsert(t, s, rec(1, core.Income, 5, "d", ""))
	mustInsert(t, s, rec(2, core.Income, 999999, "other", ""))

	r := ledger.NewReporter(s)
	b, err := r.Balance(ctx, 1)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if b.Income.Cents != 100015 || b.Expense.Cents != 334 || b.Net.Cents != 100015-334 {
		t.Fatalf("unexpected balance %+v", b)
	}
}

func testDailySeriesMonthBounds(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	mustInsert(t, s, rec(1, core.Expense, 100, "a", "2024-05-31"))
	mustInsert(t, s, rec(1, core.Expense, 250, "b", "2024-05-31"))
	mustInsert(t, s, rec(1, core.Expense, 400, "c", "2024-05-01"))
	mustInsert(t, s, rec(1, core.Expense, 999, "next month", "2024-06-01"))
	mustInsert(t, s, rec(1, core.Expense, 999, "prev month", "2024-04-30"))
	mustInsert(t, s, rec(1, core.Income, 999, "income", "2024-05-10"))
	mustInsert(t, s, rec(2, core.Expense, 999, "other user", "2024-05-10"))

	got, err := s.DailySeries(ctx, 1, core.Expense, core.Month{Year: 2024, Month: 5})
	if err != nil {
		t.Fatalf("daily series: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d points, want 2: %+v", len(got), got)
	}
	if got[0].Date.String() != "2024-05-01" || got[0].Amount.Cents != 400 {
		t.Fatalf("first point %+v", got[0])
	}
	if got[1].Date.String() != "2024-05-31" || got[1].Amount.Cents != 350 {
		t.Fatalf("second point %+v", got[1])
	}
}

func testConcurrentUpdates(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	id := mustInsert(t, s, rec(1, core.Expense, 100, "start", ""))

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := s.Update(ctx, id, core.Money{Cents: int64(i)}, "same"); err != nil {
				t.Errorf("update %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Amount.Cents < 1 || got.Amount.Cents > 20 || got.Category != "same" {
		t.Fatalf("torn write: %+v", got)
	}
}
