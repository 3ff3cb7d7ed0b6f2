package ledger_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/storage/memory"
)

func TestBalanceIndependentOfOrder(t *testing.T) {
	ctx := context.Background()
	entries := []core.Record{
		{UserID: 1, Kind: core.Income, Amount: core.Money{Cents: 100000}, Category: "salary"},
		{UserID: 1, Kind: core.Expense, Amount: core.Money{Cents: 50050}, Category: "rent"},
		{UserID: 1, Kind: core.Expense, Amount: core.Money{Cents: 1}, Category: "gum"},
		{UserID: 1, Kind: core.Income, Amount: core.Money{Cents: 333}, Category: "refund"},
		{UserID: 1, Kind: core.Expense, Amount: core.Money{Cents: 99999}, Category: "laptop"},
	}

	rng := rand.New(rand.NewSource(1))
	for round := 0; round < 5; round++ {
		store := memory.New()
		for _, i := range rng.Perm(len(entries)) {
			if _, err := store.Insert(ctx, entries[i]); err != nil {
				t.Fatalf("insert: %v", err)
			}
		}
		b, err := ledger.NewReporter(store).Balance(ctx, 1)
		if err != nil {
			t.Fatalf("balance: %v", err)
		}
		if b.Income.Cents != 100333 || b.Expense.Cents != 150050 || b.Net.Cents != 100333-150050 {
			t.Fatalf("round %d: unexpected balance %+v", round, b)
		}
	}
}

func TestMonthlyReport(t *testing.T) {
	ctx := context.Background()
	may := core.Month{Year: 2024, Month: 5}

	t.Run("no activity", func(t *testing.T) {
		store := memory.New()
		store.Insert(ctx, core.Record{UserID: 1, Kind: core.Expense, Amount: core.Money{Cents: 1}, Category: "x", OccurredOn: core.NewDate(2024, 6, 1)})

		rep, err := ledger.NewReporter(store).MonthlyReport(ctx, 1, may)
		if !errors.Is(err, core.ErrNoActivity) {
			t.Fatalf("expected ErrNoActivity, got %v", err)
		}
		if !rep.Empty() {
			t.Fatalf("report should be empty: %+v", rep)
		}
	})

	t.Run("income only", func(t *testing.T) {
		store := memory.New()
		store.Insert(ctx, core.Record{UserID: 1, Kind: core.Income, Amount: core.Money{Cents: 100}, Category: "x", OccurredOn: core.NewDate(2024, 5, 3)})

		rep, err := ledger.NewReporter(store).MonthlyReport(ctx, 1, may)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(rep.Expense) != 0 || len(rep.Income) != 1 {
			t.Fatalf("unexpected report %+v", rep)
		}
	})

	t.Run("invalid month", func(t *testing.T) {
		_, err := ledger.NewReporter(memory.New()).MonthlyReport(ctx, 1, core.Month{Year: 2024, Month: 13})
		if !errors.Is(err, core.ErrInvalidMonth) {
			t.Fatalf("expected ErrInvalidMonth, got %v", err)
		}
	})
}
