package ledger

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"conti/internal/core"
)

// Report holds the daily series of one month for a single user.
type Report struct {
	Month   core.Month
	Expense []core.DailyAmount
	Income  []core.DailyAmount
}

// Empty reports whether neither series has any point.
func (r Report) Empty() bool {
	return len(r.Expense) == 0 && len(r.Income) == 0
}

// Reporter composes store aggregations into balances and monthly reports.
type Reporter struct {
	store Store
}

func NewReporter(store Store) *Reporter {
	return &Reporter{store: store}
}

// Balance returns income, expense and their difference.
func (r *Reporter) Balance(ctx context.Context, userID int64) (core.Balance, error) {
	var income, expense core.Money

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		income, err = r.store.Sum(gctx, userID, core.Income)
		if err != nil {
			return fmt.Errorf("sum income: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		expense, err = r.store.Sum(gctx, userID, core.Expense)
		if err != nil {
			return fmt.Errorf("sum expense: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.Balance{}, err
	}

	return core.NewBalance(income, expense), nil
}

// MonthlyReport returns the expense and income series for month. When both
// are empty it returns the (empty) report together with core.ErrNoActivity.
func (r *Reporter) MonthlyReport(ctx context.Context, userID int64, month core.Month) (Report, error) {
	if err := month.Validate(); err != nil {
		return Report{}, err
	}

	rep := Report{Month: month}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rep.Expense, err = r.store.DailySeries(gctx, userID, core.Expense, month)
		if err != nil {
			return fmt.Errorf("expense series: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		rep.Income, err = r.store.DailySeries(gctx, userID, core.Income, month)
		if err != nil {
			return fmt.Errorf("income series: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	if rep.Empty() {
		return rep, core.ErrNoActivity
	}
	return rep, nil
}
