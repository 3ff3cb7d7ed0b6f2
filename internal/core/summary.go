package core

import (
	"fmt"
	"time"
)

// Month identifies a calendar month; its string form is YYYY-MM.
type Month struct {
	Year  int
	Month int // 1-12
}

// Balance is the net position of a user across all records.
type Balance struct {
	Net     Money // may be negative
	Income  Money
	Expense Money
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: int(t.Month())}
}

// ParseMonth parses a YYYY-MM month.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return MonthOf(t), nil
}

func (m Month) Validate() error {
	if m.Month < 1 || m.Month > 12 || m.Year < 1 || m.Year > 9999 {
		return fmt.Errorf("%w: %04d-%02d", ErrInvalidMonth, m.Year, m.Month)
	}
	return nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}

// Contains reports whether d falls within m.
func (m Month) Contains(d Date) bool {
	return d.Month() == m
}

// NewBalance computes net = income - expense.
func NewBalance(income, expense Money) Balance {
	return Balance{
		Net:     Money{Cents: income.Cents - expense.Cents},
		Income:  income,
		Expense: expense,
	}
}
