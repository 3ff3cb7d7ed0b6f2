package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

// Uncategorized is the category given to entries that name none.
const Uncategorized = "Uncategorized"

const dateLayout = "2006-01-02"

type (
	Kind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Record struct {
		ID         int64 // assigned by the store on insert
		UserID     int64
		Kind       Kind
		Amount     Money
		Category   string
		OccurredOn Date
	}

	// DailyAmount is one point of a daily series: the sum of all records of a
	// kind on a single date.
	DailyAmount struct {
		Date   Date
		Amount Money
	}
)

var (
	ErrEmptyInput      = errors.New("empty input")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidKind     = errors.New("invalid kind")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidUser     = errors.New("invalid user id")
	ErrEmptyCategory   = errors.New("empty category")
	ErrNotFound        = errors.New("record not found")
	ErrForbidden       = errors.New("record belongs to another user")
	ErrNoActivity      = errors.New("no activity in period")
	ErrCategoryTooLong = errors.New("category too long (max 200 characters)")
)

func (k Kind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, string(k))
	}
}

// Sign returns "+" for income and "-" for expense.
func (k Kind) Sign() string {
	if k == Income {
		return "+"
	}
	return "-"
}

// KindFromSign maps a parsed sign to a kind; ok is false for sign 0.
func KindFromSign(sign int) (Kind, bool) {
	switch {
	case sign > 0:
		return Income, true
	case sign < 0:
		return Expense, true
	default:
		return "", false
	}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: zero date", ErrInvalidDate)
	}
	return nil
}

// Month returns the calendar month containing d.
func (d Date) Month() Month {
	return Month{Year: d.Year(), Month: int(d.Time.Month())}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (r Record) Validate() error {
	if r.UserID == 0 {
		return ErrInvalidUser
	}
	if err := r.Kind.Validate(); err != nil {
		return err
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	if utf8.RuneCountInString(r.Category) > 200 {
		return ErrCategoryTooLong
	}
	if !r.OccurredOn.IsZero() {
		if err := r.OccurredOn.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Line renders the record the way the history listing shows it:
// "{id}. {date} {+|-}{amount} ({category})".
func (r Record) Line() string {
	return fmt.Sprintf("%d. %s %s%s (%s)", r.ID, r.OccurredOn, r.Kind.Sign(), r.Amount, r.Category)
}
