package core

import (
	"fmt"
	"strings"
	"unicode"
)

// Entry is the structured form of a free-text ledger line such as
// "+1000 salary" or "500,5 taxi".
type Entry struct {
	// Sign is +1 or -1 when the text started with '+' or '-', 0 otherwise.
	Sign     int
	Amount   Money
	Category string
}

// ParseError reports why a line could not be read as an entry.
// Reason is ErrEmptyInput or ErrInvalidAmount.
type ParseError struct {
	Input  string
	Reason error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %v", e.Input, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Reason
}

// ParseEntry reads "[+|-]<amount> [category]". The amount accepts a decimal
// comma; everything after the first run of whitespace is the category.
func ParseEntry(text string) (Entry, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return Entry{}, &ParseError{Input: text, Reason: ErrEmptyInput}
	}

	var e Entry
	switch s[0] {
	case '+':
		e.Sign = 1
		s = strings.TrimSpace(s[1:])
	case '-':
		e.Sign = -1
		s = strings.TrimSpace(s[1:])
	}

	amount, category := s, ""
	if i := strings.IndexFunc(s, unicode.IsSpace); i >= 0 {
		amount, category = s[:i], strings.TrimSpace(s[i:])
	}

	m, err := ParseAmount(amount)
	if err != nil {
		return Entry{}, &ParseError{Input: text, Reason: ErrInvalidAmount}
	}
	e.Amount = m

	if category == "" {
		category = Uncategorized
	}
	e.Category = category
	return e, nil
}
