// Package memory is an in-process ledger store. Records live for the lifetime
// of the process.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"conti/internal/core"
	"conti/internal/ledger"
)

var _ ledger.Store = (*Store)(nil)

type Store struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]core.Record
	now    func() time.Time
}

func New() *Store {
	return &Store{items: make(map[int64]core.Record), now: time.Now}
}

// WithClock overrides the clock used for default dates.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Insert(_ context.Context, r core.Record) (int64, error) {
	if r.OccurredOn.IsZero() {
		r.OccurredOn = core.DateOf(s.now())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	r.ID = s.nextID
	s.items[r.ID] = r
	return r.ID, nil
}

func (s *Store) Get(_ context.Context, id int64) (core.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.items[id]
	if !ok {
		return core.Record{}, core.ErrNotFound
	}
	return r, nil
}

func (s *Store) Update(_ context.Context, id int64, amount core.Money, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[id]
	if !ok {
		return core.ErrNotFound
	}
	r.Amount = amount
	r.Category = category
	s.items[id] = r
	return nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *Store) ListForUser(_ context.Context, userID int64) ([]core.Record, error) {
	s.mu.RLock()
	out := make([]core.Record, 0)
	for _, r := range s.items {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].OccurredOn.Equal(out[j].OccurredOn.Time) {
			return out[i].OccurredOn.After(out[j].OccurredOn.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) Sum(_ context.Context, userID int64, kind core.Kind) (core.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, r := range s.items {
		if r.UserID == userID && r.Kind == kind {
			total += r.Amount.Cents
		}
	}
	return core.Money{Cents: total}, nil
}

func (s *Store) DailySeries(_ context.Context, userID int64, kind core.Kind, month core.Month) ([]core.DailyAmount, error) {
	s.mu.RLock()
	byDate := map[string]*core.DailyAmount{}
	for _, r := range s.items {
		if r.UserID != userID || r.Kind != kind || !month.Contains(r.OccurredOn) {
			continue
		}
		key := r.OccurredOn.String()
		p, ok := byDate[key]
		if !ok {
			p = &core.DailyAmount{Date: r.OccurredOn}
			byDate[key] = p
		}
		p.Amount.Cents += r.Amount.Cents
	}
	s.mu.RUnlock()

	series := make([]core.DailyAmount, 0, len(byDate))
	for _, p := range byDate {
		series = append(series, *p)
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Date.Before(series[j].Date.Time)
	})
	return series, nil
}
