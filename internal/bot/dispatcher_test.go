package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/session"
	"conti/internal/storage/memory"
)

var now = time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

type failingStore struct {
	ledger.Store
	err error
}

func (s failingStore) Insert(context.Context, core.Record) (int64, error) { return 0, s.err }
func (s failingStore) Sum(context.Context, int64, core.Kind) (core.Money, error) {
	return core.Money{}, s.err
}

type fixture struct {
	d     *Dispatcher
	store ledger.Store
	ss    *session.Store
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.New().WithClock(func() time.Time { return now })
	return newFixtureWithStore(t, store)
}

func newFixtureWithStore(t *testing.T, store ledger.Store) fixture {
	t.Helper()
	clock := func() time.Time { return now }
	ss := session.NewStore(100, time.Hour)
	d := NewDispatcher(
		ledger.NewService(store, nil).WithClock(clock),
		ledger.NewReporter(store),
		ss,
	).WithClock(clock)
	return fixture{d: d, store: store, ss: ss}
}

func (f fixture) text(user int64, text string) Response {
	return f.d.Handle(context.Background(), Event{UserID: user, Type: EventText, Text: text})
}

func (f fixture) menu(user int64, a Action) Response {
	return f.d.Handle(context.Background(), Event{UserID: user, Type: EventMenu, Action: a})
}

func (f fixture) callback(user int64, data string) Response {
	return f.d.Handle(context.Background(), Event{UserID: user, Type: EventCallback, Data: data})
}

func (f fixture) records(t *testing.T, user int64) []core.Record {
	t.Helper()
	rs, err := f.store.ListForUser(context.Background(), user)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	return rs
}

func TestStart(t *testing.T) {
	f := newFixture(t)
	resp := f.d.Handle(context.Background(), Event{UserID: 1, Type: EventStart})
	if !resp.Menu || !strings.Contains(resp.Text, "+1000 salary") {
		t.Fatalf("unexpected greeting %+v", resp)
	}
}

func TestChosenKindOverridesSign(t *testing.T) {
	f := newFixture(t)

	f.menu(1, ActionAddExpense)
	resp := f.text(1, "-500 food")

	rs := f.records(t, 1)
	if len(rs) != 1 {
		t.Fatalf("got %d records, want 1", len(rs))
	}
	if rs[0].Kind != core.Expense || rs[0].Amount.Cents != 50000 || rs[0].Category != "food" {
		t.Fatalf("unexpected record %+v", rs[0])
	}
	if resp.Text != "✅ Added: -500.00 (food)" {
		t.Fatalf("unexpected answer %q", resp.Text)
	}

	f.menu(1, ActionAddIncome)
	f.text(1, "-20 refund")
	if rs := f.records(t, 1); rs[0].Kind != core.Income || rs[0].Amount.Cents != 2000 {
		t.Fatalf("income selection not honored: %+v", rs[0])
	}
}

func TestMenuLabelText(t *testing.T) {
	f := newFixture(t)
	if resp := f.text(1, " ➖ Expense "); resp.Text != msgPromptExpense {
		t.Fatalf("label not matched: %q", resp.Text)
	}
	if kind, ok := f.ss.Get(1).Entry(); !ok || kind != core.Expense {
		t.Fatalf("state = %s", f.ss.Get(1))
	}
}

func TestUnsignedWithoutSelection(t *testing.T) {
	f := newFixture(t)
	resp := f.text(1, "1000 salary")
	if resp.Text != msgUnrecognized {
		t.Fatalf("unexpected answer %q", resp.Text)
	}
	if rs := f.records(t, 1); len(rs) != 0 {
		t.Fatalf("record created: %+v", rs)
	}
}

func TestDirectSignedEntry(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		text  string
		kind  core.Kind
		cents int64
		cat   string
	}{
		{"+1000 salary", core.Income, 100000, "salary"},
		{"-500,5 taxi", core.Expense, 50050, "taxi"},
		{"+7", core.Income, 700, core.Uncategorized},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			f.text(2, tt.text)
			r := f.records(t, 2)[0]
			if r.Kind != tt.kind || r.Amount.Cents != tt.cents || r.Category != tt.cat {
				t.Fatalf("unexpected record %+v", r)
			}
		})
	}
}

func TestParseFailureClearsSelection(t *testing.T) {
	f := newFixture(t)
	f.menu(1, ActionAddIncome)

	if resp := f.text(1, "abc food"); resp.Text != msgBadEntry {
		t.Fatalf("unexpected answer %q", resp.Text)
	}
	if !f.ss.Get(1).IsIdle() {
		t.Fatalf("state not reset: %s", f.ss.Get(1))
	}
	// Not re-armed: an unsigned amount is now unrecognized.
	if resp := f.text(1, "100 food"); resp.Text != msgUnrecognized {
		t.Fatalf("unexpected answer %q", resp.Text)
	}
}

func TestEditFlow(t *testing.T) {
	f := newFixture(t)
	f.text(1, "-10 x")
	id := f.records(t, 1)[0].ID
	data := EncodeCallback(CallbackEdit, id)

	resp := f.callback(1, data)
	if !resp.EditOriginal || !strings.Contains(resp.Text, "#"+itoa(id)) {
		t.Fatalf("unexpected prompt %+v", resp)
	}
	if got, ok := f.ss.Get(1).Edit(); !ok || got != id {
		t.Fatalf("state = %s", f.ss.Get(1))
	}

	resp = f.text(1, "20 y")
	if resp.Text != "Record #"+itoa(id)+" updated: 20.00 (y)" {
		t.Fatalf("unexpected answer %q", resp.Text)
	}
	r := f.records(t, 1)[0]
	if r.Amount.Cents != 2000 || r.Category != "y" || r.Kind != core.Expense {
		t.Fatalf("unexpected record %+v", r)
	}
	if !f.ss.Get(1).IsIdle() {
		t.Fatalf("state not consumed: %s", f.ss.Get(1))
	}
}

func TestEditAfterDelete(t *testing.T) {
	f := newFixture(t)
	f.text(1, "-10 x")
	id := f.records(t, 1)[0].ID

	f.callback(1, EncodeCallback(CallbackEdit, id))
	f.callback(1, EncodeCallback(CallbackDelete, id))

	// The delete callback does not clear the pending edit.
	if resp := f.text(1, "20 y"); resp.Text != msgNotFound {
		t.Fatalf("unexpected answer %q", resp.Text)
	}
	if !f.ss.Get(1).IsIdle() {
		t.Fatalf("state = %s", f.ss.Get(1))
	}
}

func TestEditParseFailure(t *testing.T) {
	f := newFixture(t)
	f.text(1, "-10 x")
	id := f.records(t, 1)[0].ID

	f.callback(1, EncodeCallback(CallbackEdit, id))
	if resp := f.text(1, ""); resp.Text != msgBadEdit {
		t.Fatalf("unexpected answer %q", resp.Text)
	}
	if r := f.records(t, 1)[0]; r.Amount.Cents != 1000 {
		t.Fatalf("record changed: %+v", r)
	}
}

func TestOwnership(t *testing.T) {
	f := newFixture(t)
	f.text(1, "+500 gift")
	id := f.records(t, 1)[0].ID

	if resp := f.callback(2, EncodeCallback(CallbackEdit, id)); resp.Text != msgForbidEdit {
		t.Fatalf("edit: unexpected answer %q", resp.Text)
	}
	if !f.ss.Get(2).IsIdle() {
		t.Fatalf("forbidden edit armed state: %s", f.ss.Get(2))
	}
	if resp := f.callback(2, EncodeCallback(CallbackDelete, id)); resp.Text != msgForbidDelete {
		t.Fatalf("delete: unexpected answer %q", resp.Text)
	}

	r := f.records(t, 1)[0]
	if r.Amount.Cents != 50000 || r.Category != "gift" || r.Kind != core.Income {
		t.Fatalf("record changed: %+v", r)
	}
}

func TestDeleteTwice(t *testing.T) {
	f := newFixture(t)
	f.text(1, "-10 x")
	id := f.records(t, 1)[0].ID
	data := EncodeCallback(CallbackDelete, id)

	if resp := f.callback(1, data); resp.Text != "✅ Record #"+itoa(id)+" deleted." || !resp.EditOriginal {
		t.Fatalf("unexpected answer %+v", resp)
	}
	if resp := f.callback(1, data); resp.Text != msgNotFound {
		t.Fatalf("unexpected answer %q", resp.Text)
	}
}

func TestBadCallback(t *testing.T) {
	f := newFixture(t)
	for _, data := range []string{"", "del_", "del_abc", "zap_1", "edit_-3"} {
		if resp := f.callback(1, data); resp.Text != msgBadCallback {
			t.Fatalf("%q: unexpected answer %q", data, resp.Text)
		}
	}
}

func TestBalance(t *testing.T) {
	f := newFixture(t)
	f.text(1, "+1000 salary")
	f.text(1, "-250,25 food")
	f.text(2, "+99 other")

	resp := f.menu(1, ActionBalance)
	want := "💰 Balance: 749.75\n➕ Income: 1000.00\n➖ Expense: 250.25"
	if resp.Text != want {
		t.Fatalf("got %q, want %q", resp.Text, want)
	}
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	if resp := f.menu(1, ActionHistory); resp.Text != msgEmptyHistory {
		t.Fatalf("unexpected answer %q", resp.Text)
	}

	f.text(1, "+1000 salary")
	f.text(1, "-5 gum")

	resp := f.menu(1, ActionHistory)
	lines := strings.Split(resp.Text, "\n")
	if len(lines) != 2 || len(resp.Buttons) != 2 {
		t.Fatalf("unexpected history %+v", resp)
	}
	if !strings.HasSuffix(lines[0], "2024-05-20 -5.00 (gum)") {
		t.Fatalf("most recent first expected, got %q", lines[0])
	}
	for _, row := range resp.Buttons {
		if len(row) != 2 {
			t.Fatalf("want delete and edit buttons, got %+v", row)
		}
		if op, _, err := ParseCallback(row[0].Data); err != nil || op != CallbackDelete {
			t.Fatalf("bad delete button %+v", row[0])
		}
		if op, _, err := ParseCallback(row[1].Data); err != nil || op != CallbackEdit {
			t.Fatalf("bad edit button %+v", row[1])
		}
	}
}

func TestReport(t *testing.T) {
	t.Run("no operations", func(t *testing.T) {
		f := newFixture(t)
		resp := f.menu(1, ActionReport)
		if resp.Text != "📊 Report for 2024-05\n"+msgNoOperations || len(resp.Charts) != 0 {
			t.Fatalf("unexpected report %+v", resp)
		}
	})

	t.Run("income only", func(t *testing.T) {
		f := newFixture(t)
		f.text(1, "+10 x")
		f.text(1, "+5 y")

		resp := f.menu(1, ActionReport)
		if !strings.Contains(resp.Text, msgNoExpenses) || strings.Contains(resp.Text, msgNoIncome) {
			t.Fatalf("unexpected text %q", resp.Text)
		}
		if len(resp.Charts) != 1 {
			t.Fatalf("want 1 chart, got %+v", resp.Charts)
		}
		c := resp.Charts[0]
		if c.Title != "Income by day (2024-05)" || len(c.Dates) != 1 || c.Dates[0] != "2024-05-20" || c.Values[0] != 15 {
			t.Fatalf("unexpected chart %+v", c)
		}
	})

	t.Run("both", func(t *testing.T) {
		f := newFixture(t)
		f.text(1, "+10 x")
		f.text(1, "-3 y")

		resp := f.menu(1, ActionReport)
		if len(resp.Charts) != 2 || resp.Charts[0].Title != "Expenses by day (2024-05)" {
			t.Fatalf("unexpected charts %+v", resp.Charts)
		}
	})
}

func TestStorageFailure(t *testing.T) {
	f := newFixtureWithStore(t, failingStore{Store: memory.New(), err: errors.New("disk gone")})

	if resp := f.text(1, "+10 x"); resp.Text != msgFailure {
		t.Fatalf("insert: unexpected answer %q", resp.Text)
	}
	if resp := f.menu(1, ActionBalance); resp.Text != msgFailure {
		t.Fatalf("balance: unexpected answer %q", resp.Text)
	}
}

func TestInvalidEvent(t *testing.T) {
	f := newFixture(t)
	for _, ev := range []Event{
		{Type: EventText, Text: "+1 x"},
		{UserID: 1, Type: "sticker"},
		{UserID: 1, Type: EventMenu, Action: "dance"},
	} {
		if resp := f.d.Handle(context.Background(), ev); resp.Text != msgUnrecognized {
			t.Fatalf("%+v: unexpected answer %q", ev, resp.Text)
		}
	}
}

func TestConcurrentUsers(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	for u := int64(1); u <= 20; u++ {
		wg.Add(1)
		go func(u int64) {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				f.menu(u, ActionAddExpense)
				f.text(u, "1 x")
			}
		}(u)
	}
	wg.Wait()

	for u := int64(1); u <= 20; u++ {
		rs := f.records(t, u)
		if len(rs) != 5 {
			t.Fatalf("user %d: got %d records, want 5", u, len(rs))
		}
		for _, r := range rs {
			if r.Kind != core.Expense {
				t.Fatalf("user %d: unexpected kind %+v", u, r)
			}
		}
	}
}
