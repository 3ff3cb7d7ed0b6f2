package bot

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/log"
	"conti/internal/session"
)

// Dispatcher routes events through the conversation state to the ledger.
// Events of one user are handled one at a time.
type Dispatcher struct {
	ledger   *ledger.Service
	reporter *ledger.Reporter
	sessions *session.Store
	now      func() time.Time
}

func NewDispatcher(svc *ledger.Service, reporter *ledger.Reporter, sessions *session.Store) *Dispatcher {
	return &Dispatcher{
		ledger:   svc,
		reporter: reporter,
		sessions: sessions,
		now:      time.Now,
	}
}

// WithClock overrides the clock used to pick the report month.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Handle processes ev and returns the answer for the user. It never fails:
// every error becomes a user-facing text.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) Response {
	if err := ev.Validate(); err != nil {
		slog.WarnContext(ctx, "Rejected event",
			log.FieldComponent, log.ComponentBot,
			log.FieldUserID, ev.UserID,
			log.FieldEventType, string(ev.Type),
			log.FieldError, err)
		return textResponse(msgUnrecognized)
	}

	unlock := d.sessions.Lock(ev.UserID)
	defer unlock()

	slog.DebugContext(ctx, "Dispatching event",
		log.FieldComponent, log.ComponentBot,
		log.FieldUserID, ev.UserID,
		log.FieldEventType, string(ev.Type),
		log.FieldState, d.sessions.Get(ev.UserID).String())

	switch ev.Type {
	case EventStart:
		return menuResponse(msgGreeting)
	case EventMenu:
		return d.handleMenu(ctx, ev.UserID, ev.Action)
	case EventCallback:
		return d.handleCallback(ctx, ev.UserID, ev.Data)
	default:
		if action, ok := MatchLabel(ev.Text); ok {
			return d.handleMenu(ctx, ev.UserID, action)
		}
		return d.handleText(ctx, ev.UserID, ev.Text)
	}
}

func (d *Dispatcher) handleMenu(ctx context.Context, userID int64, action Action) Response {
	switch action {
	case ActionAddIncome:
		d.sessions.Set(userID, session.AwaitingEntry(core.Income))
		return textResponse(msgPromptIncome)
	case ActionAddExpense:
		d.sessions.Set(userID, session.AwaitingEntry(core.Expense))
		return textResponse(msgPromptExpense)
	case ActionBalance:
		return d.balance(ctx, userID)
	case ActionReport:
		return d.report(ctx, userID)
	case ActionHistory:
		return d.history(ctx, userID)
	default:
		return menuResponse(msgUnrecognized)
	}
}

func (d *Dispatcher) handleText(ctx context.Context, userID int64, text string) Response {
	state := d.sessions.Take(userID)

	if kind, ok := state.Entry(); ok {
		entry, err := core.ParseEntry(text)
		if err != nil {
			return textResponse(msgBadEntry)
		}
		// The chosen action wins over any sign typed by the user.
		return d.add(ctx, userID, kind, entry)
	}

	if id, ok := state.Edit(); ok {
		entry, err := core.ParseEntry(text)
		if err != nil {
			return textResponse(msgBadEdit)
		}
		r, err := d.ledger.Edit(ctx, userID, id, entry.Amount, entry.Category)
		if err != nil {
			return d.failure(ctx, userID, log.OpUpdate, err, msgForbidEdit)
		}
		return menuResponse(updated(r))
	}

	entry, err := core.ParseEntry(text)
	if err != nil {
		return textResponse(msgUnrecognized)
	}
	kind, ok := core.KindFromSign(entry.Sign)
	if !ok {
		return textResponse(msgUnrecognized)
	}
	return d.add(ctx, userID, kind, entry)
}

func (d *Dispatcher) add(ctx context.Context, userID int64, kind core.Kind, entry core.Entry) Response {
	r, err := d.ledger.Add(ctx, userID, kind, entry.Amount, entry.Category)
	if err != nil {
		return d.failure(ctx, userID, log.OpCreate, err, msgFailure)
	}
	return menuResponse(added(r))
}

func (d *Dispatcher) handleCallback(ctx context.Context, userID int64, data string) Response {
	op, id, err := ParseCallback(data)
	if err != nil {
		return Response{Text: msgBadCallback, EditOriginal: true}
	}

	var resp Response
	switch op {
	case CallbackDelete:
		if _, err := d.ledger.Delete(ctx, userID, id); err != nil {
			resp = d.failure(ctx, userID, log.OpDelete, err, msgForbidDelete)
		} else {
			resp = textResponse(deleted(id))
		}
	case CallbackEdit:
		if _, err := d.ledger.AuthorizeEdit(ctx, userID, id); err != nil {
			resp = d.failure(ctx, userID, log.OpUpdate, err, msgForbidEdit)
		} else {
			d.sessions.Set(userID, session.AwaitingEdit(id))
			resp = textResponse(promptEdit(id))
		}
	}
	resp.EditOriginal = true
	return resp
}

func (d *Dispatcher) balance(ctx context.Context, userID int64) Response {
	b, err := d.reporter.Balance(ctx, userID)
	if err != nil {
		return d.failure(ctx, userID, log.OpRead, err, msgFailure)
	}
	return menuResponse(balanceText(b))
}

func (d *Dispatcher) history(ctx context.Context, userID int64) Response {
	records, err := d.ledger.History(ctx, userID)
	if err != nil {
		return d.failure(ctx, userID, log.OpList, err, msgFailure)
	}
	if len(records) == 0 {
		return menuResponse(msgEmptyHistory)
	}

	buttons := make([][]Button, 0, len(records))
	for _, r := range records {
		buttons = append(buttons, []Button{
			{Text: "🗑 Delete " + strconv.FormatInt(r.ID, 10), Data: EncodeCallback(CallbackDelete, r.ID)},
			{Text: "✏️ Edit " + strconv.FormatInt(r.ID, 10), Data: EncodeCallback(CallbackEdit, r.ID)},
		})
	}
	return Response{Text: historyText(records), Buttons: buttons}
}

func (d *Dispatcher) report(ctx context.Context, userID int64) Response {
	month := core.MonthOf(d.now())

	rep, err := d.reporter.MonthlyReport(ctx, userID, month)
	if errors.Is(err, core.ErrNoActivity) {
		return menuResponse(reportTitle(month) + "\n" + msgNoOperations)
	}
	if err != nil {
		return d.failure(ctx, userID, log.OpRead, err, msgFailure)
	}

	lines := []string{reportTitle(month)}
	var charts []Chart
	if len(rep.Expense) > 0 {
		charts = append(charts, newChart("Expenses by day ("+month.String()+")", rep.Expense))
	} else {
		lines = append(lines, msgNoExpenses)
	}
	if len(rep.Income) > 0 {
		charts = append(charts, newChart("Income by day ("+month.String()+")", rep.Income))
	} else {
		lines = append(lines, msgNoIncome)
	}

	return Response{Text: strings.Join(lines, "\n"), Charts: charts, Menu: true}
}

func newChart(title string, series []core.DailyAmount) Chart {
	c := Chart{
		Title:  title,
		Dates:  make([]string, 0, len(series)),
		Values: make([]float64, 0, len(series)),
	}
	for _, p := range series {
		c.Dates = append(c.Dates, p.Date.String())
		c.Values = append(c.Values, p.Amount.Float())
	}
	return c
}

// failure maps a ledger error to the text shown to the user. forbidden is the
// text used when the record belongs to someone else.
func (d *Dispatcher) failure(ctx context.Context, userID int64, op string, err error, forbidden string) Response {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return textResponse(msgNotFound)
	case errors.Is(err, core.ErrForbidden):
		return textResponse(forbidden)
	case errors.Is(err, core.ErrCategoryTooLong):
		return textResponse(msgCategoryLong)
	}

	slog.ErrorContext(ctx, "Ledger operation failed",
		log.FieldComponent, log.ComponentBot,
		log.FieldOperation, op,
		log.FieldUserID, userID,
		log.FieldError, err)
	return textResponse(msgFailure)
}
