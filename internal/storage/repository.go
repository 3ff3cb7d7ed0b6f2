package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/log"

	_ "modernc.org/sqlite"
)

var _ ledger.Store = (*SQLiteRepository)(nil)

// SQLiteRepository is the durable ledger table. Writes are serialized
// through writeMu; reads run concurrently.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	writeMu sync.Mutex
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

// WithClock overrides the clock used for default dates.
func (r *SQLiteRepository) WithClock(now func() time.Time) *SQLiteRepository {
	r.now = now
	return r
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Insert(ctx context.Context, rec core.Record) (int64, error) {
	if rec.OccurredOn.IsZero() {
		rec.OccurredOn = core.DateOf(r.now())
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	row, err := r.queries.CreateRecord(ctx, CreateRecordParams{
		UserID:      rec.UserID,
		Kind:        string(rec.Kind),
		AmountCents: rec.Amount.Cents,
		Category:    rec.Category,
		OccurredOn:  rec.OccurredOn.String(),
	})
	if err != nil {
		return 0, fmt.Errorf("create record: %w", err)
	}

	slog.DebugContext(ctx, "Record saved to SQLite",
		log.FieldComponent, log.ComponentStorage,
		log.FieldRecordID, row.ID,
		log.FieldUserID, row.UserID,
		log.FieldKind, row.Kind,
		log.FieldAmountCents, row.AmountCents)

	return row.ID, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (core.Record, error) {
	row, err := r.queries.GetRecord(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Record{}, core.ErrNotFound
	}
	if err != nil {
		return core.Record{}, fmt.Errorf("get record by id: %w", err)
	}
	return toCore(row)
}

func (r *SQLiteRepository) Update(ctx context.Context, id int64, amount core.Money, category string) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	n, err := r.queries.UpdateRecord(ctx, UpdateRecordParams{
		ID:          id,
		AmountCents: amount.Cents,
		Category:    category,
	})
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	n, err := r.queries.DeleteRecord(ctx, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListForUser(ctx context.Context, userID int64) ([]core.Record, error) {
	rows, err := r.queries.ListRecordsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list records by user: %w", err)
	}

	records := make([]core.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := toCore(row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *SQLiteRepository) Sum(ctx context.Context, userID int64, kind core.Kind) (core.Money, error) {
	total, err := r.queries.SumByKind(ctx, SumByKindParams{UserID: userID, Kind: string(kind)})
	if err != nil {
		return core.Money{}, fmt.Errorf("sum %s: %w", kind, err)
	}
	return core.Money{Cents: total}, nil
}

func (r *SQLiteRepository) DailySeries(ctx context.Context, userID int64, kind core.Kind, month core.Month) ([]core.DailyAmount, error) {
	rows, err := r.queries.DailySums(ctx, DailySumsParams{
		UserID: userID,
		Kind:   string(kind),
		Month:  month.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("daily sums %s %s: %w", kind, month, err)
	}

	series := make([]core.DailyAmount, 0, len(rows))
	for _, row := range rows {
		d, err := core.ParseDate(row.OccurredOn)
		if err != nil {
			return nil, fmt.Errorf("stored date: %w", err)
		}
		series = append(series, core.DailyAmount{Date: d, Amount: core.Money{Cents: row.TotalAmount}})
	}
	return series, nil
}

func toCore(row Record) (core.Record, error) {
	d, err := core.ParseDate(row.OccurredOn)
	if err != nil {
		return core.Record{}, fmt.Errorf("record %d: %w", row.ID, err)
	}
	return core.Record{
		ID:         row.ID,
		UserID:     row.UserID,
		Kind:       core.Kind(row.Kind),
		Amount:     core.Money{Cents: row.AmountCents},
		Category:   row.Category,
		OccurredOn: d,
	}, nil
}
