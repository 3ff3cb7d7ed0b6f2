package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds the SQL of the records table.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns queries bound to tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Record is a row of the records table.
type Record struct {
	ID          int64
	UserID      int64
	Kind        string
	AmountCents int64
	Category    string
	OccurredOn  string
}

type CreateRecordParams struct {
	UserID      int64
	Kind        string
	AmountCents int64
	Category    string
	OccurredOn  string
}

const createRecord = `
INSERT INTO records (user_id, kind, amount_cents, category, occurred_on)
VALUES (?, ?, ?, ?, ?)
RETURNING id, user_id, kind, amount_cents, category, occurred_on`

func (q *Queries) CreateRecord(ctx context.Context, arg CreateRecordParams) (Record, error) {
	row := q.db.QueryRowContext(ctx, createRecord,
		arg.UserID,
		arg.Kind,
		arg.AmountCents,
		arg.Category,
		arg.OccurredOn,
	)
	var i Record
	err := row.Scan(&i.ID, &i.UserID, &i.Kind, &i.AmountCents, &i.Category, &i.OccurredOn)
	return i, err
}

const getRecord = `
SELECT id, user_id, kind, amount_cents, category, occurred_on
FROM records
WHERE id = ?`

func (q *Queries) GetRecord(ctx context.Context, id int64) (Record, error) {
	row := q.db.QueryRowContext(ctx, getRecord, id)
	var i Record
	err := row.Scan(&i.ID, &i.UserID, &i.Kind, &i.AmountCents, &i.Category, &i.OccurredOn)
	return i, err
}

type UpdateRecordParams struct {
	ID          int64
	AmountCents int64
	Category    string
}

const updateRecord = `
UPDATE records
SET amount_cents = ?, category = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`

func (q *Queries) UpdateRecord(ctx context.Context, arg UpdateRecordParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateRecord, arg.AmountCents, arg.Category, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteRecord = `DELETE FROM records WHERE id = ?`

func (q *Queries) DeleteRecord(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteRecord, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listRecordsByUser = `
SELECT id, user_id, kind, amount_cents, category, occurred_on
FROM records
WHERE user_id = ?
ORDER BY occurred_on DESC, id DESC`

func (q *Queries) ListRecordsByUser(ctx context.Context, userID int64) ([]Record, error) {
	rows, err := q.db.QueryContext(ctx, listRecordsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Record
	for rows.Next() {
		var i Record
		if err := rows.Scan(&i.ID, &i.UserID, &i.Kind, &i.AmountCents, &i.Category, &i.OccurredOn); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type SumByKindParams struct {
	UserID int64
	Kind   string
}

const sumByKind = `
SELECT COALESCE(SUM(amount_cents), 0)
FROM records
WHERE user_id = ? AND kind = ?`

func (q *Queries) SumByKind(ctx context.Context, arg SumByKindParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, sumByKind, arg.UserID, arg.Kind)
	var total int64
	err := row.Scan(&total)
	return total, err
}

type DailySumsParams struct {
	UserID int64
	Kind   string
	Month  string // YYYY-MM
}

type DailySumsRow struct {
	OccurredOn  string
	TotalAmount int64
}

const dailySums = `
SELECT occurred_on, SUM(amount_cents) AS total_amount
FROM records
WHERE user_id = ? AND kind = ? AND substr(occurred_on, 1, 7) = ?
GROUP BY occurred_on
ORDER BY occurred_on`

func (q *Queries) DailySums(ctx context.Context, arg DailySumsParams) ([]DailySumsRow, error) {
	rows, err := q.db.QueryContext(ctx, dailySums, arg.UserID, arg.Kind, arg.Month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DailySumsRow
	for rows.Next() {
		var i DailySumsRow
		if err := rows.Scan(&i.OccurredOn, &i.TotalAmount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
