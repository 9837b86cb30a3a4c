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

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Category struct {
	ID        int64
	UserID    string
	Name      string
	CreatedAt string
}

type TransactionRow struct {
	ID              string
	UserID          string
	Amount          string
	Type            string
	CategoryID      sql.NullInt64
	Description     sql.NullString
	TransactionDate string
	CreatedAt       string
	CategoryName    sql.NullString
}

type Asset struct {
	ID           string
	UserID       string
	Name         string
	Type         string
	CurrentValue string
	LastUpdated  string
}

const findCategoryByName = `
SELECT id, user_id, name, created_at
FROM categories
WHERE user_id = ? AND name_key = ?
ORDER BY id
LIMIT 1
`

func (q *Queries) FindCategoryByName(ctx context.Context, userID, nameKey string) (Category, error) {
	row := q.db.QueryRowContext(ctx, findCategoryByName, userID, nameKey)
	var c Category
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt)
	return c, err
}

const createCategory = `
INSERT INTO categories (user_id, name, name_key, created_at)
VALUES (?, ?, ?, ?)
RETURNING id, user_id, name, created_at
`

type CreateCategoryParams struct {
	UserID    string
	Name      string
	NameKey   string
	CreatedAt string
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	row := q.db.QueryRowContext(ctx, createCategory, arg.UserID, arg.Name, arg.NameKey, arg.CreatedAt)
	var c Category
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt)
	return c, err
}

const createTransaction = `
INSERT INTO transactions (id, user_id, amount, type, category_id, description, transaction_date, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateTransactionParams struct {
	ID              string
	UserID          string
	Amount          string
	Type            string
	CategoryID      sql.NullInt64
	Description     sql.NullString
	TransactionDate string
	CreatedAt       string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		arg.ID,
		arg.UserID,
		arg.Amount,
		arg.Type,
		arg.CategoryID,
		arg.Description,
		arg.TransactionDate,
		arg.CreatedAt,
	)
	return err
}

const transactionColumns = `
SELECT t.id, t.user_id, t.amount, t.type, t.category_id, t.description,
       t.transaction_date, t.created_at, c.name
FROM transactions t
LEFT JOIN categories c ON c.id = t.category_id
`

const getTransaction = transactionColumns + `
WHERE t.user_id = ? AND t.id = ?
`

func (q *Queries) GetTransaction(ctx context.Context, userID, id string) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, userID, id)
	var t TransactionRow
	err := scanTransaction(row, &t)
	return t, err
}

// Equal dates keep insertion order.
const listRecentTransactions = transactionColumns + `
WHERE t.user_id = ?
ORDER BY t.transaction_date DESC, t.rowid ASC
LIMIT ?
`

func (q *Queries) ListRecentTransactions(ctx context.Context, userID string, limit int64) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listRecentTransactions, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []TransactionRow{}
	for rows.Next() {
		var t TransactionRow
		if err := scanTransaction(rows, &t); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listAssets = `
SELECT id, user_id, name, type, current_value, last_updated
FROM assets
WHERE user_id = ?
ORDER BY last_updated DESC, rowid ASC
`

func (q *Queries) ListAssets(ctx context.Context, userID string) ([]Asset, error) {
	rows, err := q.db.QueryContext(ctx, listAssets, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Asset{}
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.CurrentValue, &a.LastUpdated); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// The WHERE clause stops one user from overwriting another's asset id.
const upsertAsset = `
INSERT INTO assets (id, user_id, name, type, current_value, last_updated)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    name = excluded.name,
    type = excluded.type,
    current_value = excluded.current_value,
    last_updated = excluded.last_updated
WHERE assets.user_id = excluded.user_id
`

func (q *Queries) UpsertAsset(ctx context.Context, arg Asset) (int64, error) {
	res, err := q.db.ExecContext(ctx, upsertAsset,
		arg.ID,
		arg.UserID,
		arg.Name,
		arg.Type,
		arg.CurrentValue,
		arg.LastUpdated,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(s scanner, t *TransactionRow) error {
	return s.Scan(
		&t.ID,
		&t.UserID,
		&t.Amount,
		&t.Type,
		&t.CategoryID,
		&t.Description,
		&t.TransactionDate,
		&t.CreatedAt,
		&t.CategoryName,
	)
}
