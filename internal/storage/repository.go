// Package storage is the SQLite Record Store. The schema is managed by
// embedded golang-migrate migrations.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"ledgerlens/internal/core"
	"ledgerlens/internal/log"
	"ledgerlens/internal/store"

	_ "modernc.org/sqlite"
)

var _ store.RecordStore = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
	logger  *log.Logger
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
		logger:  log.New(log.DefaultConfig()).WithComponent(log.ComponentStorage),
	}
	repo.logger.Info("SQLite store ready", "path", dbPath, "schema_version", version)

	return repo, nil
}

// SetLogger replaces the repository's logger.
func (r *SQLiteRepository) SetLogger(logger *log.Logger) {
	if logger != nil {
		r.logger = logger.WithComponent(log.ComponentStorage)
	}
}

// WithClock overrides the time source used for created_at columns.
func (r *SQLiteRepository) WithClock(now func() time.Time) *SQLiteRepository {
	r.now = now
	return r
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// FindCategoryByName implements store.CategoryStore
func (r *SQLiteRepository) FindCategoryByName(ctx context.Context, userID, name string) (core.Category, error) {
	c, err := r.queries.FindCategoryByName(ctx, userID, core.CategoryKey(name))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, store.ErrNoRows
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("find category: %w", err)
	}
	return toCategory(c), nil
}

// InsertCategory implements store.CategoryStore
func (r *SQLiteRepository) InsertCategory(ctx context.Context, userID, name string) (core.Category, error) {
	c, err := r.queries.CreateCategory(ctx, CreateCategoryParams{
		UserID:    userID,
		Name:      name,
		NameKey:   core.CategoryKey(name),
		CreatedAt: core.FormatTimestamp(r.now()),
	})
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return toCategory(c), nil
}

// InsertTransaction implements store.TransactionWriter
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t store.NewTransaction) (core.Transaction, error) {
	id := uuid.NewString()
	params := CreateTransactionParams{
		ID:              id,
		UserID:          t.UserID,
		Amount:          t.Amount.String(),
		Type:            t.Type.String(),
		TransactionDate: core.FormatTimestamp(t.TransactionDate),
		CreatedAt:       core.FormatTimestamp(r.now()),
	}
	if t.CategoryID != nil {
		params.CategoryID = sql.NullInt64{Int64: *t.CategoryID, Valid: true}
	}
	if t.Description != nil {
		params.Description = sql.NullString{String: *t.Description, Valid: true}
	}

	if err := r.queries.CreateTransaction(ctx, params); err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	r.logger.DebugContext(ctx, "Transaction saved to SQLite",
		log.FieldTransactionID, id,
		log.FieldType, params.Type,
		log.FieldAmount, params.Amount)

	return r.GetTransaction(ctx, t.UserID, id)
}

// GetTransaction implements store.TransactionReader
func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, userID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, store.ErrNoRows
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return toTransaction(row)
}

// ListRecentTransactions implements store.TransactionReader
func (r *SQLiteRepository) ListRecentTransactions(ctx context.Context, userID string, limit int) ([]core.Transaction, error) {
	n := int64(limit)
	if n <= 0 {
		n = -1
	}
	rows, err := r.queries.ListRecentTransactions(ctx, userID, n)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := toTransaction(row)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

// ListAssets implements store.AssetReader
func (r *SQLiteRepository) ListAssets(ctx context.Context, userID string) ([]core.Asset, error) {
	rows, err := r.queries.ListAssets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	out := make([]core.Asset, 0, len(rows))
	for _, row := range rows {
		a, err := toAsset(row)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// UpsertAsset implements store.AssetWriter
func (r *SQLiteRepository) UpsertAsset(ctx context.Context, userID string, a core.Asset) (core.Asset, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.LastUpdated == "" {
		a.LastUpdated = core.FormatTimestamp(r.now())
	}
	n, err := r.queries.UpsertAsset(ctx, Asset{
		ID:           a.ID,
		UserID:       userID,
		Name:         a.Name,
		Type:         a.Type,
		CurrentValue: a.CurrentValue.String(),
		LastUpdated:  a.LastUpdated,
	})
	if err != nil {
		return core.Asset{}, fmt.Errorf("upsert asset: %w", err)
	}
	if n == 0 {
		return core.Asset{}, store.ErrConflict
	}
	return a, nil
}

func toCategory(c Category) core.Category {
	created, _ := time.Parse(time.RFC3339Nano, c.CreatedAt)
	return core.Category{ID: c.ID, Name: c.Name, CreatedAt: created}
}

func toTransaction(row TransactionRow) (core.Transaction, error) {
	amount, err := core.ParseStoredAmount(row.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: bad amount %q: %w", row.ID, row.Amount, err)
	}
	tx := core.Transaction{
		ID:              row.ID,
		Amount:          amount,
		Type:            core.TransactionType(row.Type),
		TransactionDate: row.TransactionDate,
		CreatedAt:       row.CreatedAt,
	}
	if row.CategoryName.Valid {
		name := row.CategoryName.String
		tx.Category = &name
	}
	if row.Description.Valid {
		desc := row.Description.String
		tx.Description = &desc
	}
	return tx, nil
}

func toAsset(row Asset) (core.Asset, error) {
	value, err := core.ParseStoredAmount(row.CurrentValue)
	if err != nil {
		return core.Asset{}, fmt.Errorf("asset %s: bad value %q: %w", row.ID, row.CurrentValue, err)
	}
	return core.Asset{
		ID:           row.ID,
		Name:         row.Name,
		Type:         row.Type,
		CurrentValue: value,
		LastUpdated:  row.LastUpdated,
	}, nil
}
