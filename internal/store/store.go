// Package store declares the Record Store ports used by the ledger and the
// dashboard. Implementations live in storage (SQLite), storage/mongostore and
// store/memory.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"ledgerlens/internal/core"
)

// ErrNoRows is returned by lookups that match nothing. Callers treat it as
// absence, not as a failure.
var ErrNoRows = errors.New("store: no rows in result set")

// ErrConflict is returned when a write targets an id owned by another user.
var ErrConflict = errors.New("store: id belongs to another user")

// NewTransaction is the row written by the ingestor. All fields are already
// validated and normalized.
type NewTransaction struct {
	UserID          string
	Amount          decimal.Decimal
	Type            core.TransactionType
	CategoryID      *int64
	Description     *string
	TransactionDate time.Time
}

// Ports for outbound adapters. Every call is scoped to one user.
type (
	CategoryStore interface {
		// FindCategoryByName matches name case-insensitively. It returns
		// ErrNoRows when the user has no such category.
		FindCategoryByName(ctx context.Context, userID, name string) (core.Category, error)
		InsertCategory(ctx context.Context, userID, name string) (core.Category, error)
	}

	TransactionWriter interface {
		// InsertTransaction persists t and returns the stored row with its
		// id, created_at and joined category name.
		InsertTransaction(ctx context.Context, t NewTransaction) (core.Transaction, error)
	}

	TransactionReader interface {
		// ListRecentTransactions returns at most limit rows ordered by
		// transaction date, newest first.
		ListRecentTransactions(ctx context.Context, userID string, limit int) ([]core.Transaction, error)
		// GetTransaction returns ErrNoRows when id does not belong to userID.
		GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
	}

	AssetReader interface {
		// ListAssets returns every asset ordered by last update, newest first.
		ListAssets(ctx context.Context, userID string) ([]core.Asset, error)
	}

	AssetWriter interface {
		// UpsertAsset inserts a, or replaces the asset with the same id.
		UpsertAsset(ctx context.Context, userID string, a core.Asset) (core.Asset, error)
	}

	RecordStore interface {
		CategoryStore
		TransactionWriter
		TransactionReader
		AssetReader
		AssetWriter
		Ping(ctx context.Context) error
		Close() error
	}
)
