package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ledgerlens/internal/core"
	"ledgerlens/internal/store"
)

// Ingestor validates and persists one transaction at a time.
type Ingestor struct {
	resolver     *Resolver
	transactions store.TransactionWriter
	now          func() time.Time
}

func NewIngestor(resolver *Resolver, transactions store.TransactionWriter) *Ingestor {
	return &Ingestor{
		resolver:     resolver,
		transactions: transactions,
		now:          time.Now,
	}
}

// WithClock overrides the time used when the request carries no usable date.
func (i *Ingestor) WithClock(now func() time.Time) *Ingestor {
	i.now = now
	return i
}

// Ingest validates req, resolves its category and stores it.
//
// Validation failures return a *core.ValidationError before anything is
// written. A category may be created even if the transaction insert then
// fails; it is reused on the next call.
func (i *Ingestor) Ingest(ctx context.Context, req core.TransactionRequest) (core.Transaction, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return core.Transaction{}, core.ErrUnauthenticated
	}

	amount, err := core.AmountFromFloat(req.Amount)
	if err != nil {
		return core.Transaction{}, &core.ValidationError{Field: "amount", Err: err}
	}
	if !req.Type.Valid() {
		return core.Transaction{}, &core.ValidationError{Field: "type", Err: core.ErrInvalidType}
	}

	var (
		categoryID   *int64
		resolvedName *string
	)
	if strings.TrimSpace(req.CategoryName) != "" {
		cat, err := i.resolver.Resolve(ctx, req.UserID, req.CategoryName)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("resolve category: %w", err)
		}
		categoryID = &cat.ID
		resolvedName = &cat.Name
	}

	date, ok := core.ParseTransactionDate(req.TransactionDate)
	if !ok {
		date = i.now().UTC()
	}

	stored, err := i.transactions.InsertTransaction(ctx, store.NewTransaction{
		UserID:          req.UserID,
		Amount:          amount,
		Type:            req.Type,
		CategoryID:      categoryID,
		Description:     core.StringPtr(req.Description),
		TransactionDate: date,
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	// The store may not return the joined name right after the write.
	if stored.Category == nil {
		stored.Category = resolvedName
	}

	slog.InfoContext(ctx, "Transaction stored",
		"id", stored.ID,
		"type", stored.Type,
		"amount", stored.Amount.String(),
		"category", stored.CategoryLabel(),
		"transaction_date", stored.TransactionDate)

	return stored, nil
}
