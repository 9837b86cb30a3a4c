package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"ledgerlens/internal/core"
	"ledgerlens/internal/log"
	"ledgerlens/internal/store"
)

// DefaultRecentLimit is how many transactions a snapshot carries.
const DefaultRecentLimit = 50

// Reader is the read side of the Record Store used by the builder.
type Reader interface {
	store.TransactionReader
	store.AssetReader
}

// Builder fetches a user's rows and aggregates them into a snapshot.
type Builder struct {
	reader Reader
	limit  int
	now    func() time.Time
	logger *log.Logger
}

func NewBuilder(reader Reader, logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Builder{
		reader: reader,
		limit:  DefaultRecentLimit,
		now:    time.Now,
		logger: logger.WithComponent(log.ComponentDashboard),
	}
}

// WithRecentLimit sets how many recent transactions are fetched.
func (b *Builder) WithRecentLimit(n int) *Builder {
	if n > 0 {
		b.limit = n
	}
	return b
}

// WithClock overrides the time used to seed the cash-flow window.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Fetch reads the user's recent transactions and assets concurrently and
// aggregates them. A caller without identity gets the empty snapshot.
func (b *Builder) Fetch(ctx context.Context, userID string) (core.DashboardSnapshot, error) {
	if userID == "" {
		return core.EmptySnapshot(), nil
	}

	var (
		txs    []core.Transaction
		assets []core.Asset
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = b.reader.ListRecentTransactions(gctx, userID, b.limit)
		if err != nil {
			return fmt.Errorf("list recent transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		assets, err = b.reader.ListAssets(gctx, userID)
		if err != nil {
			return fmt.Errorf("list assets: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.DashboardSnapshot{}, err
	}

	return Aggregate(txs, assets, b.now()), nil
}

// Build is Fetch with failures collapsed to the empty snapshot. Failures
// are logged unless they look like an expected session problem.
func (b *Builder) Build(ctx context.Context, userID string) core.DashboardSnapshot {
	snapshot, err := b.Fetch(ctx, userID)
	if err == nil {
		return snapshot
	}

	if IsAuthIssue(err) {
		b.logger.DebugContext(ctx, "Dashboard snapshot skipped", log.FieldError, err.Error())
	} else {
		b.logger.ErrorContext(ctx, "Dashboard snapshot error",
			log.FieldError, err.Error(),
			log.FieldOperation, log.OpRead)
	}
	return core.EmptySnapshot()
}

// IsAuthIssue reports whether err reads like a missing or invalid session
// rather than a store fault.
func IsAuthIssue(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no suitable key") ||
		strings.Contains(msg, "jwt") ||
		strings.Contains(msg, "auth")
}
