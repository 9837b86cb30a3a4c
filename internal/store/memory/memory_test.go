package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ledgerlens/internal/core"
	"ledgerlens/internal/store"
)

func TestCategoryLookupIsCaseInsensitiveAndScoped(t *testing.T) {
	ctx := context.Background()
	s := New()

	cat, err := s.InsertCategory(ctx, "u1", "Groceries")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := s.FindCategoryByName(ctx, "u1", "GROCERIES")
	if err != nil || got.ID != cat.ID {
		t.Fatalf("expected %d, got %+v (err=%v)", cat.ID, got, err)
	}
	if _, err := s.FindCategoryByName(ctx, "u2", "Groceries"); !errors.Is(err, store.ErrNoRows) {
		t.Fatalf("other user should not see the category, got %v", err)
	}
}

func TestTransactionsJoinCategoryAndSortByDate(t *testing.T) {
	ctx := context.Background()
	s := New()
	cat, _ := s.InsertCategory(ctx, "u1", "Food")

	dates := []time.Time{
		time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
	}
	for i, d := range dates {
		nt := store.NewTransaction{UserID: "u1", Amount: decimal.NewFromInt(int64(i + 1)), Type: core.Expense, TransactionDate: d}
		if i == 0 {
			nt.CategoryID = &cat.ID
		}
		if _, err := s.InsertTransaction(ctx, nt); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	if _, err := s.InsertTransaction(ctx, store.NewTransaction{UserID: "u2", Amount: decimal.NewFromInt(9), Type: core.Income, TransactionDate: dates[0]}); err != nil {
		t.Fatalf("insert other user: %v", err)
	}

	txs, err := s.ListRecentTransactions(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(txs))
	}
	if !txs[0].Amount.Equal(decimal.NewFromInt(2)) || !txs[1].Amount.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("unexpected order: %v, %v", txs[0].Amount, txs[1].Amount)
	}

	all, _ := s.ListRecentTransactions(ctx, "u1", 0)
	last := all[len(all)-1]
	if last.Category == nil || *last.Category != "Food" {
		t.Fatalf("expected joined category Food, got %v", last.Category)
	}

	got, err := s.GetTransaction(ctx, "u1", last.ID)
	if err != nil || got.ID != last.ID {
		t.Fatalf("get: %+v err=%v", got, err)
	}
	if _, err := s.GetTransaction(ctx, "u2", last.ID); !errors.Is(err, store.ErrNoRows) {
		t.Fatalf("expected ErrNoRows across users, got %v", err)
	}
}

func TestUpsertAsset(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := New().WithClock(func() time.Time { return now })

	a, err := s.UpsertAsset(ctx, "u1", core.Asset{Name: "Savings", Type: "cash", CurrentValue: decimal.NewFromInt(100)})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if a.ID == "" || a.LastUpdated != "2024-05-01T12:00:00.000Z" {
		t.Fatalf("unexpected asset %+v", a)
	}

	a.CurrentValue = decimal.NewFromInt(150)
	a.LastUpdated = ""
	now = now.Add(time.Hour)
	if _, err := s.UpsertAsset(ctx, "u1", a); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := s.UpsertAsset(ctx, "u1", core.Asset{Name: "Brokerage", Type: "stocks", CurrentValue: decimal.NewFromInt(5), LastUpdated: "2024-04-01T00:00:00.000Z"}); err != nil {
		t.Fatalf("insert second: %v", err)
	}

	assets, _ := s.ListAssets(ctx, "u1")
	if len(assets) != 2 {
		t.Fatalf("expected 2 assets, got %d", len(assets))
	}
	if assets[0].Name != "Savings" || !assets[0].CurrentValue.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected updated Savings first, got %+v", assets[0])
	}
	if others, _ := s.ListAssets(ctx, "u2"); len(others) != 0 {
		t.Fatalf("assets leaked across users: %v", others)
	}
	if _, err := s.UpsertAsset(ctx, "u2", a); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("cross-user upsert error = %v, want ErrConflict", err)
	}
}
