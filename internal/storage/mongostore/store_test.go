package mongostore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"

	"ledgerlens/internal/core"
	"ledgerlens/internal/log"
	"ledgerlens/internal/store"
)

func TestTransactionDocConversion(t *testing.T) {
	catID := int64(7)
	desc := "weekly shop"
	in := store.NewTransaction{
		UserID:          "u1",
		Amount:          decimal.RequireFromString("24.10"),
		Type:            core.Expense,
		CategoryID:      &catID,
		Description:     &desc,
		TransactionDate: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
	}
	now := time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)

	doc, err := newTransactionDoc("tx-1", 3, in, now)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Amount.String() != "24.1" {
		t.Fatalf("decimal128 = %s", doc.Amount)
	}

	view := transactionView{
		transactionDoc: doc,
		Category:       []categoryDoc{{ID: catID, UserID: "u1", Name: "Groceries"}},
	}
	got, err := view.toCore()
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "tx-1" || got.Type != core.Expense || !got.Amount.Equal(in.Amount) {
		t.Fatalf("unexpected transaction %+v", got)
	}
	if got.Category == nil || *got.Category != "Groceries" {
		t.Fatalf("category = %v", got.Category)
	}
	if got.TransactionDate != "2024-03-09T00:00:00.000Z" || got.CreatedAt != "2024-03-10T18:00:00.000Z" {
		t.Fatalf("unexpected timestamps %q %q", got.TransactionDate, got.CreatedAt)
	}

	view.Category = nil
	got, _ = view.toCore()
	if got.Category != nil {
		t.Fatalf("missing lookup should leave category nil, got %q", *got.Category)
	}
}

func TestTransactionPipeline(t *testing.T) {
	withLimit := transactionPipeline(bson.M{"userId": "u1"}, 10)
	if len(withLimit) != 4 {
		t.Fatalf("expected match, sort, limit, lookup; got %d stages", len(withLimit))
	}
	if withLimit[2][0].Key != "$limit" || withLimit[3][0].Key != "$lookup" {
		t.Fatalf("unexpected stage order %v", withLimit)
	}

	unlimited := transactionPipeline(bson.M{"userId": "u1"}, 0)
	if len(unlimited) != 3 {
		t.Fatalf("non-positive limit should drop $limit, got %d stages", len(unlimited))
	}
}

func TestAssetDocConversion(t *testing.T) {
	a := core.Asset{ID: "a1", Name: "Brokerage", Type: "stocks", CurrentValue: decimal.RequireFromString("10500.75"), LastUpdated: "2024-01-01T00:00:00.000Z"}
	doc, err := newAssetDoc("u1", a)
	if err != nil {
		t.Fatal(err)
	}
	if doc.UserID != "u1" {
		t.Fatalf("user = %q", doc.UserID)
	}
	back, err := doc.toCore()
	if err != nil {
		t.Fatal(err)
	}
	if back.ID != a.ID || !back.CurrentValue.Equal(a.CurrentValue) || back.LastUpdated != a.LastUpdated {
		t.Fatalf("got %+v, want %+v", back, a)
	}
}

// TestStoreAgainstServer runs against a live server when MONGO_TEST_URI is set.
func TestStoreAgainstServer(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbName := "ledgerlens_test_" + uuid.NewString()[:8]
	s, err := Connect(ctx, uri, dbName, log.Discard())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer func() {
		_ = s.client.Database(dbName).Drop(context.Background())
		s.Close()
	}()

	first, err := s.InsertCategory(ctx, "u1", "Groceries")
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.FindCategoryByName(ctx, "u1", "GROCERIES")
	if err != nil || got.ID != first.ID {
		t.Fatalf("case-insensitive lookup = %+v, %v", got, err)
	}
	cafe, err := s.InsertCategory(ctx, "u1", "Café")
	if err != nil {
		t.Fatal(err)
	}
	if got, err := s.FindCategoryByName(ctx, "u1", "CAFÉ"); err != nil || got.ID != cafe.ID {
		t.Fatalf("non-ASCII lookup = %+v, %v", got, err)
	}
	if _, err := s.FindCategoryByName(ctx, "u2", "Groceries"); !errors.Is(err, store.ErrNoRows) {
		t.Fatalf("cross-user lookup error = %v", err)
	}

	tx, err := s.InsertTransaction(ctx, store.NewTransaction{
		UserID: "u1", Amount: decimal.NewFromInt(24), Type: core.Expense, CategoryID: &first.ID, TransactionDate: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if tx.Category == nil || *tx.Category != "Groceries" {
		t.Fatalf("joined category = %v", tx.Category)
	}

	list, err := s.ListRecentTransactions(ctx, "u1", 5)
	if err != nil || len(list) != 1 {
		t.Fatalf("list = %v, %v", list, err)
	}

	a, err := s.UpsertAsset(ctx, "u1", core.Asset{Name: "Cash", Type: "cash", CurrentValue: decimal.NewFromInt(10)})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpsertAsset(ctx, "u2", a); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("cross-user upsert error = %v", err)
	}
}
