package dashboard

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ledgerlens/internal/core"
)

func tx(typ core.TransactionType, amount string, category *string, date string) core.Transaction {
	return core.Transaction{
		ID:              "id-" + amount,
		Amount:          decimal.RequireFromString(amount),
		Type:            typ,
		Category:        category,
		TransactionDate: date,
	}
}

var food = core.StringPtr("Food")

func TestTotalsNetIsIncomeMinusExpense(t *testing.T) {
	cases := [][]core.Transaction{
		nil,
		{tx(core.Income, "100", nil, "2024-01-01")},
		{tx(core.Expense, "0.1", nil, "2024-01-01"), tx(core.Expense, "0.2", nil, "2024-01-01")},
		{
			tx(core.Income, "2500.55", nil, "2024-01-01"),
			tx(core.Expense, "19.99", food, "2024-01-02"),
			tx(core.Expense, "1000.01", nil, "bad"),
			tx(core.Income, "0.45", nil, "2024-01-03"),
		},
	}
	for i, txs := range cases {
		got := Totals(txs)
		if !got.Net.Equal(got.Income.Sub(got.Expense)) {
			t.Fatalf("case %d: net %s != %s - %s", i, got.Net, got.Income, got.Expense)
		}
	}

	got := Totals(cases[2])
	if !got.Expense.Equal(decimal.RequireFromString("0.3")) {
		t.Fatalf("decimal sums must be exact, got %s", got.Expense)
	}
}

func TestCashFlowAlwaysHasTrailingSixMonths(t *testing.T) {
	now := time.Date(2024, 2, 15, 12, 0, 0, 0, time.UTC)
	got := CashFlow(nil, now)
	want := []string{"Sep 2023", "Oct 2023", "Nov 2023", "Dec 2023", "Jan 2024", "Feb 2024"}
	if len(got) != len(want) {
		t.Fatalf("expected %d buckets, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].Month != w {
			t.Fatalf("bucket %d = %q, want %q", i, got[i].Month, w)
		}
		if !got[i].Income.IsZero() || !got[i].Expense.IsZero() || !got[i].Net.IsZero() {
			t.Fatalf("bucket %d should be zero: %+v", i, got[i])
		}
	}
}

func TestCashFlowAccumulatesAndAddsOutOfWindowBuckets(t *testing.T) {
	now := time.Date(2024, 6, 30, 23, 0, 0, 0, time.UTC)
	txs := []core.Transaction{
		tx(core.Income, "1000", nil, "2024-06-01T08:00:00Z"),
		tx(core.Expense, "250.5", food, "2024-06-10"),
		tx(core.Expense, "40", nil, "2024-03-05"),
		tx(core.Income, "70", nil, "2022-11-20"),                  // older than the window
		tx(core.Expense, "5", nil, "2024-09-01"),                  // future month
		tx(core.Expense, "999", nil, "2024-05-31T23:30:00-02:00"), // June in UTC
	}
	got := CashFlow(txs, now)

	labels := make([]string, len(got))
	for i, d := range got {
		labels[i] = d.Month
	}
	want := []string{"Nov 2022", "Jan 2024", "Feb 2024", "Mar 2024", "Apr 2024", "May 2024", "Jun 2024", "Sep 2024"}
	if len(labels) != len(want) {
		t.Fatalf("labels = %v, want %v", labels, want)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("labels = %v, want %v", labels, want)
		}
	}

	june := got[6]
	if !june.Income.Equal(decimal.NewFromInt(1000)) ||
		!june.Expense.Equal(decimal.RequireFromString("1249.5")) ||
		!june.Net.Equal(decimal.RequireFromString("-249.5")) {
		t.Fatalf("unexpected June bucket %+v", june)
	}
	if !got[0].Net.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("unexpected Nov 2022 bucket %+v", got[0])
	}
	if !got[3].Expense.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("unexpected Mar 2024 bucket %+v", got[3])
	}
}

func TestCashFlowSortsAcrossYearsByCalendarMonth(t *testing.T) {
	now := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	got := CashFlow(nil, now)
	// Label order would put Jan 2024 before Nov 2023.
	if got[0].Month != "Aug 2023" || got[4].Month != "Dec 2023" || got[5].Month != "Jan 2024" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestSpendingByCategory(t *testing.T) {
	txs := []core.Transaction{
		tx(core.Expense, "50", food, "2024-01-01"),
		tx(core.Expense, "30", food, "2024-01-02"),
		tx(core.Expense, "20", nil, "2024-01-03"),
		tx(core.Income, "500", food, "2024-01-03"),
	}
	got := SpendingByCategory(txs)
	if len(got) != 2 {
		t.Fatalf("expected 2 categories, got %+v", got)
	}
	if got[0].Category != "Food" || !got[0].Amount.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("first = %+v, want Food 80", got[0])
	}
	if got[1].Category != "Uncategorized" || !got[1].Amount.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("second = %+v, want Uncategorized 20", got[1])
	}
}

func TestSpendingByCategoryTiesKeepFirstSeenOrder(t *testing.T) {
	txs := []core.Transaction{
		tx(core.Expense, "10", core.StringPtr("Travel"), "2024-01-01"),
		tx(core.Expense, "25", core.StringPtr("Rent"), "2024-01-01"),
		tx(core.Expense, "10", core.StringPtr("Books"), "2024-01-01"),
		tx(core.Expense, "10", nil, "2024-01-01"),
	}
	for i := 0; i < 20; i++ {
		got := SpendingByCategory(txs)
		order := []string{got[0].Category, got[1].Category, got[2].Category, got[3].Category}
		want := []string{"Rent", "Travel", "Books", "Uncategorized"}
		for j := range want {
			if order[j] != want[j] {
				t.Fatalf("order = %v, want %v", order, want)
			}
		}
	}
}

func TestUnparsableDateCountsInTotalsOnly(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	txs := []core.Transaction{
		tx(core.Expense, "12", nil, "sometime last week"),
		tx(core.Income, "30", nil, "2024-06-01"),
	}
	snap := Aggregate(txs, nil, now)

	if !snap.Totals.Expense.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("malformed-date expense missing from totals: %+v", snap.Totals)
	}
	if len(snap.CashFlow) != TrailingMonths {
		t.Fatalf("malformed date must not create a bucket, got %d", len(snap.CashFlow))
	}
	for _, d := range snap.CashFlow {
		if !d.Expense.IsZero() {
			t.Fatalf("malformed-date expense leaked into %s", d.Month)
		}
	}
	if !snap.CashFlow[TrailingMonths-1].Income.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected June income 30, got %+v", snap.CashFlow[TrailingMonths-1])
	}
	if len(snap.SpendingByCategory) != 1 {
		t.Fatalf("malformed-date expense still counts in category spend: %+v", snap.SpendingByCategory)
	}
	if snap.Assets == nil || len(snap.Assets) != 0 {
		t.Fatal("assets should be an empty, non-nil slice")
	}
}
