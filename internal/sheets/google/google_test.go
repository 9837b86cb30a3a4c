package google

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"ledgerlens/internal/core"
)

func TestTransactionRow(t *testing.T) {
	desc := "Farmers market"
	tests := []struct {
		name string
		tx   core.Transaction
		want []any
	}{
		{
			name: "full row",
			tx: core.Transaction{
				ID:              "tx-1",
				Amount:          decimal.RequireFromString("24"),
				Type:            core.Expense,
				Category:        core.StringPtr("Groceries"),
				Description:     &desc,
				TransactionDate: "2024-05-20T09:15:00.000Z",
			},
			want: []any{"2024-05-20", "expense", "24.00", "Groceries", "Farmers market", "tx-1"},
		},
		{
			name: "uncategorized without description",
			tx: core.Transaction{
				ID:              "tx-2",
				Amount:          decimal.RequireFromString("1500.5"),
				Type:            core.Income,
				TransactionDate: "2024-01-01",
			},
			want: []any{"2024-01-01", "income", "1500.50", "Uncategorized", "", "tx-2"},
		},
		{
			name: "unparsable date is kept as is",
			tx: core.Transaction{
				ID:              "tx-3",
				Amount:          decimal.RequireFromString("3.333"),
				Type:            core.Expense,
				TransactionDate: "yesterday",
			},
			want: []any{"yesterday", "expense", "3.33", "Uncategorized", "", "tx-3"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := transactionRow(tt.tx)
			if len(got) != len(tt.want) {
				t.Fatalf("row = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("column %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSheetRange(t *testing.T) {
	tests := []struct {
		sheet string
		want  string
	}{
		{"Transactions", "Transactions!A:F"},
		{"2024 Ledger", "'2024 Ledger'!A:F"},
		{"Bob's", "'Bob''s'!A:F"},
	}
	for _, tt := range tests {
		if got := sheetRange(tt.sheet, "A:F"); got != tt.want {
			t.Errorf("sheetRange(%q) = %q, want %q", tt.sheet, got, tt.want)
		}
	}
}

func TestNewRequiresSpreadsheetAndCredentials(t *testing.T) {
	ctx := context.Background()
	if _, err := New(ctx, Options{}, nil); err == nil {
		t.Fatal("expected error without spreadsheet id")
	}
	if _, err := New(ctx, Options{SpreadsheetID: "abc"}, nil); err == nil {
		t.Fatal("expected error without credentials")
	}
	if _, err := New(ctx, Options{SpreadsheetID: "abc", CredentialsFile: "/nonexistent/sa.json"}, nil); err == nil {
		t.Fatal("expected error for unreadable credentials file")
	}
}

func TestAppendWithoutService(t *testing.T) {
	c := &Client{}
	if _, err := c.AppendTransaction(context.Background(), core.Transaction{}); err == nil {
		t.Fatal("expected error when service is not initialized")
	}
}
