package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

func init() {
	// Amounts travel to the browser and the model as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// UncategorizedLabel is shown for expenses without a category.
const UncategorizedLabel = "Uncategorized"

type (
	TransactionType string

	Transaction struct {
		ID              string          `json:"id"`
		Amount          decimal.Decimal `json:"amount"`
		Type            TransactionType `json:"type"`
		Category        *string         `json:"category"`
		Description     *string         `json:"description"`
		TransactionDate string          `json:"transactionDate"`
		CreatedAt       string          `json:"createdAt"`
	}

	Category struct {
		ID        int64     `json:"id"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"createdAt"`
	}

	Asset struct {
		ID           string          `json:"id"`
		Name         string          `json:"name"`
		Type         string          `json:"type"`
		CurrentValue decimal.Decimal `json:"currentValue"`
		LastUpdated  string          `json:"lastUpdated"`
	}

	// TransactionRequest is the input of a single ingestion. Optional
	// string fields are empty when absent.
	TransactionRequest struct {
		UserID          string
		Amount          float64
		Type            TransactionType
		CategoryName    string
		Description     string
		TransactionDate string
	}
)

// Valid reports whether t is one of the two known transaction types.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (t TransactionType) String() string {
	return string(t)
}

// CategoryLabel returns the category display name or the uncategorized label.
func (t Transaction) CategoryLabel() string {
	if t.Category == nil {
		return UncategorizedLabel
	}
	return *t.Category
}

// CategoryKey is the lookup key for a category name: whitespace runs are
// collapsed and the result is Unicode case-folded, so "Café" and " CAFÉ "
// share a key. Every Record Store matches names on this key.
func CategoryKey(name string) string {
	return cases.Fold().String(strings.Join(strings.Fields(name), " "))
}

// StringPtr returns nil for a blank string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
