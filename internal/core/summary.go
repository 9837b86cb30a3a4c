package core

import "github.com/shopspring/decimal"

// Totals holds the running income and expense sums for a snapshot.
type Totals struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
}

// CashFlowDatum is one calendar-month bucket of the cash-flow series.
type CashFlowDatum struct {
	Month   string          `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
}

// SpendingByCategoryDatum is the summed expense amount for one category.
type SpendingByCategoryDatum struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// DashboardSnapshot is the complete dashboard data for one request.
type DashboardSnapshot struct {
	Totals             Totals                    `json:"totals"`
	CashFlow           []CashFlowDatum           `json:"cashFlow"`
	SpendingByCategory []SpendingByCategoryDatum `json:"spendingByCategory"`
	Transactions       []Transaction             `json:"transactions"`
	Assets             []Asset                   `json:"assets"`
}

// EmptySnapshot returns the canonical empty snapshot: zero totals and empty
// sequences.
func EmptySnapshot() DashboardSnapshot {
	return DashboardSnapshot{
		Totals:             Totals{Income: decimal.Zero, Expense: decimal.Zero, Net: decimal.Zero},
		CashFlow:           []CashFlowDatum{},
		SpendingByCategory: []SpendingByCategoryDatum{},
		Transactions:       []Transaction{},
		Assets:             []Asset{},
	}
}

// IsEmpty reports whether the snapshot carries no transactions and no assets.
func (s DashboardSnapshot) IsEmpty() bool {
	return len(s.Transactions) == 0 && len(s.Assets) == 0
}
