package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"ledgerlens/internal/auth"
	"ledgerlens/internal/core"
)

type dashboardView struct {
	pageData
	Empty        bool
	Totals       totalsView
	CashFlow     []cashFlowRow
	Spending     []spendingRow
	Transactions []transactionRow
	Assets       []assetRow
}

type totalsView struct {
	Income      string
	Expense     string
	Net         string
	NetNegative bool
}

type cashFlowRow struct {
	Month        string
	Income       string
	Expense      string
	Net          string
	IncomeWidth  int
	ExpenseWidth int
}

type spendingRow struct {
	Category string
	Amount   string
	Width    int
}

type transactionRow struct {
	Title  string
	Meta   string
	Amount string
	Income bool
}

type assetRow struct {
	Name  string
	Meta  string
	Value string
}

func (s *Server) handleDashboardPage(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	snapshot := s.deps.Dashboard.Build(r.Context(), userID)

	view := newDashboardView(snapshot)
	view.pageData = pageData{Title: "Dashboard", Active: "dashboard", SignedIn: userID != ""}
	s.render(w, r, "dashboard.html", view)
}

// handleDashboardJSON always answers 200; anonymous callers and store
// failures get the empty snapshot.
func (s *Server) handleDashboardJSON(w http.ResponseWriter, r *http.Request) {
	snapshot := s.deps.Dashboard.Build(r.Context(), auth.UserID(r.Context()))
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, snapshot)
}

func newDashboardView(snap core.DashboardSnapshot) dashboardView {
	view := dashboardView{Empty: snap.IsEmpty()}
	if view.Empty {
		return view
	}

	view.Totals = totalsView{
		Income:      formatUSD(snap.Totals.Income),
		Expense:     formatUSD(snap.Totals.Expense),
		Net:         formatUSD(snap.Totals.Net),
		NetNegative: snap.Totals.Net.IsNegative(),
	}

	peak := decimal.Zero
	for _, d := range snap.CashFlow {
		peak = decimal.Max(peak, d.Income, d.Expense)
	}
	for _, d := range snap.CashFlow {
		view.CashFlow = append(view.CashFlow, cashFlowRow{
			Month:        d.Month,
			Income:       formatUSD(d.Income),
			Expense:      formatUSD(d.Expense),
			Net:          formatUSD(d.Net),
			IncomeWidth:  barWidth(d.Income, peak),
			ExpenseWidth: barWidth(d.Expense, peak),
		})
	}

	// Categories arrive sorted by amount, largest first.
	if len(snap.SpendingByCategory) > 0 {
		top := snap.SpendingByCategory[0].Amount
		for _, d := range snap.SpendingByCategory {
			view.Spending = append(view.Spending, spendingRow{
				Category: d.Category,
				Amount:   formatUSD(d.Amount),
				Width:    barWidth(d.Amount, top),
			})
		}
	}

	for _, tx := range snap.Transactions {
		view.Transactions = append(view.Transactions, newTransactionRow(tx))
	}
	for _, a := range snap.Assets {
		view.Assets = append(view.Assets, assetRow{
			Name:  a.Name,
			Meta:  a.Type + " · Updated " + formatDate(a.LastUpdated),
			Value: formatUSD(a.CurrentValue),
		})
	}
	return view
}

func newTransactionRow(tx core.Transaction) transactionRow {
	income := tx.Type == core.Income

	title := "Expense"
	if income {
		title = "Income"
	}
	if tx.Description != nil && *tx.Description != "" {
		title = *tx.Description
	}

	meta := formatDate(tx.TransactionDate)
	if tx.Category != nil {
		meta = *tx.Category + " · " + meta
	}

	sign := "-"
	if income {
		sign = "+"
	}

	return transactionRow{
		Title:  title,
		Meta:   meta,
		Amount: sign + formatUSD(tx.Amount),
		Income: income,
	}
}
