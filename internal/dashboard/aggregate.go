// Package dashboard computes the dashboard snapshot: totals, the trailing
// monthly cash-flow series and the category spend ranking.
package dashboard

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"ledgerlens/internal/core"
)

// TrailingMonths is the number of month buckets always present in the
// cash-flow series, ending with the current month.
const TrailingMonths = 6

const monthLabelLayout = "Jan 2006"

// Totals sums income and expense over txs. Net is kept equal to
// income minus expense after every element.
func Totals(txs []core.Transaction) core.Totals {
	t := core.Totals{Income: decimal.Zero, Expense: decimal.Zero, Net: decimal.Zero}
	for _, tx := range txs {
		if tx.Type == core.Income {
			t.Income = t.Income.Add(tx.Amount)
		} else {
			t.Expense = t.Expense.Add(tx.Amount)
		}
		t.Net = t.Income.Sub(t.Expense)
	}
	return t
}

type monthKey struct {
	year  int
	month time.Month
}

func (k monthKey) less(o monthKey) bool {
	if k.year != o.year {
		return k.year < o.year
	}
	return k.month < o.month
}

func keyOf(t time.Time) monthKey {
	t = t.UTC()
	return monthKey{year: t.Year(), month: t.Month()}
}

type bucket struct {
	key   monthKey
	datum core.CashFlowDatum
}

func newBucket(k monthKey) *bucket {
	first := time.Date(k.year, k.month, 1, 0, 0, 0, 0, time.UTC)
	return &bucket{
		key: k,
		datum: core.CashFlowDatum{
			Month:   first.Format(monthLabelLayout),
			Income:  decimal.Zero,
			Expense: decimal.Zero,
			Net:     decimal.Zero,
		},
	}
}

// CashFlow buckets txs by UTC calendar month.
//
// The current month of now and the five before it are always present.
// Transactions in other months get their own bucket. Transactions whose
// date cannot be parsed are left out of the series. The result is ordered
// by calendar month, oldest first.
func CashFlow(txs []core.Transaction, now time.Time) []core.CashFlowDatum {
	now = now.UTC()
	buckets := make(map[monthKey]*bucket, TrailingMonths)
	for offset := TrailingMonths - 1; offset >= 0; offset-- {
		seed := time.Date(now.Year(), now.Month()-time.Month(offset), 1, 0, 0, 0, 0, time.UTC)
		k := keyOf(seed)
		buckets[k] = newBucket(k)
	}

	for _, tx := range txs {
		date, ok := core.ParseTransactionDate(tx.TransactionDate)
		if !ok {
			continue
		}
		k := keyOf(date)
		b, found := buckets[k]
		if !found {
			b = newBucket(k)
			buckets[k] = b
		}
		if tx.Type == core.Income {
			b.datum.Income = b.datum.Income.Add(tx.Amount)
			b.datum.Net = b.datum.Net.Add(tx.Amount)
		} else {
			b.datum.Expense = b.datum.Expense.Add(tx.Amount)
			b.datum.Net = b.datum.Net.Sub(tx.Amount)
		}
	}

	ordered := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		ordered = append(ordered, b)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].key.less(ordered[j].key)
	})

	out := make([]core.CashFlowDatum, len(ordered))
	for i, b := range ordered {
		out[i] = b.datum
	}
	return out
}

// SpendingByCategory sums expense amounts per category, labelling
// uncategorized expenses with core.UncategorizedLabel. Categories are
// ordered by amount, largest first; equal amounts keep first-seen order.
func SpendingByCategory(txs []core.Transaction) []core.SpendingByCategoryDatum {
	index := make(map[string]int)
	out := make([]core.SpendingByCategoryDatum, 0)
	for _, tx := range txs {
		if tx.Type != core.Expense {
			continue
		}
		label := tx.CategoryLabel()
		i, ok := index[label]
		if !ok {
			i = len(out)
			index[label] = i
			out = append(out, core.SpendingByCategoryDatum{Category: label, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(tx.Amount)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	return out
}

// Aggregate assembles a snapshot from already fetched rows.
func Aggregate(txs []core.Transaction, assets []core.Asset, now time.Time) core.DashboardSnapshot {
	if txs == nil {
		txs = []core.Transaction{}
	}
	if assets == nil {
		assets = []core.Asset{}
	}
	return core.DashboardSnapshot{
		Totals:             Totals(txs),
		CashFlow:           CashFlow(txs, now),
		SpendingByCategory: SpendingByCategory(txs),
		Transactions:       txs,
		Assets:             assets,
	}
}
