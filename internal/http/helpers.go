package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"ledgerlens/internal/core"
)

const maxBodyBytes = 1 << 20

var hundred = decimal.NewFromInt(100)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// sanitizeInput trims s and drops control characters other than tab and
// newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// parseLimit reads a positive integer query parameter, falling back to def
// and capping at max.
func parseLimit(r *http.Request, def, max int) int {
	v := strings.TrimSpace(r.URL.Query().Get("limit"))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// formatUSD renders d as US dollars with thousands separators, e.g.
// "$1,234.50" or "-$12.00".
func formatUSD(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)

	whole, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}

	out := "$" + b.String() + "." + frac
	if neg {
		return "-" + out
	}
	return out
}

// barWidth returns v as a percentage of max. Non-zero values get at least
// 2 so they stay visible.
func barWidth(v, max decimal.Decimal) int {
	if !max.IsPositive() || !v.IsPositive() {
		return 0
	}
	pct := int(v.Mul(hundred).Div(max).Round(0).IntPart())
	switch {
	case pct < 2:
		return 2
	case pct > 100:
		return 100
	}
	return pct
}

// formatDate renders a stored timestamp as "Jan 2, 2006".
func formatDate(value string) string {
	t, ok := core.ParseTransactionDate(value)
	if !ok {
		return "Unknown date"
	}
	return t.UTC().Format("Jan 2, 2006")
}
