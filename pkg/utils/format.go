// Package utils provides shared formatting and retry helpers.
package utils

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Placeholder is shown for undefined values such as NaN averages.
const Placeholder = "—"

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"INR": "₹",
}

// FormatCurrency formats an amount with thousands separators and the
// currency symbol (or code when no symbol is known).
func FormatCurrency(amount float64, currency string) string {
	d := decimal.NewFromFloat(amount).Round(2)
	negative := d.IsNegative()
	f, _ := d.Abs().Float64()

	body := humanize.FormatFloat("#,###.##", f)
	code := strings.ToUpper(strings.TrimSpace(currency))
	if sym, ok := currencySymbols[code]; ok {
		body = sym + body
	} else if code != "" {
		body = body + " " + code
	}
	if negative {
		return "-" + body
	}
	return body
}

// FormatPnL formats a P&L amount with an explicit sign.
func FormatPnL(amount float64, currency string) string {
	s := FormatCurrency(amount, currency)
	if amount > 0 {
		return "+" + s
	}
	return s
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	if math.IsNaN(value) {
		return Placeholder
	}
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatRate formats a 0-100 rate without a sign.
func FormatRate(value float64) string {
	if math.IsNaN(value) {
		return Placeholder
	}
	return fmt.Sprintf("%.1f%%", value)
}

// FormatDays formats an average day gap; NaN renders as the placeholder.
func FormatDays(days float64) string {
	if math.IsNaN(days) || math.IsInf(days, 0) {
		return Placeholder
	}
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%.1f days", days)
}

// FormatProfitFactor formats a profit factor, marking values above cap.
func FormatProfitFactor(pf, cap float64) string {
	if pf == 0 {
		return Placeholder
	}
	if cap > 0 && pf > cap {
		return fmt.Sprintf("%.2f (>%.0f)", pf, cap)
	}
	return fmt.Sprintf("%.2f", pf)
}

// FormatCount formats an integer with thousands separators.
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}
