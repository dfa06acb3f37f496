package stats

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"trade-journal/internal/models"
)

// ProfitFactorDisplayCap bounds profit factor values on charts. The computed
// ratio itself is never capped.
const ProfitFactorDisplayCap = 5.0

// ComputeProfitFactor returns gross gains divided by the magnitude of gross
// losses over executed, non break-even trades. It returns 0 when there is no
// loss to divide by.
func ComputeProfitFactor(trades []models.Trade) float64 {
	gains, losses := grossProfitLoss(trades)
	if losses.IsZero() {
		return 0
	}
	pf, _ := gains.Div(losses).Float64()
	return pf
}

// DisplayProfitFactor caps pf for visualisation.
func DisplayProfitFactor(pf float64) float64 {
	return math.Min(pf, ProfitFactorDisplayCap)
}

// grossProfitLoss sums positive and (absolute) negative profit of executed,
// non break-even trades.
func grossProfitLoss(trades []models.Trade) (gains, losses decimal.Decimal) {
	gains, losses = decimal.Zero, decimal.Zero
	for _, t := range trades {
		if !t.IsExecuted() || t.IsBreakEven() {
			continue
		}
		p := decimal.NewFromFloat(t.CalculatedProfit)
		switch {
		case p.IsPositive():
			gains = gains.Add(p)
		case p.IsNegative():
			losses = losses.Add(p.Abs())
		}
	}
	return gains, losses
}

// ComputeAverageDaysBetweenTrades returns the mean gap in days between
// consecutive distinct trade dates. It returns NaN when fewer than two
// distinct dates exist. Trades are taken as given: filter first.
func ComputeAverageDaysBetweenTrades(trades []models.Trade) float64 {
	seen := make(map[string]bool)
	var days []time.Time
	for _, t := range trades {
		if t.Date.IsZero() {
			continue
		}
		key := t.DateKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		// Normalise to UTC midnight so DST shifts never produce fractional days.
		y, m, d := t.Date.Date()
		days = append(days, time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
	}
	if len(days) < 2 {
		return math.NaN()
	}

	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	var total float64
	for i := 1; i < len(days); i++ {
		total += days[i].Sub(days[i-1]).Hours() / 24
	}
	return total / float64(len(days)-1)
}
