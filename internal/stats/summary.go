package stats

import (
	"math"

	"github.com/shopspring/decimal"

	"trade-journal/internal/models"
)

// SummaryOptions tunes Summarize.
type SummaryOptions struct {
	BEResolution       BEResolution
	IncludeNonExecuted bool
	Scorer             Scorer // nil skips the quality index
	AccountBalance     float64
}

// Summary is the dashboard rollup of a trade list.
type Summary struct {
	TotalTrades   int     `json:"total_trades" yaml:"total_trades"`
	NonExecuted   int     `json:"non_executed" yaml:"non_executed"`
	Wins          int     `json:"wins" yaml:"wins"`
	Losses        int     `json:"losses" yaml:"losses"`
	BEWins        int     `json:"be_wins" yaml:"be_wins"`
	BELosses      int     `json:"be_losses" yaml:"be_losses"`
	BECount       int     `json:"be_count" yaml:"be_count"`
	WinRate       float64 `json:"win_rate" yaml:"win_rate"`
	WinRateWithBE float64 `json:"win_rate_with_be" yaml:"win_rate_with_be"`

	GrossProfit  float64 `json:"gross_profit" yaml:"gross_profit"`
	GrossLoss    float64 `json:"gross_loss" yaml:"gross_loss"`
	NetProfit    float64 `json:"net_profit" yaml:"net_profit"`
	NetPnLPct    float64 `json:"net_pnl_percent" yaml:"net_pnl_percent"`
	ReturnPct    float64 `json:"return_percent" yaml:"return_percent"`
	ProfitFactor float64 `json:"profit_factor" yaml:"profit_factor"`

	AverageRiskReward float64 `json:"average_risk_reward" yaml:"average_risk_reward"`
	AverageRisk       float64 `json:"average_risk" yaml:"average_risk"`
	// nil when fewer than two distinct trade dates exist
	AverageDaysBetween *float64 `json:"average_days_between_trades" yaml:"average_days_between_trades"`

	QualityScore *float64    `json:"quality_score,omitempty" yaml:"quality_score,omitempty"`
	QualityBand  QualityBand `json:"quality_band,omitempty" yaml:"quality_band,omitempty"`
}

// Summarize computes the summary of trades in a single pass plus the
// derived metrics.
func Summarize(trades []models.Trade, opts SummaryOptions) Summary {
	var s Summary

	considered := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if !t.IsExecuted() {
			s.NonExecuted++
			if !opts.IncludeNonExecuted {
				continue
			}
		}
		considered = append(considered, t)
	}

	all := AggregateByCategory(considered, func(models.Trade) string { return "all" }, AggregateOptions{
		IncludeNonExecuted: true,
		BEResolution:       opts.BEResolution,
	})
	if len(all) == 1 {
		row := all[0]
		s.Wins, s.Losses = row.Wins, row.Losses
		s.BEWins, s.BELosses = row.BEWins, row.BELosses
		s.WinRate, s.WinRateWithBE = row.WinRate, row.WinRateWithBE
	}
	s.TotalTrades = len(considered)

	net := decimal.Zero
	pnlPct := decimal.Zero
	var rrSum, riskSum float64
	var rrCount int
	for _, t := range considered {
		if t.IsBreakEven() {
			s.BECount++
		}
		if !t.IsPureBreakEven() {
			if !t.IsBreakEven() {
				net = net.Add(decimal.NewFromFloat(t.CalculatedProfit))
			}
			pnlPct = pnlPct.Add(decimal.NewFromFloat(t.PnLPercent))
		}
		if t.RiskReward != 0 {
			rrSum += t.RiskReward
			rrCount++
		}
		riskSum += t.RiskPerTrade
	}

	gains, losses := grossProfitLoss(withExecutedFlag(considered))
	s.GrossProfit, _ = gains.Float64()
	s.GrossLoss, _ = losses.Float64()
	s.NetProfit, _ = net.Float64()
	s.NetPnLPct, _ = pnlPct.Round(4).Float64()
	if opts.AccountBalance > 0 {
		s.ReturnPct, _ = net.Div(decimal.NewFromFloat(opts.AccountBalance)).Mul(decimal.NewFromInt(100)).Round(4).Float64()
	}
	if !losses.IsZero() {
		s.ProfitFactor, _ = gains.Div(losses).Float64()
	}
	if rrCount > 0 {
		s.AverageRiskReward = rrSum / float64(rrCount)
	}
	if len(considered) > 0 {
		s.AverageRisk = riskSum / float64(len(considered))
	}

	if avg := ComputeAverageDaysBetweenTrades(considered); !math.IsNaN(avg) {
		s.AverageDaysBetween = &avg
	}

	if opts.Scorer != nil {
		score := opts.Scorer.Score(withExecutedFlag(considered))
		s.QualityScore = &score
		s.QualityBand = TQIBand(score)
	}
	return s
}

// withExecutedFlag marks every trade executed so that helpers which skip
// non-executed trades honour an explicit include request.
func withExecutedFlag(trades []models.Trade) []models.Trade {
	out := make([]models.Trade, len(trades))
	for i, t := range trades {
		t.Executed = nil
		out[i] = t
	}
	return out
}
