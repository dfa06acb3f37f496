package models

import (
	"strings"
	"time"

	apperrors "trade-journal/internal/errors"
)

// DateLayout is the ISO calendar-date layout used for trade dates.
const DateLayout = "2006-01-02"

// Trade represents one logged trade.
type Trade struct {
	ID        string      `json:"id" yaml:"id"`
	UserID    string      `json:"user_id" yaml:"user_id"`
	AccountID string      `json:"account_id" yaml:"account_id"`
	Mode      AccountMode `json:"mode" yaml:"mode"`

	Date      time.Time `json:"date" yaml:"date"`
	Time      string    `json:"time,omitempty" yaml:"time,omitempty"` // HH:MM
	Market    string    `json:"market" yaml:"market"`
	Direction Direction `json:"direction" yaml:"direction"`

	Outcome       Outcome `json:"outcome" yaml:"outcome"`
	BreakEven     bool    `json:"break_even" yaml:"break_even"`
	BEFinalResult Outcome `json:"be_final_result,omitempty" yaml:"be_final_result,omitempty"`
	Executed      *bool   `json:"executed,omitempty" yaml:"executed,omitempty"` // nil means executed
	PartialsTaken bool    `json:"partials_taken" yaml:"partials_taken"`

	RiskPerTrade        float64 `json:"risk_per_trade" yaml:"risk_per_trade"` // percent
	RiskReward          float64 `json:"risk_reward" yaml:"risk_reward"`
	PotentialRiskReward float64 `json:"potential_risk_reward" yaml:"potential_risk_reward"`
	StopLossSize        float64 `json:"stop_loss_size" yaml:"stop_loss_size"`
	CalculatedProfit    float64 `json:"calculated_profit" yaml:"calculated_profit"`
	PnLPercent          float64 `json:"pnl_percent" yaml:"pnl_percent"`

	NewsRelated   bool   `json:"news_related" yaml:"news_related"`
	NewsName      string `json:"news_name,omitempty" yaml:"news_name,omitempty"`
	NewsIntensity int    `json:"news_intensity,omitempty" yaml:"news_intensity,omitempty"` // 1-3

	LocalHighLow  bool   `json:"local_high_low" yaml:"local_high_low"`
	SetupType     string `json:"setup_type,omitempty" yaml:"setup_type,omitempty"`
	LiquidityType string `json:"liquidity_type,omitempty" yaml:"liquidity_type,omitempty"`
	StrategyID    string `json:"strategy_id,omitempty" yaml:"strategy_id,omitempty"`
	Notes         string `json:"notes,omitempty" yaml:"notes,omitempty"`
	Evaluation    Grade  `json:"evaluation,omitempty" yaml:"evaluation,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// IsExecuted reports whether the trade was actually taken.
func (t Trade) IsExecuted() bool {
	return t.Executed == nil || *t.Executed
}

// IsBreakEven reports whether the trade is tracked as break-even.
func (t Trade) IsBreakEven() bool {
	return t.BreakEven || t.Outcome == OutcomeBE
}

// IsPureBreakEven reports whether the trade is break-even with no partials,
// i.e. contributes nothing to profit figures.
func (t Trade) IsPureBreakEven() bool {
	return t.IsBreakEven() && !t.PartialsTaken
}

// Day returns the trade date truncated to midnight in its own location.
func (t Trade) Day() time.Time {
	y, m, d := t.Date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Date.Location())
}

// DateKey returns the ISO calendar date of the trade.
func (t Trade) DateKey() string {
	return t.Date.Format(DateLayout)
}

// Normalize applies the persistence invariants: break-even trades carry no
// profit and a BE outcome always sets the break-even flag.
func (t *Trade) Normalize() {
	t.Market = strings.TrimSpace(t.Market)
	t.NewsName = strings.TrimSpace(t.NewsName)
	if t.Outcome == OutcomeBE {
		t.BreakEven = true
	}
	if t.BreakEven {
		t.CalculatedProfit = 0
	}
	if !t.NewsRelated {
		t.NewsName = ""
		t.NewsIntensity = 0
	}
}

// Validate checks the rules enforced at the entry boundary.
func (t Trade) Validate() error {
	if t.Date.IsZero() {
		return apperrors.NewValidationError("date", t.Date, "date is required")
	}
	if strings.TrimSpace(t.Market) == "" {
		return apperrors.NewValidationError("market", t.Market, "market is required")
	}
	if t.Direction != DirectionLong && t.Direction != DirectionShort {
		return apperrors.NewValidationError("direction", t.Direction, "must be Long or Short")
	}
	switch t.Outcome {
	case OutcomeWin, OutcomeLose, OutcomeBE:
	default:
		return apperrors.NewValidationError("outcome", t.Outcome, "must be Win, Lose or BE")
	}
	if t.BEFinalResult != "" && !t.BEFinalResult.IsWinOrLoss() {
		return apperrors.NewValidationError("be_final_result", t.BEFinalResult, "must be Win or Lose")
	}
	if t.Time != "" {
		if _, err := time.Parse("15:04", t.Time); err != nil {
			return apperrors.NewValidationError("time", t.Time, "must be HH:MM")
		}
	}
	if t.RiskPerTrade < 0 {
		return apperrors.NewValidationError("risk_per_trade", t.RiskPerTrade, "must be non-negative")
	}
	if t.NewsRelated && (t.NewsIntensity < 1 || t.NewsIntensity > 3) {
		return apperrors.NewValidationError("news_intensity", t.NewsIntensity, "must be between 1 and 3")
	}
	if t.Evaluation != "" {
		if _, ok := ParseGrade(string(t.Evaluation)); !ok {
			return apperrors.NewValidationError("evaluation", t.Evaluation, "must be A+, A, B or C")
		}
	}
	return nil
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}
