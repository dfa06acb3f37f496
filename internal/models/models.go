// Package models provides domain models for the trading journal.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction represents the side of a trade.
type Direction string

const (
	DirectionLong  Direction = "Long"
	DirectionShort Direction = "Short"
)

// Outcome represents the recorded result of a trade.
type Outcome string

const (
	OutcomeWin  Outcome = "Win"
	OutcomeLose Outcome = "Lose"
	OutcomeBE   Outcome = "BE"
)

// IsWinOrLoss reports whether the outcome attributes a trade to one side.
func (o Outcome) IsWinOrLoss() bool {
	return o == OutcomeWin || o == OutcomeLose
}

// Grade is the self-assessed evaluation of a trade.
type Grade string

const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeB     Grade = "B"
	GradeC     Grade = "C"
)

// AccountMode represents the kind of trading account.
type AccountMode string

const (
	ModeLive        AccountMode = "live"
	ModeDemo        AccountMode = "demo"
	ModeBacktesting AccountMode = "backtesting"
)

// ParseDirection parses a direction, accepting lower-case and L/S shorthand.
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "Long", "long", "LONG", "L", "l":
		return DirectionLong, true
	case "Short", "short", "SHORT", "S", "s":
		return DirectionShort, true
	}
	return "", false
}

// ParseOutcome parses an outcome, accepting the common spellings.
func ParseOutcome(s string) (Outcome, bool) {
	switch s {
	case "Win", "win", "WIN", "W":
		return OutcomeWin, true
	case "Lose", "lose", "LOSE", "Loss", "loss", "L":
		return OutcomeLose, true
	case "BE", "be", "Be", "BreakEven", "breakeven":
		return OutcomeBE, true
	}
	return "", false
}

// ParseGrade parses an evaluation grade.
func ParseGrade(s string) (Grade, bool) {
	switch Grade(s) {
	case GradeAPlus, GradeA, GradeB, GradeC:
		return Grade(s), true
	}
	return "", false
}

// ParseAccountMode parses an account mode.
func ParseAccountMode(s string) (AccountMode, bool) {
	switch AccountMode(s) {
	case ModeLive, ModeDemo, ModeBacktesting:
		return AccountMode(s), true
	}
	return "", false
}

// Strategy is a named grouping of trades owned by a user.
type Strategy struct {
	ID          string    `json:"id" yaml:"id"`
	UserID      string    `json:"user_id" yaml:"user_id"`
	AccountID   string    `json:"account_id" yaml:"account_id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Active      bool      `json:"active" yaml:"active"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// Archived reports whether the strategy is hidden from default views.
func (s Strategy) Archived() bool {
	return !s.Active
}

// Account scopes which trades are visible and carries the balance used to
// turn percentage P&L into currency amounts.
type Account struct {
	ID        string          `json:"id" yaml:"id"`
	UserID    string          `json:"user_id" yaml:"user_id"`
	Name      string          `json:"name" yaml:"name"`
	Mode      AccountMode     `json:"mode" yaml:"mode"`
	Balance   decimal.Decimal `json:"balance" yaml:"balance"`
	Currency  string          `json:"currency" yaml:"currency"`
	CreatedAt time.Time       `json:"created_at" yaml:"created_at"`
}

// AmountForPercent converts a percentage of the account balance into a
// currency amount, rounded to cents.
func (a Account) AmountForPercent(pct float64) decimal.Decimal {
	return a.Balance.Mul(decimal.NewFromFloat(pct)).Div(decimal.NewFromInt(100)).Round(2)
}

// BalanceFloat returns the balance as a float for the statistics layer.
func (a Account) BalanceFloat() float64 {
	f, _ := a.Balance.Float64()
	return f
}
