package stats

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"trade-journal/internal/models"
)

// DayColor is the colour a calendar day is rendered with.
type DayColor string

const (
	ColorGreen   DayColor = "green"
	ColorRed     DayColor = "red"
	ColorNeutral DayColor = "neutral"
)

// DayBucket holds the trades of one calendar day.
type DayBucket struct {
	Date       time.Time      `json:"date" yaml:"date"`
	Trades     []models.Trade `json:"trades" yaml:"trades"`
	Profit     float64        `json:"profit" yaml:"profit"`
	PnLPercent float64        `json:"pnl_percent" yaml:"pnl_percent"`
	RealTrades int            `json:"real_trades" yaml:"real_trades"` // excludes pure break-even trades
	BETrades   int            `json:"be_trades" yaml:"be_trades"`
	Color      DayColor       `json:"color" yaml:"color"`
}

// WeekBucket is the rollup of one of the four slices of a month.
type WeekBucket struct {
	Index       int     `json:"index" yaml:"index"`
	WeekLabel   string  `json:"week_label" yaml:"week_label"`
	TotalProfit float64 `json:"total_profit" yaml:"total_profit"`
	Wins        int     `json:"wins" yaml:"wins"`
	Losses      int     `json:"losses" yaml:"losses"`
	BECount     int     `json:"be_count" yaml:"be_count"`
	PnLPercent  float64 `json:"pnl_percent" yaml:"pnl_percent"`
}

// CalendarMonth is the calendar view of one month.
type CalendarMonth struct {
	Month time.Time     `json:"month" yaml:"month"`
	Days  []DayBucket   `json:"days" yaml:"days"`
	Weeks [4]WeekBucket `json:"weeks" yaml:"weeks"`
}

// SplitMonthIntoFourRanges splits the month containing date into exactly
// four contiguous day ranges. Each range holds floor(n/4) days and the first
// n%4 ranges get one extra day.
func SplitMonthIntoFourRanges(date time.Time) [][]time.Time {
	y, m, _ := date.Date()
	loc := date.Location()
	total := daysInMonth(y, m)

	base, extra := total/4, total%4
	ranges := make([][]time.Time, 0, 4)
	day := 1
	for i := 0; i < 4; i++ {
		size := base
		if i < extra {
			size++
		}
		r := make([]time.Time, 0, size)
		for j := 0; j < size; j++ {
			r = append(r, time.Date(y, m, day, 0, 0, 0, 0, loc))
			day++
		}
		ranges = append(ranges, r)
	}
	return ranges
}

func daysInMonth(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// BuildWeeklyStats rolls executed trades up per range. Wins, losses and
// profit come from non break-even trades; break-even trades are only
// counted. PnLPercent is relative to accountBalance and 0 without one.
func BuildWeeklyStats(trades []models.Trade, ranges [][]time.Time, accountBalance float64) []WeekBucket {
	return buildWeeklyStats(trades, ranges, accountBalance, false)
}

func buildWeeklyStats(trades []models.Trade, ranges [][]time.Time, accountBalance float64, includeNonExecuted bool) []WeekBucket {
	weeks := make([]WeekBucket, len(ranges))
	rangeOf := make(map[string]int)
	for i, r := range ranges {
		weeks[i] = WeekBucket{Index: i, WeekLabel: weekLabel(r)}
		for _, d := range r {
			rangeOf[d.Format(models.DateLayout)] = i
		}
	}

	profits := make([]decimal.Decimal, len(ranges))
	for _, t := range trades {
		if !t.IsExecuted() && !includeNonExecuted {
			continue
		}
		i, ok := rangeOf[t.DateKey()]
		if !ok {
			continue
		}
		if t.IsBreakEven() {
			weeks[i].BECount++
			continue
		}
		switch t.Outcome {
		case models.OutcomeWin:
			weeks[i].Wins++
		case models.OutcomeLose:
			weeks[i].Losses++
		}
		profits[i] = profits[i].Add(decimal.NewFromFloat(t.CalculatedProfit))
	}

	for i := range weeks {
		weeks[i].TotalProfit, _ = profits[i].Float64()
		if accountBalance > 0 {
			weeks[i].PnLPercent, _ = profits[i].
				Div(decimal.NewFromFloat(accountBalance)).
				Mul(decimal.NewFromInt(100)).
				Round(4).Float64()
		}
	}
	return weeks
}

func weekLabel(r []time.Time) string {
	if len(r) == 0 {
		return ""
	}
	first, last := r[0], r[len(r)-1]
	return fmt.Sprintf("%s %d-%d", first.Format("Jan"), first.Day(), last.Day())
}

type calendarConfig struct {
	balance            float64
	resolution         BEResolution
	includeNonExecuted bool
}

// CalendarOption configures BucketizeCalendarMonth.
type CalendarOption func(*calendarConfig)

// WithAccountBalance sets the balance used for percentage figures.
func WithAccountBalance(balance float64) CalendarOption {
	return func(c *calendarConfig) { c.balance = balance }
}

// WithBEResolution selects how a break-even trade's colour is resolved.
func WithBEResolution(r BEResolution) CalendarOption {
	return func(c *calendarConfig) { c.resolution = r }
}

// WithNonExecuted includes trades that were not executed.
func WithNonExecuted() CalendarOption {
	return func(c *calendarConfig) { c.includeNonExecuted = true }
}

// BucketizeCalendarMonth maps every day of the month containing month to its
// trades and computes the four weekly slices.
func BucketizeCalendarMonth(trades []models.Trade, month time.Time, opts ...CalendarOption) CalendarMonth {
	cfg := calendarConfig{resolution: BEFromFinalResult}
	for _, opt := range opts {
		opt(&cfg)
	}

	y, m, _ := month.Date()
	loc := month.Location()
	total := daysInMonth(y, m)

	byDay := make(map[string][]models.Trade)
	for _, t := range trades {
		if !t.IsExecuted() && !cfg.includeNonExecuted {
			continue
		}
		ty, tm, _ := t.Date.Date()
		if ty != y || tm != m {
			continue
		}
		byDay[t.DateKey()] = append(byDay[t.DateKey()], t)
	}

	cal := CalendarMonth{
		Month: time.Date(y, m, 1, 0, 0, 0, 0, loc),
		Days:  make([]DayBucket, 0, total),
	}
	for d := 1; d <= total; d++ {
		date := time.Date(y, m, d, 0, 0, 0, 0, loc)
		cal.Days = append(cal.Days, buildDay(date, byDay[date.Format(models.DateLayout)], cfg))
	}

	weeks := buildWeeklyStats(trades, SplitMonthIntoFourRanges(month), cfg.balance, cfg.includeNonExecuted)
	copy(cal.Weeks[:], weeks)
	return cal
}

func buildDay(date time.Time, trades []models.Trade, cfg calendarConfig) DayBucket {
	day := DayBucket{Date: date, Trades: trades, Color: ColorNeutral}
	if day.Trades == nil {
		day.Trades = []models.Trade{}
	}

	profit, pct := decimal.Zero, decimal.Zero
	var firstBE *models.Trade
	for i, t := range trades {
		if t.IsBreakEven() {
			day.BETrades++
			if firstBE == nil {
				firstBE = &trades[i]
			}
		}
		if t.IsPureBreakEven() {
			continue
		}
		day.RealTrades++
		profit = profit.Add(decimal.NewFromFloat(t.CalculatedProfit))
		pct = pct.Add(decimal.NewFromFloat(t.PnLPercent))
	}
	day.Profit, _ = profit.Float64()
	day.PnLPercent, _ = pct.Round(4).Float64()

	switch {
	case profit.IsPositive():
		day.Color = ColorGreen
	case profit.IsNegative():
		day.Color = ColorRed
	case firstBE != nil:
		switch cfg.resolution.Resolve(*firstBE) {
		case models.OutcomeWin:
			day.Color = ColorGreen
		case models.OutcomeLose:
			day.Color = ColorRed
		}
	}
	return day
}
