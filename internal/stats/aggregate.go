package stats

import (
	"sort"
	"strings"

	"trade-journal/internal/models"
)

// DefaultUnnamedLabel groups trades whose key is empty when unnamed groups
// are requested.
const DefaultUnnamedLabel = "Unnamed"

// BEResolution selects which field decides whether a break-even trade
// counts as a BE win or a BE loss.
type BEResolution string

const (
	// BEFromFinalResult reads the BE final result and falls back to the
	// outcome when no final result was recorded.
	BEFromFinalResult BEResolution = "final_result"
	// BEFromOutcome reads the trade outcome and falls back to the BE final
	// result when the outcome itself is BE.
	BEFromOutcome BEResolution = "outcome"
)

// ParseBEResolution parses a resolution name; empty selects the default.
func ParseBEResolution(s string) (BEResolution, bool) {
	switch BEResolution(strings.ToLower(strings.TrimSpace(s))) {
	case "", BEFromFinalResult:
		return BEFromFinalResult, true
	case BEFromOutcome:
		return BEFromOutcome, true
	}
	return "", false
}

// Resolve returns the win/loss attribution of a break-even trade. The result
// may be OutcomeBE or empty when the trade cannot be attributed.
func (r BEResolution) Resolve(t models.Trade) models.Outcome {
	if r == BEFromOutcome {
		if t.Outcome == models.OutcomeBE && t.BEFinalResult != "" {
			return t.BEFinalResult
		}
		return t.Outcome
	}
	if t.BEFinalResult != "" {
		return t.BEFinalResult
	}
	return t.Outcome
}

// RowOrder controls the order of aggregated rows.
type RowOrder int

const (
	// OrderInsertion keeps groups in order of first occurrence.
	OrderInsertion RowOrder = iota
	// OrderLabel sorts groups alphabetically.
	OrderLabel
	// OrderTotalDesc sorts groups by total trades, largest first.
	OrderTotalDesc
)

// ParseRowOrder parses "insertion", "label" or "total".
func ParseRowOrder(s string) (RowOrder, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "insertion":
		return OrderInsertion, true
	case "label", "alpha", "alphabetical":
		return OrderLabel, true
	case "total", "total_desc":
		return OrderTotalDesc, true
	}
	return OrderInsertion, false
}

// ValidIntensityFilter reports whether n can be used as an intensity filter:
// 0 (off) or a news intensity from 1 to 3.
func ValidIntensityFilter(n int) bool {
	return n >= 0 && n <= 3
}

// AggregateOptions tunes AggregateByCategory.
type AggregateOptions struct {
	IncludeUnnamed     bool
	UnnamedLabel       string
	IntensityFilter    int // 0 disables; otherwise only trades with this news intensity
	IncludeNonExecuted bool
	BEResolution       BEResolution
	Order              RowOrder
}

// StatRow is the win/loss tally of one group.
type StatRow struct {
	GroupLabel    string  `json:"group_label" yaml:"group_label"`
	Wins          int     `json:"wins" yaml:"wins"`
	Losses        int     `json:"losses" yaml:"losses"`
	BEWins        int     `json:"be_wins" yaml:"be_wins"`
	BELosses      int     `json:"be_losses" yaml:"be_losses"`
	Total         int     `json:"total" yaml:"total"`
	WinRate       float64 `json:"win_rate" yaml:"win_rate"`
	WinRateWithBE float64 `json:"win_rate_with_be" yaml:"win_rate_with_be"`
}

// AggregateByCategory produces one row per distinct group value.
//
// Only groups with at least one counted trade are returned. Non-executed
// trades are skipped before grouping unless IncludeNonExecuted is set, and
// break-even trades whose resolved result is neither Win nor Lose are left out
// so the four tallies always sum to Total.
func AggregateByCategory(trades []models.Trade, groupBy GroupKeyFunc, opts AggregateOptions) []StatRow {
	unnamed := opts.UnnamedLabel
	if unnamed == "" {
		unnamed = DefaultUnnamedLabel
	}
	resolution := opts.BEResolution
	if resolution == "" {
		resolution = BEFromFinalResult
	}

	rows := make([]StatRow, 0)
	index := make(map[string]int)

	for _, t := range trades {
		if opts.IntensityFilter != 0 && t.NewsIntensity != opts.IntensityFilter {
			continue
		}

		if !t.IsExecuted() && !opts.IncludeNonExecuted {
			continue
		}

		key := strings.TrimSpace(groupBy(t))
		if key == "" {
			if !opts.IncludeUnnamed {
				continue
			}
			key = unnamed
		}

		i, ok := index[key]
		if !ok {
			i = len(rows)
			index[key] = i
			rows = append(rows, StatRow{GroupLabel: key})
		}
		tally(&rows[i], t, resolution)
	}

	counted := rows[:0]
	for _, row := range rows {
		finishRow(&row)
		if row.Total > 0 {
			counted = append(counted, row)
		}
	}
	sortRows(counted, opts.Order)
	return counted
}

func tally(row *StatRow, t models.Trade, resolution BEResolution) {
	if t.IsBreakEven() {
		switch resolution.Resolve(t) {
		case models.OutcomeWin:
			row.BEWins++
		case models.OutcomeLose:
			row.BELosses++
		}
		return
	}
	switch t.Outcome {
	case models.OutcomeWin:
		row.Wins++
	case models.OutcomeLose:
		row.Losses++
	}
}

func finishRow(row *StatRow) {
	row.Total = row.Wins + row.Losses + row.BEWins + row.BELosses
	row.WinRate = percent(row.Wins, row.Wins+row.Losses)
	row.WinRateWithBE = percent(row.Wins+row.BEWins, row.Total)
}

func sortRows(rows []StatRow, order RowOrder) {
	switch order {
	case OrderLabel:
		sort.SliceStable(rows, func(i, j int) bool {
			return strings.ToLower(rows[i].GroupLabel) < strings.ToLower(rows[j].GroupLabel)
		})
	case OrderTotalDesc:
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].Total > rows[j].Total
		})
	}
}

// percent returns num/den*100, or 0 when den is 0.
func percent(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den) * 100
}
