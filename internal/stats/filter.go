// Package stats computes trade statistics: category breakdowns, derived
// metrics, calendar buckets and date-range presets.
//
// Every function in this package is pure. Inputs are never mutated, empty
// inputs and zero denominators yield defined values (0 or NaN) and nothing
// here blocks, logs or returns errors for well-formed trades.
package stats

import (
	"sort"
	"strings"
	"time"

	"trade-journal/internal/models"
)

// DateOrder controls the order of trades returned by ApplyFilters.
type DateOrder int

const (
	DateAscending DateOrder = iota
	DateDescending
)

// FilterState is the explicit set of filters applied before aggregation.
// The zero value keeps every executed trade in ascending date order.
type FilterState struct {
	Markets            []string
	Directions         []models.Direction
	StrategyID         string
	StartDate          time.Time // inclusive; zero means unbounded
	EndDate            time.Time // inclusive; zero means unbounded
	IncludeNonExecuted bool
	NewsOnly           bool
	Order              DateOrder
}

// WithRange returns a copy of f bounded by the calendar dates in r.
func (f FilterState) WithRange(r DateRange) (FilterState, error) {
	start, end, err := r.Bounds()
	if err != nil {
		return f, err
	}
	f.StartDate = start
	f.EndDate = end
	return f, nil
}

// ApplyFilters returns the trades matching f as a new slice.
func ApplyFilters(trades []models.Trade, f FilterState) []models.Trade {
	markets := make(map[string]bool, len(f.Markets))
	for _, m := range f.Markets {
		markets[strings.ToUpper(strings.TrimSpace(m))] = true
	}
	directions := make(map[models.Direction]bool, len(f.Directions))
	for _, d := range f.Directions {
		directions[d] = true
	}

	var startKey, endKey string
	if !f.StartDate.IsZero() {
		startKey = f.StartDate.Format(models.DateLayout)
	}
	if !f.EndDate.IsZero() {
		endKey = f.EndDate.Format(models.DateLayout)
	}

	out := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if !f.IncludeNonExecuted && !t.IsExecuted() {
			continue
		}
		if len(markets) > 0 && !markets[strings.ToUpper(strings.TrimSpace(t.Market))] {
			continue
		}
		if len(directions) > 0 && !directions[t.Direction] {
			continue
		}
		if f.StrategyID != "" && t.StrategyID != f.StrategyID {
			continue
		}
		if f.NewsOnly && !t.NewsRelated {
			continue
		}
		// ISO dates compare correctly as strings and ignore time zones.
		key := t.DateKey()
		if startKey != "" && key < startKey {
			continue
		}
		if endKey != "" && key > endKey {
			continue
		}
		out = append(out, t)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		ka, kb := a.DateKey()+a.Time, b.DateKey()+b.Time
		if f.Order == DateDescending {
			return ka > kb
		}
		return ka < kb
	})
	return out
}
