package stats

import (
	"sort"
	"strings"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

// GroupKeyFunc extracts the grouping value of a trade. An empty string marks
// the trade as unnamed.
type GroupKeyFunc func(t models.Trade) string

// ByDirection groups by Long/Short.
func ByDirection(t models.Trade) string { return string(t.Direction) }

// ByWeekday groups by the weekday of the trade date.
func ByWeekday(t models.Trade) string {
	if t.Date.IsZero() {
		return ""
	}
	return t.Date.Weekday().String()
}

// ByMarket groups by market symbol.
func ByMarket(t models.Trade) string { return strings.TrimSpace(t.Market) }

// ByNewsEvent groups news-related trades by event name.
func ByNewsEvent(t models.Trade) string {
	if !t.NewsRelated {
		return ""
	}
	return t.NewsName
}

// BySetup groups by setup type.
func BySetup(t models.Trade) string { return t.SetupType }

// ByLiquidity groups by liquidity type.
func ByLiquidity(t models.Trade) string { return t.LiquidityType }

// ByEvaluation groups by evaluation grade.
func ByEvaluation(t models.Trade) string { return string(t.Evaluation) }

// ByStrategy groups by strategy ID.
func ByStrategy(t models.Trade) string { return t.StrategyID }

// Labels used by ByLocalHighLow.
const (
	LocalHighLowLabel    = "Local High/Low"
	NotLocalHighLowLabel = "Not Local High/Low"
)

// ByLocalHighLow splits trades taken at a local high or low from the rest.
func ByLocalHighLow(t models.Trade) string {
	if t.LocalHighLow {
		return LocalHighLowLabel
	}
	return NotLocalHighLowLabel
}

// Dimension is a named grouping selectable from the CLI and the HTTP API.
type Dimension struct {
	Name         string
	Key          GroupKeyFunc
	UnnamedLabel string
}

var dimensions = map[string]Dimension{
	"direction":  {Name: "direction", Key: ByDirection},
	"weekday":    {Name: "weekday", Key: ByWeekday},
	"market":     {Name: "market", Key: ByMarket},
	"news":       {Name: "news", Key: ByNewsEvent, UnnamedLabel: "No Event"},
	"setup":      {Name: "setup", Key: BySetup, UnnamedLabel: "No Setup"},
	"liquidity":  {Name: "liquidity", Key: ByLiquidity, UnnamedLabel: "No Liquidity"},
	"evaluation": {Name: "evaluation", Key: ByEvaluation, UnnamedLabel: "Ungraded"},
	"strategy":   {Name: "strategy", Key: ByStrategy, UnnamedLabel: "No Strategy"},
	"localhl":    {Name: "localhl", Key: ByLocalHighLow},
}

// LookupDimension returns the dimension registered under name.
func LookupDimension(name string) (Dimension, error) {
	d, ok := dimensions[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Dimension{}, apperrors.Wrapf(apperrors.ErrUnknownDimension, "%q", name)
	}
	return d, nil
}

// DimensionNames lists the registered dimensions alphabetically.
func DimensionNames() []string {
	names := make([]string, 0, len(dimensions))
	for name := range dimensions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Aggregate runs AggregateByCategory for the dimension, applying its
// unnamed label unless opts sets one.
func (d Dimension) Aggregate(trades []models.Trade, opts AggregateOptions) []StatRow {
	if opts.UnnamedLabel == "" {
		opts.UnnamedLabel = d.UnnamedLabel
	}
	return AggregateByCategory(trades, d.Key, opts)
}
