package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-journal/internal/models"
)

func day(s string) time.Time {
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func win(date string, profit float64) models.Trade {
	return models.Trade{Date: day(date), Market: "EURUSD", Direction: models.DirectionLong, Outcome: models.OutcomeWin, CalculatedProfit: profit}
}

func loss(date string, profit float64) models.Trade {
	return models.Trade{Date: day(date), Market: "EURUSD", Direction: models.DirectionLong, Outcome: models.OutcomeLose, CalculatedProfit: profit}
}

func be(date string, result models.Outcome) models.Trade {
	return models.Trade{Date: day(date), Market: "EURUSD", Direction: models.DirectionLong, Outcome: models.OutcomeBE, BreakEven: true, BEFinalResult: result}
}

func TestAggregateByCategory_DirectionExample(t *testing.T) {
	trades := []models.Trade{
		{Direction: models.DirectionLong, Outcome: models.OutcomeWin},
		{Direction: models.DirectionLong, Outcome: models.OutcomeLose},
		{Direction: models.DirectionShort, Outcome: models.OutcomeWin, BreakEven: true},
	}

	rows := AggregateByCategory(trades, ByDirection, AggregateOptions{})
	require.Len(t, rows, 2)

	assert.Equal(t, StatRow{GroupLabel: "Long", Wins: 1, Losses: 1, Total: 2, WinRate: 50, WinRateWithBE: 50}, rows[0])
	assert.Equal(t, StatRow{GroupLabel: "Short", BEWins: 1, Total: 1, WinRate: 0, WinRateWithBE: 100}, rows[1])
}

func TestAggregateByCategory_EmptyInput(t *testing.T) {
	rows := AggregateByCategory(nil, ByMarket, AggregateOptions{IncludeUnnamed: true})
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestAggregateByCategory_OnlyBreakEven(t *testing.T) {
	trades := []models.Trade{
		be("2024-03-01", models.OutcomeWin),
		be("2024-03-02", models.OutcomeLose),
		be("2024-03-03", models.OutcomeWin),
		be("2024-03-04", models.OutcomeWin),
	}
	rows := AggregateByCategory(trades, ByMarket, AggregateOptions{})
	require.Len(t, rows, 1)
	assert.Equal(t, 0.0, rows[0].WinRate)
	assert.Equal(t, 3, rows[0].BEWins)
	assert.Equal(t, 1, rows[0].BELosses)
	assert.Equal(t, 75.0, rows[0].WinRateWithBE)
}

func TestAggregateByCategory_NonExecuted(t *testing.T) {
	skipped := win("2024-03-01", 100)
	skipped.Executed = models.BoolPtr(false)
	trades := []models.Trade{skipped, loss("2024-03-02", -50)}

	rows := AggregateByCategory(trades, ByMarket, AggregateOptions{})
	require.Len(t, rows, 1)
	assert.Equal(t, 0, rows[0].Wins)
	assert.Equal(t, 1, rows[0].Total)

	rows = AggregateByCategory(trades, ByMarket, AggregateOptions{IncludeNonExecuted: true})
	assert.Equal(t, 1, rows[0].Wins)
	assert.Equal(t, 2, rows[0].Total)
	assert.Equal(t, 50.0, rows[0].WinRate)
}

func TestAggregateByCategory_GroupWithOnlyNonExecutedTrades(t *testing.T) {
	skipped := win("2024-03-01", 100)
	skipped.Market = "GBPUSD"
	skipped.Executed = models.BoolPtr(false)

	rows := AggregateByCategory([]models.Trade{skipped}, ByMarket, AggregateOptions{})
	assert.Empty(t, rows)

	counted := win("2024-03-02", 50)
	counted.Market = "EURUSD"
	rows = AggregateByCategory([]models.Trade{skipped, counted}, ByMarket, AggregateOptions{})
	require.Len(t, rows, 1)
	assert.Equal(t, "EURUSD", rows[0].GroupLabel)
	assert.Equal(t, 1, rows[0].Total)

	rows = AggregateByCategory([]models.Trade{skipped}, ByMarket, AggregateOptions{IncludeNonExecuted: true})
	require.Len(t, rows, 1)
	assert.Equal(t, "GBPUSD", rows[0].GroupLabel)
}

func TestAggregateByCategory_Unnamed(t *testing.T) {
	news := win("2024-03-01", 10)
	news.NewsRelated = true
	news.NewsName = "NFP"
	news.NewsIntensity = 3
	plain := loss("2024-03-02", -10)

	rows := AggregateByCategory([]models.Trade{news, plain}, ByNewsEvent, AggregateOptions{})
	require.Len(t, rows, 1)
	assert.Equal(t, "NFP", rows[0].GroupLabel)

	rows = AggregateByCategory([]models.Trade{news, plain}, ByNewsEvent, AggregateOptions{IncludeUnnamed: true, UnnamedLabel: "No Event"})
	require.Len(t, rows, 2)
	assert.Equal(t, "No Event", rows[1].GroupLabel)
	assert.Equal(t, 1, rows[1].Losses)

	rows = AggregateByCategory([]models.Trade{plain}, ByNewsEvent, AggregateOptions{IncludeUnnamed: true})
	assert.Equal(t, DefaultUnnamedLabel, rows[0].GroupLabel)
}

func TestAggregateByCategory_IntensityFilter(t *testing.T) {
	var trades []models.Trade
	for i, intensity := range []int{1, 2, 3, 3} {
		tr := win("2024-03-01", 10)
		tr.NewsRelated = true
		tr.NewsName = "CPI"
		tr.NewsIntensity = intensity
		if i == 3 {
			tr.Outcome = models.OutcomeLose
		}
		trades = append(trades, tr)
	}

	rows := AggregateByCategory(trades, ByNewsEvent, AggregateOptions{IntensityFilter: 3})
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Wins)
	assert.Equal(t, 1, rows[0].Losses)
	assert.Equal(t, 2, rows[0].Total)
}

func TestAggregateByCategory_BEResolution(t *testing.T) {
	// Outcome says Win, final result says Lose.
	tr := models.Trade{Market: "NQ", Outcome: models.OutcomeWin, BreakEven: true, BEFinalResult: models.OutcomeLose}
	// Outcome is BE, final result says Win.
	tr2 := models.Trade{Market: "NQ", Outcome: models.OutcomeBE, BEFinalResult: models.OutcomeWin}

	rows := AggregateByCategory([]models.Trade{tr, tr2}, ByMarket, AggregateOptions{BEResolution: BEFromFinalResult})
	assert.Equal(t, 1, rows[0].BEWins)
	assert.Equal(t, 1, rows[0].BELosses)
	assert.Equal(t, 2, rows[0].Total)

	// Reading the outcome, a BE outcome falls back to the final result.
	rows = AggregateByCategory([]models.Trade{tr, tr2}, ByMarket, AggregateOptions{BEResolution: BEFromOutcome})
	assert.Equal(t, 2, rows[0].BEWins)
	assert.Equal(t, 0, rows[0].BELosses)
	assert.Equal(t, 2, rows[0].Total)

	// A BE outcome without a final result cannot be attributed.
	tr3 := models.Trade{Market: "NQ", Outcome: models.OutcomeBE}
	rows = AggregateByCategory([]models.Trade{tr3}, ByMarket, AggregateOptions{BEResolution: BEFromOutcome})
	assert.Empty(t, rows)
}

func TestAggregateByCategory_Ordering(t *testing.T) {
	mk := func(market string) models.Trade {
		tr := win("2024-03-01", 1)
		tr.Market = market
		return tr
	}
	trades := []models.Trade{mk("b"), mk("C"), mk("a"), mk("C"), mk("a"), mk("a")}

	labels := func(rows []StatRow) []string {
		var out []string
		for _, r := range rows {
			out = append(out, r.GroupLabel)
		}
		return out
	}

	assert.Equal(t, []string{"b", "C", "a"}, labels(AggregateByCategory(trades, ByMarket, AggregateOptions{})))
	assert.Equal(t, []string{"a", "b", "C"}, labels(AggregateByCategory(trades, ByMarket, AggregateOptions{Order: OrderLabel})))
	assert.Equal(t, []string{"a", "C", "b"}, labels(AggregateByCategory(trades, ByMarket, AggregateOptions{Order: OrderTotalDesc})))
}

func TestAggregateByCategory_Weekday(t *testing.T) {
	trades := []models.Trade{
		win("2024-03-04", 10),  // Monday
		loss("2024-03-05", -5), // Tuesday
		win("2024-03-11", 10),  // Monday
	}
	rows := AggregateByCategory(trades, ByWeekday, AggregateOptions{})
	require.Len(t, rows, 2)
	assert.Equal(t, "Monday", rows[0].GroupLabel)
	assert.Equal(t, 2, rows[0].Wins)
	assert.Equal(t, "Tuesday", rows[1].GroupLabel)
}

func TestLookupDimension(t *testing.T) {
	d, err := LookupDimension("News")
	require.NoError(t, err)
	assert.Equal(t, "No Event", d.UnnamedLabel)

	rows := d.Aggregate([]models.Trade{win("2024-03-01", 1)}, AggregateOptions{IncludeUnnamed: true})
	require.Len(t, rows, 1)
	assert.Equal(t, "No Event", rows[0].GroupLabel)

	_, err = LookupDimension("moon-phase")
	assert.Error(t, err)
	assert.Contains(t, DimensionNames(), "localhl")
}

func TestParseHelpers(t *testing.T) {
	assert.True(t, ValidIntensityFilter(0))
	assert.True(t, ValidIntensityFilter(3))
	assert.False(t, ValidIntensityFilter(4))
	assert.False(t, ValidIntensityFilter(-1))

	r, ok := ParseBEResolution("")
	assert.True(t, ok)
	assert.Equal(t, BEFromFinalResult, r)
	r, ok = ParseBEResolution("Outcome")
	assert.True(t, ok)
	assert.Equal(t, BEFromOutcome, r)
	_, ok = ParseBEResolution("coin-flip")
	assert.False(t, ok)

	o, ok := ParseRowOrder("total")
	assert.True(t, ok)
	assert.Equal(t, OrderTotalDesc, o)
	_, ok = ParseRowOrder("random")
	assert.False(t, ok)
}
