package cli

import (
	"github.com/spf13/cobra"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/journal"
	"trade-journal/internal/models"
)

// addQueryFlags registers the trade selection flags shared by the stats,
// trade list and report commands.
func addQueryFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("preset", "", "date preset: year, 15days, 30days, month")
	f.String("from", "", "start date, inclusive (YYYY-MM-DD)")
	f.String("to", "", "end date, inclusive (YYYY-MM-DD)")
	f.String("strategy", "", "only trades of this strategy ID")
	f.StringSlice("market", nil, "only these markets (repeatable)")
	f.StringSlice("direction", nil, "only these directions: Long, Short")
	f.Bool("news-only", false, "only news-related trades")
	f.Bool("include-non-executed", false, "count trades that were planned but not taken")
}

func queryFromFlags(cmd *cobra.Command) (journal.Query, error) {
	f := cmd.Flags()
	var q journal.Query
	q.Preset, _ = f.GetString("preset")
	q.From, _ = f.GetString("from")
	q.To, _ = f.GetString("to")
	q.StrategyID, _ = f.GetString("strategy")
	q.Markets, _ = f.GetStringSlice("market")
	q.NewsOnly, _ = f.GetBool("news-only")
	q.IncludeNonExecuted, _ = f.GetBool("include-non-executed")

	if q.Preset != "" && (q.From != "" || q.To != "") {
		return q, apperrors.NewValidationError("preset", q.Preset, "cannot be combined with --from/--to")
	}

	dirs, _ := f.GetStringSlice("direction")
	for _, raw := range dirs {
		d, ok := models.ParseDirection(raw)
		if !ok {
			return q, apperrors.NewValidationError("direction", raw, "must be Long or Short")
		}
		q.Directions = append(q.Directions, d)
	}
	return q, nil
}
