package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/journal"
	"trade-journal/internal/stats"
	"trade-journal/pkg/utils"
)

// addStatsCommands adds statistics commands.
func addStatsCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Journal statistics",
		Long:  "Summaries, category breakdowns and the monthly calendar.",
	}
	cmd.AddCommand(newStatsSummaryCmd(app))
	cmd.AddCommand(newStatsByCmd(app))
	cmd.AddCommand(newStatsCalendarCmd(app))
	cmd.AddCommand(newStatsPresetsCmd(app))
	cmd.AddCommand(newStatsDimensionsCmd(app))
	rootCmd.AddCommand(cmd)
}

func newStatsSummaryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the headline numbers",
		Example: `  journal stats summary --preset month
  journal stats summary --from 2024-01-01 --to 2024-03-31 --strategy s-123`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			q, err := queryFromFlags(cmd)
			if err != nil {
				return err
			}
			svc, err := app.Service()
			if err != nil {
				return err
			}
			res, err := svc.Summary(ctx, q)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(res)
			}
			renderSummary(output, res, app.Config.Stats.ProfitFactorCap)
			return nil
		},
	}
	addQueryFlags(cmd)
	return cmd
}

func selectionTitle(sel journal.Selection) string {
	var title string
	switch start, end := sel.Range.StartDate, sel.Range.EndDate; {
	case start == "" && end == "":
		return "All trades"
	case end == "":
		title = "From " + start
	case start == "":
		title = "Until " + end
	default:
		title = start + " → " + end
	}
	if sel.Preset != "" {
		title += " (" + string(sel.Preset) + ")"
	}
	return title
}

func renderSummary(output *Output, res journal.SummaryResult, pfCap float64) {
	s := res.Summary

	avgDays := utils.Placeholder
	if s.AverageDaysBetween != nil {
		avgDays = utils.FormatDays(*s.AverageDaysBetween)
	}
	quality := utils.Placeholder
	if s.QualityScore != nil {
		quality = fmt.Sprintf("%.3f  %s", *s.QualityScore, s.QualityBand)
	}

	lines := []string{
		fmt.Sprintf("Trades:            %s (%d not executed)", utils.FormatCount(s.TotalTrades), s.NonExecuted),
		fmt.Sprintf("Wins / Losses:     %d / %d", s.Wins, s.Losses),
		fmt.Sprintf("BE wins / losses:  %d / %d (%d break-even)", s.BEWins, s.BELosses, s.BECount),
		fmt.Sprintf("Win rate:          %s", utils.FormatRate(s.WinRate)),
		fmt.Sprintf("Win rate with BE:  %s", utils.FormatRate(s.WinRateWithBE)),
		"",
		fmt.Sprintf("Net profit:        %s", output.Signed(s.NetProfit, utils.FormatPnL(s.NetProfit, ""))),
		fmt.Sprintf("Net P&L:           %s", output.Signed(s.NetPnLPct, utils.FormatPercent(s.NetPnLPct))),
		fmt.Sprintf("Return:            %s", output.Signed(s.ReturnPct, utils.FormatPercent(s.ReturnPct))),
		fmt.Sprintf("Profit factor:     %s", utils.FormatProfitFactor(s.ProfitFactor, pfCap)),
		fmt.Sprintf("Avg R:R:           %s", FormatRiskReward(s.AverageRiskReward)),
		fmt.Sprintf("Avg risk:          %.2f%%", s.AverageRisk),
		fmt.Sprintf("Avg days between:  %s", avgDays),
		fmt.Sprintf("Trade quality:     %s", quality),
	}
	output.Box(selectionTitle(res.Selection), lines)
}

func newStatsByCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "by <dimension>",
		Short: "Break win rates down by a category",
		Long: `Break win rates down by a category.

Dimensions: ` + strings.Join(stats.DimensionNames(), ", "),
		Example: `  journal stats by market --order total
  journal stats by news --include-unnamed --intensity 3
  journal stats by setup --preset 30days --be-resolution outcome`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			q, err := queryFromFlags(cmd)
			if err != nil {
				return err
			}
			opts, err := aggregateOptionsFromFlags(cmd)
			if err != nil {
				return err
			}
			svc, err := app.Service()
			if err != nil {
				return err
			}
			res, err := svc.Categories(ctx, q, args[0], opts)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(res)
			}

			output.Bold("By %s · %s", res.Dimension, selectionTitle(res.Selection))
			if len(res.Rows) == 0 {
				output.Info("No trades in range.")
				return nil
			}
			table := NewTable(output, "Group", "Total", "Wins", "Losses", "BE W", "BE L", "Win %", "Win % (BE)")
			for _, r := range res.Rows {
				table.AddRow(
					TruncateString(r.GroupLabel, 28),
					fmt.Sprintf("%d", r.Total),
					fmt.Sprintf("%d", r.Wins),
					fmt.Sprintf("%d", r.Losses),
					fmt.Sprintf("%d", r.BEWins),
					fmt.Sprintf("%d", r.BELosses),
					rateCell(output, r.WinRate),
					rateCell(output, r.WinRateWithBE),
				)
			}
			table.Render()
			return nil
		},
	}
	addQueryFlags(cmd)
	cmd.Flags().String("order", "insertion", "row order: insertion, label, total")
	cmd.Flags().Bool("include-unnamed", false, "keep trades without a value under a placeholder group")
	cmd.Flags().String("unnamed-label", "", "label for the placeholder group")
	cmd.Flags().Int("intensity", 0, "only trades with this news intensity (1-3)")
	cmd.Flags().String("be-resolution", "", "break-even attribution: final_result, outcome")
	return cmd
}

func aggregateOptionsFromFlags(cmd *cobra.Command) (stats.AggregateOptions, error) {
	f := cmd.Flags()
	var opts stats.AggregateOptions

	raw, _ := f.GetString("order")
	order, ok := stats.ParseRowOrder(raw)
	if !ok {
		return opts, apperrors.NewValidationError("order", raw, "must be insertion, label or total")
	}
	opts.Order = order

	if raw, _ = f.GetString("be-resolution"); raw != "" {
		res, ok := stats.ParseBEResolution(raw)
		if !ok {
			return opts, apperrors.NewValidationError("be-resolution", raw, "must be final_result or outcome")
		}
		opts.BEResolution = res
	}

	opts.IncludeUnnamed, _ = f.GetBool("include-unnamed")
	opts.UnnamedLabel, _ = f.GetString("unnamed-label")
	opts.IntensityFilter, _ = f.GetInt("intensity")
	if !stats.ValidIntensityFilter(opts.IntensityFilter) {
		return opts, apperrors.NewValidationError("intensity", opts.IntensityFilter, "must be 1, 2 or 3")
	}
	return opts, nil
}

func rateCell(output *Output, rate float64) string {
	text := utils.FormatRate(rate)
	switch {
	case rate >= 50:
		return output.Green(text)
	case rate > 0:
		return output.Yellow(text)
	}
	return text
}

func newStatsCalendarCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show the monthly P&L calendar",
		Example: `  journal stats calendar
  journal stats calendar --month 2024-03`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			month := app.Now()
			if raw, _ := cmd.Flags().GetString("month"); raw != "" {
				m, err := time.ParseInLocation("2006-01", raw, time.Local)
				if err != nil {
					return apperrors.NewValidationError("month", raw, "expected YYYY-MM")
				}
				month = m
			}

			q, err := queryFromFlags(cmd)
			if err != nil {
				return err
			}
			svc, err := app.Service()
			if err != nil {
				return err
			}
			cal, err := svc.Calendar(ctx, month, q)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(cal)
			}
			renderCalendar(output, cal)
			return nil
		},
	}
	cmd.Flags().String("month", "", "month to show, YYYY-MM (default current month)")
	cmd.Flags().String("strategy", "", "only trades of this strategy ID")
	cmd.Flags().StringSlice("market", nil, "only these markets (repeatable)")
	cmd.Flags().StringSlice("direction", nil, "only these directions: Long, Short")
	cmd.Flags().Bool("news-only", false, "only news-related trades")
	cmd.Flags().Bool("include-non-executed", false, "count trades that were planned but not taken")
	return cmd
}

const calendarCellWidth = 11

func renderCalendar(output *Output, cal stats.CalendarMonth) {
	output.Bold("%s", Center(cal.Month.Format("January 2006"), calendarCellWidth*7))

	var header []string
	for d := time.Sunday; d <= time.Saturday; d++ {
		header = append(header, Center(d.String()[:3], calendarCellWidth))
	}
	output.Println(output.DimText(strings.Join(header, "")))

	cells := make([]string, 0, 42)
	lead := int(cal.Month.Weekday())
	for i := 0; i < lead; i++ {
		cells = append(cells, strings.Repeat(" ", calendarCellWidth))
	}
	for _, day := range cal.Days {
		cells = append(cells, calendarCell(output, day))
	}

	for start := 0; start < len(cells); start += 7 {
		end := min(start+7, len(cells))
		output.Println(strings.Join(cells[start:end], ""))
	}
	output.Println()

	table := NewTable(output, "Week", "Wins", "Losses", "BE", "Profit", "P&L %")
	for _, w := range cal.Weeks {
		table.AddRow(
			w.WeekLabel,
			fmt.Sprintf("%d", w.Wins),
			fmt.Sprintf("%d", w.Losses),
			fmt.Sprintf("%d", w.BECount),
			output.Signed(w.TotalProfit, utils.FormatPnL(w.TotalProfit, "")),
			output.Signed(w.PnLPercent, utils.FormatPercent(w.PnLPercent)),
		)
	}
	table.Render()
}

func calendarCell(output *Output, day stats.DayBucket) string {
	text := fmt.Sprintf("%2d", day.Date.Day())
	if len(day.Trades) > 0 {
		text += " " + compactAmount(day.Profit)
	}
	text = Center(text, calendarCellWidth)
	switch day.Color {
	case stats.ColorGreen:
		return output.Green(text)
	case stats.ColorRed:
		return output.Red(text)
	}
	if len(day.Trades) == 0 {
		return output.DimText(text)
	}
	return text
}

// compactAmount fits a day's profit into a calendar cell.
func compactAmount(v float64) string {
	sign := ""
	if v > 0 {
		sign = "+"
	}
	abs := v
	if abs < 0 {
		abs = -abs
	}
	if abs >= 10000 {
		return fmt.Sprintf("%s%.1fk", sign, v/1000)
	}
	return fmt.Sprintf("%s%.0f", sign, v)
}

func newStatsPresetsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "Show the date presets resolved for today",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)
			now := app.Now()

			type presetRow struct {
				Name  stats.Preset    `json:"name"`
				Range stats.DateRange `json:"range"`
			}
			var rows []presetRow
			for _, p := range stats.Presets() {
				r, err := stats.ResolveDatePreset(p, now)
				if err != nil {
					return err
				}
				rows = append(rows, presetRow{Name: p, Range: r})
			}
			if output.IsJSON() {
				return output.JSON(rows)
			}

			table := NewTable(output, "Preset", "From", "To")
			for _, r := range rows {
				table.AddRow(string(r.Name), r.Range.StartDate, r.Range.EndDate)
			}
			table.Render()
			return nil
		},
	}
}

func newStatsDimensionsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "dimensions",
		Short: "List the categories trades can be grouped by",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)
			names := stats.DimensionNames()
			if output.IsJSON() {
				return output.JSON(names)
			}
			for _, n := range names {
				output.Println(n)
			}
			return nil
		},
	}
}
