package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
	"trade-journal/internal/stats"
	"trade-journal/pkg/utils"
)

// addTradeCommands adds trade logging commands.
func addTradeCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "trade",
		Short: "Log and review trades",
		Long:  "Record trades by hand and review what has been logged.",
	}
	cmd.AddCommand(newTradeAddCmd(app))
	cmd.AddCommand(newTradeListCmd(app))
	cmd.AddCommand(newTradeShowCmd(app))
	cmd.AddCommand(newTradeDeleteCmd(app))
	rootCmd.AddCommand(cmd)
}

func newTradeAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Log a trade",
		Long: `Log a trade against the configured account.

When --profit is omitted and --pnl is given, the profit is derived from the
account balance.`,
		Example: `  journal trade add --market EURUSD --direction Long --outcome Win --rr 2.1 --pnl 1.5
  journal trade add --market XAUUSD --direction Short --outcome BE --be-final Win --partials
  journal trade add --market NAS100 --direction Long --outcome Lose --not-executed`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			t, err := tradeFromFlags(cmd, app)
			if err != nil {
				return err
			}

			st, err := app.TradeStore()
			if err != nil {
				return err
			}

			f := cmd.Flags()
			if !f.Changed("profit") && t.PnLPercent != 0 && t.AccountID != "" {
				acc, err := st.GetAccount(ctx, t.AccountID)
				if err != nil {
					return err
				}
				t.CalculatedProfit, _ = acc.AmountForPercent(t.PnLPercent).Float64()
			}

			if err := st.SaveTrade(ctx, &t); err != nil {
				return err
			}
			logging.LogTradeSaved(app.Logger, t.ID, t.Market, string(t.Outcome), t.CalculatedProfit)

			if output.IsJSON() {
				return output.JSON(t)
			}
			output.Success("✓ Trade logged: %s %s %s", t.Market, t.Direction, FormatOutcome(t))
			output.Printf("  ID:     %s\n", t.ID)
			output.Printf("  Profit: %s\n", output.Signed(t.CalculatedProfit, utils.FormatPnL(t.CalculatedProfit, "")))
			return nil
		},
	}

	f := cmd.Flags()
	f.String("date", "", "trade date YYYY-MM-DD (default today)")
	f.String("time", "", "entry time HH:MM")
	f.String("market", "", "market or symbol")
	f.String("direction", "", "Long or Short")
	f.String("outcome", "", "Win, Lose or BE")
	f.Bool("be", false, "trade was moved to break-even")
	f.String("be-final", "", "what a break-even trade would have become: Win or Lose")
	f.Bool("not-executed", false, "trade was planned but not taken")
	f.Bool("partials", false, "partial profits were taken")
	f.Float64("risk", 0, "risk per trade in percent")
	f.Float64("rr", 0, "realised risk-reward")
	f.Float64("potential-rr", 0, "potential risk-reward")
	f.Float64("sl", 0, "stop-loss size")
	f.Float64("profit", 0, "profit in account currency")
	f.Float64("pnl", 0, "profit in percent of the account")
	f.Bool("news", false, "trade was taken around a news event")
	f.String("news-name", "", "news event name")
	f.Int("intensity", 0, "news intensity 1-3")
	f.Bool("local-hl", false, "entry at a local high or low")
	f.String("setup", "", "setup type")
	f.String("liquidity", "", "liquidity type")
	f.String("strategy", "", "strategy ID")
	f.String("notes", "", "free-form notes")
	f.String("grade", "", "self evaluation: A+, A, B, C")
	_ = cmd.MarkFlagRequired("market")
	_ = cmd.MarkFlagRequired("direction")
	_ = cmd.MarkFlagRequired("outcome")
	return cmd
}

func tradeFromFlags(cmd *cobra.Command, app *App) (models.Trade, error) {
	f := cmd.Flags()
	t := models.Trade{
		UserID:    app.Config.Journal.UserID,
		AccountID: app.Config.Journal.AccountID,
		Mode:      app.Config.AccountMode(),
	}

	dateStr, _ := f.GetString("date")
	if dateStr == "" {
		now := app.Now()
		t.Date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	} else {
		d, err := time.Parse(models.DateLayout, dateStr)
		if err != nil {
			return t, apperrors.NewValidationError("date", dateStr, "expected YYYY-MM-DD")
		}
		t.Date = d
	}

	raw, _ := f.GetString("direction")
	dir, ok := models.ParseDirection(raw)
	if !ok {
		return t, apperrors.NewValidationError("direction", raw, "must be Long or Short")
	}
	t.Direction = dir

	raw, _ = f.GetString("outcome")
	out, ok := models.ParseOutcome(raw)
	if !ok {
		return t, apperrors.NewValidationError("outcome", raw, "must be Win, Lose or BE")
	}
	t.Outcome = out

	if raw, _ = f.GetString("be-final"); raw != "" {
		final, ok := models.ParseOutcome(raw)
		if !ok || !final.IsWinOrLoss() {
			return t, apperrors.NewValidationError("be-final", raw, "must be Win or Lose")
		}
		t.BEFinalResult = final
	}
	if raw, _ = f.GetString("grade"); raw != "" {
		g, ok := models.ParseGrade(raw)
		if !ok {
			return t, apperrors.NewValidationError("grade", raw, "must be A+, A, B or C")
		}
		t.Evaluation = g
	}

	if notExecuted, _ := f.GetBool("not-executed"); notExecuted {
		t.Executed = models.BoolPtr(false)
	}

	t.Time, _ = f.GetString("time")
	t.Market, _ = f.GetString("market")
	t.BreakEven, _ = f.GetBool("be")
	t.PartialsTaken, _ = f.GetBool("partials")
	t.RiskPerTrade, _ = f.GetFloat64("risk")
	t.RiskReward, _ = f.GetFloat64("rr")
	t.PotentialRiskReward, _ = f.GetFloat64("potential-rr")
	t.StopLossSize, _ = f.GetFloat64("sl")
	t.CalculatedProfit, _ = f.GetFloat64("profit")
	t.PnLPercent, _ = f.GetFloat64("pnl")
	t.NewsRelated, _ = f.GetBool("news")
	t.NewsName, _ = f.GetString("news-name")
	t.NewsIntensity, _ = f.GetInt("intensity")
	t.LocalHighLow, _ = f.GetBool("local-hl")
	t.SetupType, _ = f.GetString("setup")
	t.LiquidityType, _ = f.GetString("liquidity")
	t.StrategyID, _ = f.GetString("strategy")
	t.Notes, _ = f.GetString("notes")
	return t, nil
}

func newTradeListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List logged trades, newest first",
		Example: `  journal trade list --preset 30days
  journal trade list --market EURUSD --market GBPUSD --limit 50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			q, err := queryFromFlags(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")

			svc, err := app.Service()
			if err != nil {
				return err
			}
			trades, _, err := svc.Trades(ctx, q)
			if err != nil {
				return err
			}
			trades = stats.ApplyFilters(trades, stats.FilterState{
				IncludeNonExecuted: q.IncludeNonExecuted || app.Config.Stats.IncludeNonExecuted,
				Order:              stats.DateDescending,
			})
			if limit > 0 && len(trades) > limit {
				trades = trades[:limit]
			}

			if output.IsJSON() {
				return output.JSON(trades)
			}
			if len(trades) == 0 {
				output.Info("No trades found.")
				return nil
			}

			layout := app.Config.UI.DateFormat
			table := NewTable(output, "ID", "Date", "Market", "Dir", "Result", "R:R", "P&L", "P&L %", "Setup")
			for _, t := range trades {
				result := FormatOutcome(t)
				if !t.IsExecuted() {
					result = output.DimText(result + " (skipped)")
				}
				table.AddRow(
					ShortID(t.ID),
					FormatDate(t.Date, layout),
					t.Market,
					string(t.Direction),
					result,
					FormatRiskReward(t.RiskReward),
					output.Signed(t.CalculatedProfit, utils.FormatPnL(t.CalculatedProfit, "")),
					output.Signed(t.PnLPercent, utils.FormatPercent(t.PnLPercent)),
					TruncateString(FormatOptional(t.SetupType), 16),
				)
			}
			table.Render()
			output.Dim("%s trades", utils.FormatCount(len(trades)))
			return nil
		},
	}
	addQueryFlags(cmd)
	cmd.Flags().Int("limit", 0, "maximum number of trades to show (0 for all)")
	return cmd
}

func newTradeShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			st, err := app.TradeStore()
			if err != nil {
				return err
			}
			t, err := st.GetTrade(ctx, args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(t)
			}

			executed := "yes"
			if !t.IsExecuted() {
				executed = "no"
			}
			lines := []string{
				fmt.Sprintf("Date:        %s %s", FormatDate(t.Date, app.Config.UI.DateFormat), t.Time),
				fmt.Sprintf("Market:      %s %s", t.Market, t.Direction),
				fmt.Sprintf("Result:      %s", FormatOutcome(*t)),
				fmt.Sprintf("Executed:    %s", executed),
				fmt.Sprintf("Profit:      %s (%s)", output.Signed(t.CalculatedProfit, utils.FormatPnL(t.CalculatedProfit, "")), utils.FormatPercent(t.PnLPercent)),
				fmt.Sprintf("Risk:        %.2f%%  R:R %s  potential %s", t.RiskPerTrade, FormatRiskReward(t.RiskReward), FormatRiskReward(t.PotentialRiskReward)),
				fmt.Sprintf("Setup:       %s / %s", FormatOptional(t.SetupType), FormatOptional(t.LiquidityType)),
				fmt.Sprintf("Strategy:    %s", FormatOptional(t.StrategyID)),
				fmt.Sprintf("Grade:       %s", FormatOptional(string(t.Evaluation))),
			}
			if t.NewsRelated {
				lines = append(lines, fmt.Sprintf("News:        %s (intensity %d)", FormatOptional(t.NewsName), t.NewsIntensity))
			}
			if notes := strings.TrimSpace(t.Notes); notes != "" {
				lines = append(lines, "Notes:       "+TruncateString(notes, 60))
			}
			lines = append(lines, output.DimText("Logged "+FormatAgo(t.CreatedAt, app.Now())))

			output.Box("Trade "+ShortID(t.ID), lines)
			return nil
		},
	}
}

func newTradeDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			st, err := app.TradeStore()
			if err != nil {
				return err
			}
			if err := st.DeleteTrade(ctx, args[0]); err != nil {
				return err
			}
			app.Logger.Info().Str("trade_id", args[0]).Msg("Trade deleted")
			if output.IsJSON() {
				return output.JSON(map[string]string{"deleted": args[0]})
			}
			output.Success("✓ Trade %s deleted", args[0])
			return nil
		},
	}
}
