package cli

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
	"trade-journal/internal/store"
	"trade-journal/pkg/utils"
)

// addAccountCommands adds account and strategy management commands.
func addAccountCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Trading account management",
		Long:  "Create and list the accounts trades are logged against.",
	}
	cmd.AddCommand(newAccountAddCmd(app))
	cmd.AddCommand(newAccountListCmd(app))
	rootCmd.AddCommand(cmd)
}

func newAccountAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create an account",
		Example: `  journal account add "FTMO 100k" --mode demo --balance 100000
  journal account add Personal --balance 2500 --currency EUR`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			modeStr, _ := cmd.Flags().GetString("mode")
			mode, ok := models.ParseAccountMode(modeStr)
			if !ok {
				return apperrors.NewValidationError("mode", modeStr, "must be live, demo or backtesting")
			}
			balanceStr, _ := cmd.Flags().GetString("balance")
			balance, err := decimal.NewFromString(balanceStr)
			if err != nil {
				return apperrors.NewValidationError("balance", balanceStr, "must be a number")
			}
			currency, _ := cmd.Flags().GetString("currency")

			st, err := app.TradeStore()
			if err != nil {
				return err
			}
			acc := &models.Account{
				UserID:   app.Config.Journal.UserID,
				Name:     strings.TrimSpace(args[0]),
				Mode:     mode,
				Balance:  balance,
				Currency: strings.ToUpper(currency),
			}
			if err := st.SaveAccount(ctx, acc); err != nil {
				return err
			}
			app.Logger.Info().Str("account_id", acc.ID).Str("name", acc.Name).Msg("Account created")

			if output.IsJSON() {
				return output.JSON(acc)
			}
			output.Success("✓ Account %s created", acc.Name)
			output.Printf("  ID: %s\n", acc.ID)
			output.Dim("Set journal.account_id or pass --account %s to use it.", acc.ID)
			return nil
		},
	}
	cmd.Flags().String("mode", string(models.ModeLive), "account mode: live, demo, backtesting")
	cmd.Flags().String("balance", "0", "account balance used for return percentages")
	cmd.Flags().String("currency", "USD", "account currency code")
	return cmd
}

func newAccountListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			st, err := app.TradeStore()
			if err != nil {
				return err
			}
			accounts, err := st.ListAccounts(ctx, app.Config.Journal.UserID)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				if accounts == nil {
					accounts = []models.Account{}
				}
				return output.JSON(accounts)
			}
			if len(accounts) == 0 {
				output.Info("No accounts yet. Create one with 'journal account add'.")
				return nil
			}

			table := NewTable(output, "", "ID", "Name", "Mode", "Balance")
			for _, a := range accounts {
				marker := " "
				if a.ID == app.Config.Journal.AccountID {
					marker = output.Green("*")
				}
				table.AddRow(marker, a.ID, a.Name, string(a.Mode), utils.FormatCurrency(a.BalanceFloat(), a.Currency))
			}
			table.Render()
			return nil
		},
	}
}

// addStrategyCommands adds strategy management commands.
func addStrategyCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "strategy",
		Short: "Strategy management",
		Long:  "Create, list and archive the strategies trades can be tagged with.",
	}
	cmd.AddCommand(newStrategyAddCmd(app))
	cmd.AddCommand(newStrategyListCmd(app))
	cmd.AddCommand(newStrategyActiveCmd(app, "archive", false))
	cmd.AddCommand(newStrategyActiveCmd(app, "activate", true))
	rootCmd.AddCommand(cmd)
}

func newStrategyAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a strategy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			description, _ := cmd.Flags().GetString("description")
			st, err := app.TradeStore()
			if err != nil {
				return err
			}
			strategy := &models.Strategy{
				UserID:      app.Config.Journal.UserID,
				AccountID:   app.Config.Journal.AccountID,
				Name:        args[0],
				Description: description,
			}
			if err := st.SaveStrategy(ctx, strategy); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(strategy)
			}
			output.Success("✓ Strategy %s created", strategy.Name)
			output.Printf("  ID: %s\n", strategy.ID)
			return nil
		},
	}
	cmd.Flags().String("description", "", "strategy description")
	return cmd
}

func newStrategyListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List strategies",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			all, _ := cmd.Flags().GetBool("all")
			st, err := app.TradeStore()
			if err != nil {
				return err
			}
			strategies, err := st.ListStrategies(ctx, store.StrategyFilter{
				UserID:          app.Config.Journal.UserID,
				AccountID:       app.Config.Journal.AccountID,
				IncludeArchived: all,
			})
			if err != nil {
				return err
			}
			if output.IsJSON() {
				if strategies == nil {
					strategies = []models.Strategy{}
				}
				return output.JSON(strategies)
			}
			if len(strategies) == 0 {
				output.Info("No strategies found.")
				return nil
			}

			table := NewTable(output, "ID", "Name", "Status", "Description")
			for _, s := range strategies {
				status := output.Green("active")
				if s.Archived() {
					status = output.DimText("archived")
				}
				table.AddRow(s.ID, s.Name, status, TruncateString(FormatOptional(s.Description), 40))
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().Bool("all", false, "include archived strategies")
	return cmd
}

func newStrategyActiveCmd(app *App, use string, active bool) *cobra.Command {
	short := "Archive a strategy"
	if active {
		short = "Restore an archived strategy"
	}
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			st, err := app.TradeStore()
			if err != nil {
				return err
			}
			if err := st.SetStrategyActive(ctx, args[0], active); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"id": args[0], "active": active})
			}
			output.Success("✓ Strategy %s %sd", args[0], use)
			return nil
		},
	}
}
