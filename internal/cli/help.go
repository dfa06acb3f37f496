package cli

import (
	"github.com/spf13/cobra"
)

// addHelpCommands adds guide and example commands.
func addHelpCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newExamplesCmd(app))
	rootCmd.AddCommand(newQuickstartCmd(app))
}

type helpExample struct {
	title    string
	commands []string
}

var workflowExamples = []helpExample{
	{
		title: "Logging Trades",
		commands: []string{
			"journal trade add --market EURUSD --direction Long --outcome Win --pnl 1.5",
			"journal trade add --market GBPUSD --direction Short --outcome BE --be-final Win",
			"journal import trades.csv              # bulk import a CSV export",
			"journal trade list --preset 15days      # recent trades",
		},
	},
	{
		title: "Weekly Review",
		commands: []string{
			"journal stats summary --preset 15days   # win rate, profit factor, TQI",
			"journal stats by setup --order total    # which setups carry the week",
			"journal stats by news --intensity 3     # high impact news only",
			"journal stats calendar                  # this month's P&L grid",
		},
	},
	{
		title: "Monthly Report",
		commands: []string{
			"journal report export --preset month -o month.yaml",
			"journal report export --format json --by market,direction",
		},
	},
	{
		title: "Dashboard",
		commands: []string{
			"journal serve",
			"curl localhost:8787/api/v1/stats/summary?preset=month",
			"curl localhost:8787/api/v1/stats/categories?by=market",
		},
	},
}

func newExamplesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "Show common workflow examples",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)
			if output.IsJSON() {
				view := make(map[string][]string, len(workflowExamples))
				for _, ex := range workflowExamples {
					view[ex.title] = ex.commands
				}
				return output.JSON(view)
			}

			output.Bold("Common Workflow Examples")
			output.Println()
			for _, ex := range workflowExamples {
				output.Printf("%s\n", output.Yellow(ex.title))
				for _, c := range ex.commands {
					output.Printf("  %s\n", c)
				}
				output.Println()
			}
			return nil
		},
	}
}

func newQuickstartCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "quickstart",
		Short: "New user guide",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)

			output.Bold("Trade Journal - Quick Start Guide")
			output.Println()

			steps := []struct {
				title string
				desc  string
				cmd   string
			}{
				{
					title: "Create an Account",
					desc:  "Balances turn P&L percentages into amounts.",
					cmd:   "journal account add Main --balance 10000",
				},
				{
					title: "Select It",
					desc:  "Set journal.account_id in config.toml or pass --account.",
					cmd:   "journal config path",
				},
				{
					title: "Add Strategies",
					desc:  "Optional. Trades can be filtered by strategy later.",
					cmd:   "journal strategy add \"London breakout\"",
				},
				{
					title: "Record Trades",
					desc:  "By hand, or import a CSV export with a header row.",
					cmd:   "journal import trades.csv",
				},
				{
					title: "Review",
					desc:  "Summaries, category breakdowns and the monthly calendar.",
					cmd:   "journal stats summary --preset month",
				},
			}

			for i, s := range steps {
				output.Printf("%s Step %d: %s\n", output.Green("→"), i+1, s.title)
				output.Printf("  %s\n", s.desc)
				output.Printf("  %s\n\n", output.DimText(s.cmd))
			}

			output.Bold("Configuration")
			output.Println()
			output.Printf("  %s - journal, stats, UI and server settings\n", output.Yellow("config.toml"))
			output.Printf("  %s - JOURNAL_* overrides, loaded before the environment\n", output.Yellow(".env"))
			output.Println()
			output.Dim("Run 'journal examples' for common workflows.")
			return nil
		},
	}
}
