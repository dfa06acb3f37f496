package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/importer"
	"trade-journal/internal/logging"
	"trade-journal/pkg/utils"
)

func newImportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import trades from a CSV export",
		Long: `Import trades from a CSV file with a header row.

Recognised columns: date, time, market, direction, outcome, break_even,
be_final_result, executed, partials_taken, risk_per_trade, risk_reward,
potential_risk_reward, stop_loss_size, calculated_profit, pnl_percent,
news_related, news_name, news_intensity, local_high_low, setup_type,
liquidity_type, strategy_id, notes, evaluation.

Invalid rows are reported and skipped; valid rows are written in batches.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("opening %s: %w", path, err)
			}
			defer f.Close()

			batchSize, _ := cmd.Flags().GetInt("batch-size")
			st, err := app.TradeStore()
			if err != nil {
				return err
			}
			imp := importer.New(st,
				app.Config.Journal.UserID, app.Config.Journal.AccountID, app.Config.AccountMode(),
				importer.WithBatchSize(batchSize),
				importer.WithLogger(logging.WithOperation(app.Logger, "import")),
			)

			res, err := imp.ImportCSV(ctx, filepath.Base(path), f)
			if err != nil {
				if res.Imported > 0 && !output.IsJSON() {
					output.Warning("%s trades were saved before the import stopped", utils.FormatCount(res.Imported))
				}
				return err
			}

			if output.IsJSON() {
				return output.JSON(importView(res))
			}
			output.Success("✓ Imported %s trades in %d batches", utils.FormatCount(res.Imported), res.Batches)
			if res.Skipped == 0 {
				return nil
			}
			output.Warning("%s rows skipped", utils.FormatCount(res.Skipped))
			table := NewTable(output, "Line", "Problem")
			for _, e := range res.Errors {
				table.AddRow(fmt.Sprintf("%d", e.Line), importProblem(e))
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().Int("batch-size", importer.DefaultBatchSize, "trades written per transaction")
	return cmd
}

type importRowError struct {
	Line    int    `json:"line"`
	Problem string `json:"problem"`
}

func importProblem(e *apperrors.ImportError) string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Reason
}

func importView(res importer.Result) map[string]interface{} {
	rows := make([]importRowError, 0, len(res.Errors))
	for _, e := range res.Errors {
		rows = append(rows, importRowError{Line: e.Line, Problem: importProblem(e)})
	}
	return map[string]interface{}{
		"imported": res.Imported,
		"skipped":  res.Skipped,
		"batches":  res.Batches,
		"errors":   rows,
	}
}
