package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/journal"
)

// addReportCommands adds report export commands.
func addReportCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export statistics reports",
	}
	cmd.AddCommand(newReportExportCmd(app))
	rootCmd.AddCommand(cmd)
}

func newReportExportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a summary with category breakdowns",
		Long: `Export the summary and one breakdown per dimension as YAML or JSON.

Without --by every dimension is included.`,
		Example: `  journal report export --preset month
  journal report export --format json --by market,setup --output march.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)
			ctx, cancel := commandContext(cmd)
			defer cancel()

			format, _ := cmd.Flags().GetString("format")
			format = strings.ToLower(format)
			if format != "yaml" && format != "json" {
				return apperrors.NewValidationError("format", format, "must be yaml or json")
			}
			dims, _ := cmd.Flags().GetStringSlice("by")
			path, _ := cmd.Flags().GetString("output")

			q, err := queryFromFlags(cmd)
			if err != nil {
				return err
			}
			svc, err := app.Service()
			if err != nil {
				return err
			}
			rep, err := svc.Report(ctx, q, dims)
			if err != nil {
				return err
			}

			if path == "" {
				return writeReport(cmd.OutOrStdout(), format, rep)
			}
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("creating %s: %w", path, err)
			}
			if err := writeReport(f, format, rep); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			app.Logger.Info().Str("path", path).Str("format", format).Msg("Report exported")
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": path, "format": format})
			}
			output.Success("✓ Report written to %s", path)
			return nil
		},
	}
	addQueryFlags(cmd)
	cmd.Flags().String("format", "yaml", "output format: yaml, json")
	cmd.Flags().StringSlice("by", nil, "dimensions to include (default all)")
	cmd.Flags().StringP("output", "o", "", "write to file instead of stdout")
	return cmd
}

func writeReport(w io.Writer, format string, rep journal.Report) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rep); err != nil {
		return err
	}
	return enc.Close()
}
