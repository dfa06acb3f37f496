package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"trade-journal/internal/journal"
	"trade-journal/internal/logging"
	"trade-journal/internal/metrics"
	"trade-journal/internal/server"
)

func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve statistics over HTTP",
		Long: `Start a read-only JSON API over the journal.

Endpoints:
  GET /api/v1/stats/summary
  GET /api/v1/stats/categories?by=<dimension>
  GET /api/v1/stats/calendar?month=YYYY-MM
  GET /api/v1/stats/report
  GET /api/v1/presets
  GET /healthz
  GET /metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config
			if host, _ := cmd.Flags().GetString("host"); host != "" {
				cfg.Server.Host = host
			}
			if port, _ := cmd.Flags().GetInt("port"); port != 0 {
				cfg.Server.Port = port
			}

			logger := logging.WithOperation(app.Logger, "serve")
			reg := metrics.NewRegistry()
			svc, err := app.Service(journal.WithObserver(func(kind string, trades int, d time.Duration) {
				reg.RecordStats(kind, trades, d.Seconds())
			}))
			if err != nil {
				return err
			}

			srv := server.NewServer(server.Config{
				Host:            cfg.Server.Host,
				Port:            cfg.Server.Port,
				ProfitFactorCap: cfg.Stats.ProfitFactorCap,
				RateLimit:       cfg.Server.RateLimit,
				RateBurst:       cfg.Server.RateBurst,
			}, svc, reg, logger)

			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
			defer stop()

			output := NewOutput(cmd, app)
			if !output.IsJSON() {
				output.Info("Serving journal API on http://%s", cfg.ServerAddr())
				output.Dim("Press Ctrl+C to stop.")
			}
			return srv.Run(ctx, 10*time.Second)
		},
	}
	cmd.Flags().String("host", "", "listen host (overrides server.host)")
	cmd.Flags().Int("port", 0, "listen port (overrides server.port)")
	return cmd
}
