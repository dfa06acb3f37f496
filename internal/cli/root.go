// Package cli provides the command-line interface for the trade journal.
package cli

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"trade-journal/internal/config"
	"trade-journal/internal/journal"
	"trade-journal/internal/logging"
	"trade-journal/internal/store"
)

// Version information
const (
	Version   = "0.3.0"
	BuildDate = "2024-06-01"
)

// App holds the application dependencies. Fields left nil are built from the
// configuration on first use; a Config set before Execute must come with a
// Logger.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  store.TradeStore
	Now    func() time.Time

	ownsStore  bool
	baseLogger *zerolog.Logger
}

// NewApp returns an App that loads everything from disk.
func NewApp() *App {
	return &App{Now: time.Now}
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(app *App) *cobra.Command {
	if app.Now == nil {
		app.Now = time.Now
	}

	rootCmd := &cobra.Command{
		Use:   "journal",
		Short: "Trade journal statistics",
		Long: `journal records discretionary trades and turns them into statistics.

Trades are logged per account, imported from CSV or added by hand, and
summarized as win rates per category, profit factor, a trade quality index
and a monthly P&L calendar. The same statistics are served read-only over
HTTP with 'journal serve'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if app.Config == nil {
				dir, _ := cmd.Flags().GetString("config")
				if dir == "" {
					dir = config.DefaultConfigDir()
				}
				cfg, err := config.Load(dir)
				if err != nil {
					return err
				}
				app.Config = cfg
				app.Logger = logging.NewLoggerWithConfig(cfg.LogConfig())
			}

			if account, _ := cmd.Flags().GetString("account"); account != "" {
				app.Config.Journal.AccountID = account
			}

			if app.baseLogger == nil {
				base := app.Logger
				app.baseLogger = &base
			}
			logger := *app.baseLogger
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				logger = logger.Level(zerolog.DebugLevel)
			}
			app.Logger = logging.WithAccount(logger,
				app.Config.Journal.UserID, app.Config.Journal.AccountID, app.Config.Journal.Mode)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(logging.WithLogger(ctx, app.Logger))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/trade-journal)")
	rootCmd.PersistentFlags().String("account", "", "account ID (overrides journal.account_id)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd(app))
	rootCmd.AddCommand(newConfigCmd(app))
	addAccountCommands(rootCmd, app)
	addStrategyCommands(rootCmd, app)
	addTradeCommands(rootCmd, app)
	rootCmd.AddCommand(newImportCmd(app))
	addStatsCommands(rootCmd, app)
	addReportCommands(rootCmd, app)
	rootCmd.AddCommand(newServeCmd(app))
	addHelpCommands(rootCmd, app)

	return rootCmd
}

// TradeStore returns the store, opening the configured database on first use.
func (a *App) TradeStore() (store.TradeStore, error) {
	if a.Store != nil {
		return a.Store, nil
	}
	st, err := store.NewSQLiteStore(a.Config.Journal.Database)
	if err != nil {
		return nil, err
	}
	a.Logger.Debug().Str("path", a.Config.Journal.Database).Msg("SQLite store opened")
	a.Store = st
	a.ownsStore = true
	return st, nil
}

// Close releases the store when the App opened it.
func (a *App) Close() error {
	if a.Store == nil || !a.ownsStore {
		return nil
	}
	err := a.Store.Close()
	a.Store = nil
	a.ownsStore = false
	return err
}

// Scope returns the configured account scope.
func (a *App) Scope() journal.Scope {
	return journal.Scope{
		UserID:    a.Config.Journal.UserID,
		AccountID: a.Config.Journal.AccountID,
		Mode:      a.Config.AccountMode(),
	}
}

// Service builds the statistics service for the configured scope.
func (a *App) Service(opts ...journal.Option) (*journal.Service, error) {
	st, err := a.TradeStore()
	if err != nil {
		return nil, err
	}
	settings := journal.Settings{
		BEResolution:       a.Config.BEResolution(),
		IncludeNonExecuted: a.Config.Stats.IncludeNonExecuted,
		Scorer:             a.Config.Scorer(),
	}
	base := []journal.Option{
		journal.WithClock(a.Now),
		journal.WithLogger(a.Logger),
	}
	return journal.NewService(st, a.Scope(), settings, append(base, opts...)...), nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, 30*time.Second)
}

func newVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("Trade Journal v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate the journal configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)
			path := config.ConfigPath(app.Config.Dir)
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": path})
			}
			output.Println(path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, app)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Journal")
	output.Printf("  User:        %s\n", cfg.Journal.UserID)
	output.Printf("  Account:     %s\n", FormatOptional(cfg.Journal.AccountID))
	output.Printf("  Mode:        %s\n", cfg.Journal.Mode)
	output.Printf("  Database:    %s\n", cfg.Journal.Database)
	output.Println()

	output.Bold("Statistics")
	output.Printf("  BE resolution:        %s\n", cfg.Stats.BEResolution)
	output.Printf("  Include non-executed: %v\n", cfg.Stats.IncludeNonExecuted)
	output.Printf("  TQI scorer:           %s\n", cfg.Stats.TQIScorer)
	output.Printf("  Profit factor cap:    %.0f\n", cfg.Stats.ProfitFactorCap)
	output.Println()

	output.Bold("Server")
	output.Printf("  Address:     %s\n", cfg.ServerAddr())
	if cfg.Server.RateLimit > 0 {
		output.Printf("  Rate limit:  %.0f req/s (burst %d)\n", cfg.Server.RateLimit, cfg.Server.RateBurst)
	} else {
		output.Printf("  Rate limit:  off\n")
	}
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:       %s\n", cfg.Logging.Level)
	output.Printf("  File:        %v\n", cfg.Logging.File)
}
