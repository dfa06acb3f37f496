// Package config provides configuration management for the journal.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
	"trade-journal/internal/stats"
)

// EnvPrefix prefixes environment overrides, e.g. JOURNAL_SERVER_PORT.
const EnvPrefix = "JOURNAL"

// Config holds all application configuration.
type Config struct {
	Journal JournalConfig `mapstructure:"journal"`
	Stats   StatsConfig   `mapstructure:"stats"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	UI      UIConfig      `mapstructure:"ui"`

	// Dir is the directory the configuration was loaded from.
	Dir string `mapstructure:"-"`
}

// JournalConfig selects whose trades are read and where they live.
type JournalConfig struct {
	UserID    string `mapstructure:"user_id"`
	AccountID string `mapstructure:"account_id"`
	Mode      string `mapstructure:"mode"` // live, demo, backtesting
	Database  string `mapstructure:"database"`
}

// StatsConfig holds statistics defaults.
type StatsConfig struct {
	BEResolution       string  `mapstructure:"be_resolution"` // final_result, outcome
	IncludeNonExecuted bool    `mapstructure:"include_non_executed"`
	TQIScorer          string  `mapstructure:"tqi_scorer"`
	ProfitFactorCap    float64 `mapstructure:"profit_factor_cap"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// RateLimit is the sustained requests per second across all clients; 0 disables limiting.
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

// LoggingConfig mirrors logging.LogConfig.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/trade-journal"
	}
	return filepath.Join(home, ".config", "trade-journal")
}

// ConfigPath returns the path of config.toml inside configDir.
func ConfigPath(configDir string) string {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	return filepath.Join(configDir, "config.toml")
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("journal.user_id", "default")
	v.SetDefault("journal.account_id", "")
	v.SetDefault("journal.mode", string(models.ModeLive))
	v.SetDefault("journal.database", filepath.Join(configDir, "journal.db"))

	v.SetDefault("stats.be_resolution", string(stats.BEFromFinalResult))
	v.SetDefault("stats.include_non_executed", false)
	v.SetDefault("stats.tqi_scorer", stats.BalancedScorerName)
	v.SetDefault("stats.profit_factor_cap", stats.ProfitFactorDisplayCap)

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8787)
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", false)
	v.SetDefault("logging.file_path", filepath.Join(configDir, "logs", "journal.log"))
	v.SetDefault("logging.max_size", 20)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 30)

	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.date_format", "02 Jan 2006")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config.toml is created from the template. A .env file in configDir or
// the working directory is loaded before JOURNAL_* overrides are applied.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	if err := loadDotEnv(configDir); err != nil {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		if err := createTemplateConfig(configDir); err != nil {
			return nil, err
		}
	}

	cfg := &Config{Dir: configDir}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func loadDotEnv(configDir string) error {
	for _, path := range []string{filepath.Join(configDir, ".env"), ".env"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		// Existing environment variables win over .env entries.
		if err := godotenv.Load(path); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Journal.UserID) == "" {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "journal.user_id must be set")
	}
	if _, ok := models.ParseAccountMode(c.Journal.Mode); !ok {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "journal.mode %q must be live, demo or backtesting", c.Journal.Mode)
	}
	if c.Journal.Database == "" {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "journal.database must be set")
	}
	if _, ok := stats.ParseBEResolution(c.Stats.BEResolution); !ok {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "stats.be_resolution %q must be final_result or outcome", c.Stats.BEResolution)
	}
	if _, err := stats.LookupScorer(c.Stats.TQIScorer); err != nil {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "stats.tqi_scorer %q is not registered", c.Stats.TQIScorer)
	}
	if c.Stats.ProfitFactorCap <= 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "stats.profit_factor_cap must be positive")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "server.port %d out of range", c.Server.Port)
	}
	if c.Server.RateLimit < 0 {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "server.rate_limit must not be negative")
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "server.rate_burst must be at least 1")
	}
	return nil
}

// AccountMode returns the configured mode as a model value.
func (c *Config) AccountMode() models.AccountMode {
	return models.AccountMode(c.Journal.Mode)
}

// BEResolution returns the configured break-even resolution.
func (c *Config) BEResolution() stats.BEResolution {
	r, _ := stats.ParseBEResolution(c.Stats.BEResolution)
	return r
}

// Scorer returns the configured quality scorer, falling back to the
// balanced scorer.
func (c *Config) Scorer() stats.Scorer {
	if s, err := stats.LookupScorer(c.Stats.TQIScorer); err == nil {
		return s
	}
	return stats.BalancedScorer
}

// ServerAddr returns host:port for the HTTP API.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// LogConfig converts the logging table to a logging.LogConfig.
func (c *Config) LogConfig() logging.LogConfig {
	return logging.LogConfig{
		Level:      c.Logging.Level,
		Console:    c.Logging.Console,
		NoColor:    !c.UI.ColorEnabled,
		File:       c.Logging.File,
		FilePath:   c.Logging.FilePath,
		MaxSize:    c.Logging.MaxSize,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAge,
	}
}
