package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Trade Journal Configuration

[journal]
# Owner of the journal entries
user_id = "default"
# Account scope; empty reads every account of the user
account_id = ""
# Account mode: "live", "demo" or "backtesting"
mode = "live"
# SQLite database file (defaults to journal.db next to this file)
# database = "/path/to/journal.db"

[stats]
# Which field decides BE wins/losses: "final_result" or "outcome"
be_resolution = "final_result"
# Count trades marked as not executed
include_non_executed = false
# Trade quality index scorer
tqi_scorer = "balanced-v1"
# Upper bound used when charting profit factor
profit_factor_cap = 5.0

[server]
host = "127.0.0.1"
port = 8787
# Requests per second across all clients (0 disables) and burst size
rate_limit = 20.0
rate_burst = 40

[logging]
# debug, info, warn, error
level = "info"
console = true
file = false
max_size = 20
max_backups = 5
max_age = 30

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "02 Jan 2006"
`

const envTemplate = `# Environment overrides for the trade journal.
# Any config key can be set as JOURNAL_<TABLE>_<KEY>, for example:
# JOURNAL_JOURNAL_ACCOUNT_ID=main
# JOURNAL_SERVER_PORT=9090
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0600); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	envPath := filepath.Join(configDir, ".env.example")
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		if err := os.WriteFile(envPath, []byte(envTemplate), 0600); err != nil {
			return fmt.Errorf("writing env template: %w", err)
		}
	}

	return nil
}
