package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

type harness struct {
	t   *testing.T
	app *App
	dir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("JOURNAL_LOGGING_CONSOLE", "false")
	app := NewApp()
	app.Now = func() time.Time { return time.Date(2024, time.March, 20, 9, 30, 0, 0, time.Local) }
	return &harness{t: t, app: app, dir: t.TempDir()}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	root := NewRootCmd(h.app)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", h.dir}, args...))
	err := root.Execute()
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, out)
	return out
}

func (h *harness) createAccount() string {
	h.t.Helper()
	var acc models.Account
	out := h.mustRun("account", "add", "Main", "--balance", "10000", "--json")
	require.NoError(h.t, json.Unmarshal([]byte(out), &acc))
	require.NotEmpty(h.t, acc.ID)
	return acc.ID
}

func TestCLI_Version(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("version")
	assert.Contains(t, out, "Trade Journal v"+Version)
	assert.FileExists(t, filepath.Join(h.dir, "config.toml"))
}

func TestCLI_Config(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("config", "path")
	assert.Equal(t, filepath.Join(h.dir, "config.toml"), strings.TrimSpace(out))

	out = h.mustRun("config", "validate")
	assert.Contains(t, out, "Configuration is valid")

	out = h.mustRun("config", "show")
	assert.Contains(t, out, "BE resolution")
}

func TestCLI_AccountsAndStrategies(t *testing.T) {
	h := newHarness(t)
	id := h.createAccount()

	out := h.mustRun("--account", id, "account", "list")
	assert.Contains(t, out, "Main")
	assert.Contains(t, out, "$10,000")

	var strategy models.Strategy
	out = h.mustRun("--account", id, "strategy", "add", "London breakout", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &strategy))
	assert.True(t, strategy.Active)

	h.mustRun("--account", id, "strategy", "archive", strategy.ID)
	out = h.mustRun("--account", id, "strategy", "list")
	assert.Contains(t, out, "No strategies found")
	out = h.mustRun("--account", id, "strategy", "list", "--all")
	assert.Contains(t, out, "archived")

	_, err := h.run("strategy", "archive", "missing")
	assert.True(t, errors.Is(err, apperrors.ErrStrategyNotFound))

	_, err = h.run("account", "add", "Bad", "--mode", "paper")
	assert.True(t, errors.Is(err, apperrors.ErrInputValidation))
}

func TestCLI_TradeLifecycle(t *testing.T) {
	h := newHarness(t)
	id := h.createAccount()

	var trade models.Trade
	out := h.mustRun("--account", id, "trade", "add",
		"--date", "2024-03-04", "--market", "EURUSD", "--direction", "Long",
		"--outcome", "Win", "--pnl", "1.5", "--rr", "2", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &trade))
	assert.InDelta(t, 150, trade.CalculatedProfit, 1e-9)

	out = h.mustRun("--account", id, "trade", "show", trade.ID)
	assert.Contains(t, out, "EURUSD Long")
	assert.Contains(t, out, "1:2.00")

	out = h.mustRun("--account", id, "trade", "list")
	assert.Contains(t, out, "EURUSD")
	assert.Contains(t, out, "1 trades")

	h.mustRun("--account", id, "trade", "delete", trade.ID)
	_, err := h.run("--account", id, "trade", "show", trade.ID)
	assert.True(t, errors.Is(err, apperrors.ErrTradeNotFound))

	_, err = h.run("--account", id, "trade", "add", "--market", "EURUSD", "--direction", "Up", "--outcome", "Win")
	assert.True(t, errors.Is(err, apperrors.ErrInputValidation))
}

const importCSV = `date,market,direction,outcome,break_even,be_final_result,calculated_profit,pnl_percent,setup_type,news_related,news_name,news_intensity
2024-03-04,EURUSD,Long,Win,,,300,3,Breakout,,,
2024-03-05,EURUSD,Short,Lose,,,-100,-1,Breakout,yes,CPI,3
2024-03-07,GBPUSD,Long,BE,yes,Win,0,0,Reversal,,,
2024-03-12,GBPUSD,Long,Win,,,200,2,,yes,NFP,3
2024-02-20,XAUUSD,Short,Lose,,,-50,-0.5,Reversal,,,
not-a-date,EURUSD,Long,Win,,,10,0.1,,,,
`

func (h *harness) importFixture(accountID string) {
	h.t.Helper()
	path := filepath.Join(h.dir, "trades.csv")
	require.NoError(h.t, os.WriteFile(path, []byte(importCSV), 0600))
	out := h.mustRun("--account", accountID, "import", path, "--batch-size", "2")
	assert.Contains(h.t, out, "Imported 5 trades in 3 batches")
	assert.Contains(h.t, out, "1 rows skipped")
}

func TestCLI_StatsSummary(t *testing.T) {
	h := newHarness(t)
	id := h.createAccount()
	h.importFixture(id)

	var res struct {
		Summary struct {
			TotalTrades  int     `json:"total_trades"`
			Wins         int     `json:"wins"`
			Losses       int     `json:"losses"`
			BEWins       int     `json:"be_wins"`
			NetProfit    float64 `json:"net_profit"`
			ProfitFactor float64 `json:"profit_factor"`
		} `json:"summary"`
	}
	out := h.mustRun("--account", id, "stats", "summary", "--preset", "month", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 4, res.Summary.TotalTrades)
	assert.Equal(t, 2, res.Summary.Wins)
	assert.Equal(t, 1, res.Summary.Losses)
	assert.Equal(t, 1, res.Summary.BEWins)
	assert.InDelta(t, 400, res.Summary.NetProfit, 1e-9)
	assert.InDelta(t, 5, res.Summary.ProfitFactor, 1e-9)

	out = h.mustRun("--account", id, "stats", "summary")
	assert.Contains(t, out, "Profit factor")
	assert.Contains(t, out, "2024-02-20 → 2024-03-12")

	out = h.mustRun("--account", id, "stats", "summary", "--from", "2024-03-01")
	assert.Contains(t, out, "2024-03-01 → 2024-03-12")
	assert.NotContains(t, out, "9999-12-31")

	_, err := h.run("--account", id, "stats", "summary", "--preset", "decade")
	assert.True(t, errors.Is(err, apperrors.ErrUnknownPreset))

	_, err = h.run("--account", id, "stats", "summary", "--preset", "month", "--from", "2024-01-01")
	assert.True(t, errors.Is(err, apperrors.ErrInputValidation))
}

func TestCLI_StatsBy(t *testing.T) {
	h := newHarness(t)
	id := h.createAccount()
	h.importFixture(id)

	var res struct {
		Dimension string `json:"dimension"`
		Rows      []struct {
			GroupLabel string `json:"group_label"`
			Total      int    `json:"total"`
		} `json:"rows"`
	}
	out := h.mustRun("--account", id, "stats", "by", "news", "--include-unnamed", "--intensity", "3", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "news", res.Dimension)
	labels := make([]string, 0, len(res.Rows))
	for _, r := range res.Rows {
		labels = append(labels, r.GroupLabel)
	}
	assert.ElementsMatch(t, []string{"CPI", "NFP"}, labels)

	out = h.mustRun("--account", id, "stats", "by", "market", "--order", "label")
	assert.Contains(t, out, "EURUSD")
	assert.Contains(t, out, "XAUUSD")

	_, err := h.run("--account", id, "stats", "by", "moon")
	assert.True(t, errors.Is(err, apperrors.ErrUnknownDimension))

	_, err = h.run("--account", id, "stats", "by", "news", "--intensity", "4")
	assert.True(t, errors.Is(err, apperrors.ErrInputValidation))
	_, err = h.run("--account", id, "stats", "by", "news", "--intensity", "-1")
	assert.True(t, errors.Is(err, apperrors.ErrInputValidation))
}

func TestCLI_Calendar(t *testing.T) {
	h := newHarness(t)
	id := h.createAccount()
	h.importFixture(id)

	out := h.mustRun("--account", id, "stats", "calendar", "--month", "2024-03")
	assert.Contains(t, out, "March 2024")
	assert.Contains(t, out, "+300")
	assert.Contains(t, out, "Mar 1-8")

	var cal struct {
		Days []struct {
			Color string `json:"color"`
		} `json:"days"`
	}
	out = h.mustRun("--account", id, "stats", "calendar", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &cal))
	require.Len(t, cal.Days, 31)
	assert.Equal(t, "green", cal.Days[3].Color)
	assert.Equal(t, "red", cal.Days[4].Color)
	assert.Equal(t, "green", cal.Days[6].Color)

	_, err := h.run("stats", "calendar", "--month", "03/2024")
	assert.True(t, errors.Is(err, apperrors.ErrInputValidation))
}

func TestCLI_Presets(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("stats", "presets")
	assert.Contains(t, out, "2024-03-06")
	assert.Contains(t, out, "2024-02-20")
	assert.Contains(t, out, "2024-12-31")
}

func TestCLI_ReportExport(t *testing.T) {
	h := newHarness(t)
	id := h.createAccount()
	h.importFixture(id)

	path := filepath.Join(h.dir, "report.yaml")
	out := h.mustRun("--account", id, "report", "export", "--by", "market,setup", "-o", path)
	assert.Contains(t, out, "Report written")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rep struct {
		Summary struct {
			TotalTrades int `yaml:"total_trades"`
		} `yaml:"summary"`
		Categories map[string][]map[string]interface{} `yaml:"categories"`
	}
	require.NoError(t, yaml.Unmarshal(data, &rep))
	assert.Equal(t, 5, rep.Summary.TotalTrades)
	assert.Len(t, rep.Categories, 2)
	assert.Contains(t, rep.Categories, "setup")

	_, err = h.run("report", "export", "--format", "xml")
	assert.True(t, errors.Is(err, apperrors.ErrInputValidation))
}

func TestCLI_Guides(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("quickstart")
	assert.Contains(t, out, "Step 1: Create an Account")

	out = h.mustRun("examples")
	assert.Contains(t, out, "Weekly Review")

	var view map[string][]string
	out = h.mustRun("examples", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Contains(t, view, "Monthly Report")
}
