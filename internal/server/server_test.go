package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-journal/internal/journal"
	"trade-journal/internal/metrics"
	"trade-journal/internal/models"
	"trade-journal/internal/stats"
	"trade-journal/internal/store"
)

var testNow = time.Date(2024, time.March, 20, 12, 0, 0, 0, time.Local)

func seedTrade(date, market string, dir models.Direction, outcome models.Outcome, profit float64) models.Trade {
	d, _ := time.Parse(models.DateLayout, date)
	return models.Trade{
		UserID:           "u1",
		AccountID:        "acc",
		Mode:             models.ModeLive,
		Date:             d,
		Market:           market,
		Direction:        dir,
		Outcome:          outcome,
		CalculatedProfit: profit,
		PnLPercent:       profit / 100,
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	ctx := context.Background()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	acc := &models.Account{ID: "acc", UserID: "u1", Name: "Main", Mode: models.ModeLive, Balance: decimal.NewFromInt(10000)}
	require.NoError(t, st.SaveAccount(ctx, acc))
	require.NoError(t, st.SaveTrades(ctx, []models.Trade{
		seedTrade("2024-03-04", "EURUSD", models.DirectionLong, models.OutcomeWin, 300),
		seedTrade("2024-03-05", "EURUSD", models.DirectionShort, models.OutcomeLose, -100),
		seedTrade("2024-03-07", "GBPUSD", models.DirectionLong, models.OutcomeWin, 200),
		seedTrade("2024-02-12", "GBPUSD", models.DirectionShort, models.OutcomeLose, -50),
	}))

	reg := metrics.NewRegistry()
	svc := journal.NewService(st,
		journal.Scope{UserID: "u1", AccountID: "acc", Mode: models.ModeLive},
		journal.Settings{Scorer: stats.BalancedScorer},
		journal.WithClock(func() time.Time { return testNow }),
		journal.WithObserver(func(kind string, trades int, d time.Duration) {
			reg.RecordStats(kind, trades, d.Seconds())
		}),
	)
	return NewServer(Config{Host: "127.0.0.1", Port: 0, ProfitFactorCap: 5}, svc, reg, zerolog.Nop())
}

func doGet(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
		Meta Meta            `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.NotEmpty(t, env.Meta.RequestID)
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t)

	w := doGet(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	var body map[string]string
	decodeData(t, w, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestServer_Summary(t *testing.T) {
	srv := newTestServer(t)

	w := doGet(t, srv, "/api/v1/stats/summary?preset=month")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Selection struct {
			Preset string `json:"preset"`
		} `json:"selection"`
		Summary struct {
			TotalTrades  int      `json:"total_trades"`
			Wins         int      `json:"wins"`
			Losses       int      `json:"losses"`
			NetProfit    float64  `json:"net_profit"`
			ReturnPct    float64  `json:"return_percent"`
			ProfitFactor float64  `json:"profit_factor"`
			QualityScore *float64 `json:"quality_score"`
		} `json:"summary"`
		ProfitFactorDisplay float64 `json:"profit_factor_display"`
	}
	decodeData(t, w, &body)
	assert.Equal(t, "month", body.Selection.Preset)
	assert.Equal(t, 3, body.Summary.TotalTrades)
	assert.Equal(t, 2, body.Summary.Wins)
	assert.Equal(t, 1, body.Summary.Losses)
	assert.InDelta(t, 400, body.Summary.NetProfit, 1e-9)
	assert.InDelta(t, 4, body.Summary.ReturnPct, 1e-9)
	assert.InDelta(t, 5, body.Summary.ProfitFactor, 1e-9)
	assert.InDelta(t, 5, body.ProfitFactorDisplay, 1e-9)
	assert.NotNil(t, body.Summary.QualityScore)
}

func TestServer_Categories(t *testing.T) {
	srv := newTestServer(t)

	w := doGet(t, srv, "/api/v1/stats/categories?by=market&order=label")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body journal.CategoryResult
	decodeData(t, w, &body)
	assert.Equal(t, "market", body.Dimension)
	require.Len(t, body.Rows, 2)
	assert.Equal(t, "EURUSD", body.Rows[0].GroupLabel)
	assert.Equal(t, 2, body.Rows[0].Total)
	assert.Equal(t, "GBPUSD", body.Rows[1].GroupLabel)

	w = doGet(t, srv, "/api/v1/stats/categories?by=direction&direction=Long")
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &body)
	require.Len(t, body.Rows, 1)
	assert.Equal(t, "Long", body.Rows[0].GroupLabel)
	assert.Equal(t, 2, body.Rows[0].Wins)
}

func TestServer_Calendar(t *testing.T) {
	srv := newTestServer(t)

	w := doGet(t, srv, "/api/v1/stats/calendar?month=2024-03")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var cal stats.CalendarMonth
	decodeData(t, w, &cal)
	assert.Len(t, cal.Days, 31)
	assert.Equal(t, stats.ColorGreen, cal.Days[3].Color)
	assert.Equal(t, stats.ColorRed, cal.Days[4].Color)
	assert.Equal(t, "Mar 1-8", cal.Weeks[0].WeekLabel)
	assert.InDelta(t, 400, cal.Weeks[0].TotalProfit, 1e-9)
}

func TestServer_Presets(t *testing.T) {
	srv := newTestServer(t)

	w := doGet(t, srv, "/api/v1/presets")
	require.Equal(t, http.StatusOK, w.Code)

	var presets []presetResponse
	decodeData(t, w, &presets)
	require.Len(t, presets, 4)
	assert.Equal(t, stats.PresetYear, presets[0].Name)
	assert.Equal(t, "2024-01-01", presets[0].Range.StartDate)
	assert.Equal(t, stats.Preset15Days, presets[1].Name)
	assert.Equal(t, "2024-03-06", presets[1].Range.StartDate)
}

func TestServer_Report(t *testing.T) {
	srv := newTestServer(t)

	w := doGet(t, srv, "/api/v1/stats/report?by=market,direction")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var rep journal.Report
	decodeData(t, w, &rep)
	assert.Len(t, rep.Categories, 2)
	assert.Equal(t, 4, rep.Summary.TotalTrades)
}

func TestServer_Errors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		target string
		status int
		code   string
	}{
		{"/api/v1/stats/summary?preset=decade", http.StatusBadRequest, "UNKNOWN_PRESET"},
		{"/api/v1/stats/categories?by=moon", http.StatusBadRequest, "UNKNOWN_DIMENSION"},
		{"/api/v1/stats/categories", http.StatusBadRequest, "INVALID_INPUT"},
		{"/api/v1/stats/categories?by=market&order=random", http.StatusBadRequest, "INVALID_INPUT"},
		{"/api/v1/stats/categories?by=news&intensity=4", http.StatusBadRequest, "INVALID_INPUT"},
		{"/api/v1/stats/categories?by=news&intensity=-1", http.StatusBadRequest, "INVALID_INPUT"},
		{"/api/v1/stats/calendar?month=March", http.StatusBadRequest, "INVALID_INPUT"},
		{"/api/v1/stats/summary?from=2024-03-10&to=2024-03-01", http.StatusBadRequest, "INVALID_INPUT"},
		{"/api/v1/stats/summary?direction=sideways", http.StatusBadRequest, "INVALID_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			w := doGet(t, srv, tt.target)
			assert.Equal(t, tt.status, w.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
}

func TestServer_Metrics(t *testing.T) {
	srv := newTestServer(t)

	doGet(t, srv, "/api/v1/stats/summary")
	w := doGet(t, srv, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.True(t, strings.Contains(body, `journal_stats_computed_total{kind="summary"} 1`), body)
	assert.True(t, strings.Contains(body, `http_requests_total{method="GET",path="GET /api/v1/stats/summary",status="2xx"} 1`))
}

func TestServer_RunShutsDownOnCancel(t *testing.T) {
	srv := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, time.Second) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
