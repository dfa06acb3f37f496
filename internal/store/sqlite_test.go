package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testTrade(date string, outcome models.Outcome, profit float64) models.Trade {
	d, _ := time.Parse(models.DateLayout, date)
	return models.Trade{
		UserID:           "u1",
		AccountID:        "a1",
		Mode:             models.ModeLive,
		Date:             d,
		Market:           "EURUSD",
		Direction:        models.DirectionLong,
		Outcome:          outcome,
		CalculatedProfit: profit,
	}
}

func TestSQLiteStore_Accounts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	acc := &models.Account{UserID: "u1", Name: "Main", Mode: models.ModeLive, Balance: decimal.RequireFromString("10000.50")}
	require.NoError(t, s.SaveAccount(ctx, acc))
	assert.NotEmpty(t, acc.ID)
	assert.Equal(t, "USD", acc.Currency)

	got, err := s.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Main", got.Name)
	assert.True(t, acc.Balance.Equal(got.Balance))

	require.NoError(t, s.SaveAccount(ctx, &models.Account{UserID: "u2", Name: "Other", Mode: models.ModeDemo}))
	list, err := s.ListAccounts(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = s.GetAccount(ctx, "missing")
	assert.True(t, errors.Is(err, apperrors.ErrAccountNotFound))

	err = s.SaveAccount(ctx, &models.Account{UserID: "u1", Name: "Bad", Mode: "paper"})
	assert.True(t, errors.Is(err, apperrors.ErrInputValidation))
}

func TestSQLiteStore_Strategies(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	breakout := &models.Strategy{UserID: "u1", AccountID: "a1", Name: "Breakout"}
	require.NoError(t, s.SaveStrategy(ctx, breakout))
	assert.True(t, breakout.Active)
	require.NoError(t, s.SaveStrategy(ctx, &models.Strategy{UserID: "u1", AccountID: "a1", Name: "asia range"}))

	list, err := s.ListStrategies(ctx, StrategyFilter{UserID: "u1", AccountID: "a1"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "asia range", list[0].Name)

	require.NoError(t, s.SetStrategyActive(ctx, breakout.ID, false))
	list, err = s.ListStrategies(ctx, StrategyFilter{UserID: "u1", AccountID: "a1"})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = s.ListStrategies(ctx, StrategyFilter{UserID: "u1", IncludeArchived: true})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	got, err := s.GetStrategy(ctx, breakout.ID)
	require.NoError(t, err)
	assert.True(t, got.Archived())

	assert.True(t, errors.Is(s.SetStrategyActive(ctx, "missing", true), apperrors.ErrStrategyNotFound))
	_, err = s.GetStrategy(ctx, "missing")
	assert.True(t, errors.Is(err, apperrors.ErrStrategyNotFound))
}

func TestSQLiteStore_TradeRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	tr := testTrade("2024-03-05", models.OutcomeWin, 120.5)
	tr.Time = "09:30"
	tr.Executed = models.BoolPtr(true)
	tr.NewsRelated = true
	tr.NewsName = "CPI"
	tr.NewsIntensity = 2
	tr.SetupType = "OTE"
	tr.Evaluation = models.GradeAPlus
	tr.RiskReward = 2.5

	require.NoError(t, s.SaveTrade(ctx, &tr))
	require.NotEmpty(t, tr.ID)

	got, err := s.GetTrade(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", got.DateKey())
	assert.Equal(t, "09:30", got.Time)
	require.NotNil(t, got.Executed)
	assert.True(t, *got.Executed)
	assert.Equal(t, "CPI", got.NewsName)
	assert.Equal(t, 2, got.NewsIntensity)
	assert.Equal(t, models.GradeAPlus, got.Evaluation)
	assert.InDelta(t, 120.5, got.CalculatedProfit, 1e-9)
	assert.InDelta(t, 2.5, got.RiskReward, 1e-9)
}

func TestSQLiteStore_SaveTradeNormalizes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	tr := testTrade("2024-03-05", models.OutcomeBE, 50)
	require.NoError(t, s.SaveTrade(ctx, &tr))

	got, err := s.GetTrade(ctx, tr.ID)
	require.NoError(t, err)
	assert.True(t, got.BreakEven)
	assert.Equal(t, 0.0, got.CalculatedProfit)
	assert.Nil(t, got.Executed)
}

func TestSQLiteStore_SaveTradeRejectsInvalid(t *testing.T) {
	s := newTestStore(t)

	tr := testTrade("2024-03-05", "Maybe", 0)
	err := s.SaveTrade(context.Background(), &tr)
	assert.True(t, errors.Is(err, apperrors.ErrInputValidation))
}

func TestSQLiteStore_SaveTradesIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	bad := testTrade("2024-03-06", models.OutcomeWin, 1)
	bad.Market = ""
	err := s.SaveTrades(ctx, []models.Trade{testTrade("2024-03-05", models.OutcomeWin, 1), bad})
	require.Error(t, err)

	trades, err := s.GetTrades(ctx, TradeQuery{UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, trades)

	require.NoError(t, s.SaveTrades(ctx, []models.Trade{
		testTrade("2024-03-05", models.OutcomeWin, 1),
		testTrade("2024-03-04", models.OutcomeLose, -1),
	}))
	trades, err = s.GetTrades(ctx, TradeQuery{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "2024-03-04", trades[0].DateKey())
}

func TestSQLiteStore_GetTradesFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	skipped := testTrade("2024-03-10", models.OutcomeWin, 10)
	skipped.Executed = models.BoolPtr(false)
	demo := testTrade("2024-03-10", models.OutcomeWin, 10)
	demo.Mode = models.ModeDemo
	tagged := testTrade("2024-03-15", models.OutcomeLose, -5)
	tagged.StrategyID = "s1"
	otherAccount := testTrade("2024-03-15", models.OutcomeWin, 5)
	otherAccount.AccountID = "a2"

	require.NoError(t, s.SaveTrades(ctx, []models.Trade{
		testTrade("2024-02-28", models.OutcomeWin, 1),
		testTrade("2024-03-01", models.OutcomeWin, 1),
		skipped, demo, tagged, otherAccount,
	}))

	base := TradeQuery{UserID: "u1", AccountID: "a1", Mode: models.ModeLive}

	trades, err := s.GetTrades(ctx, base)
	require.NoError(t, err)
	assert.Len(t, trades, 3)

	withSkipped := base
	withSkipped.IncludeNonExecuted = true
	trades, err = s.GetTrades(ctx, withSkipped)
	require.NoError(t, err)
	assert.Len(t, trades, 4)

	march := base
	march.StartDate = time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	march.EndDate = time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)
	trades, err = s.GetTrades(ctx, march)
	require.NoError(t, err)
	assert.Len(t, trades, 2)

	byStrategy := base
	byStrategy.StrategyID = "s1"
	trades, err = s.GetTrades(ctx, byStrategy)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "2024-03-15", trades[0].DateKey())

	limited := base
	limited.Limit = 1
	trades, err = s.GetTrades(ctx, limited)
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}

func TestSQLiteStore_DeleteTrade(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	tr := testTrade("2024-03-05", models.OutcomeWin, 1)
	require.NoError(t, s.SaveTrade(ctx, &tr))
	require.NoError(t, s.DeleteTrade(ctx, tr.ID))

	_, err := s.GetTrade(ctx, tr.ID)
	assert.True(t, errors.Is(err, apperrors.ErrTradeNotFound))
	assert.True(t, errors.Is(s.DeleteTrade(ctx, tr.ID), apperrors.ErrTradeNotFound))
}
