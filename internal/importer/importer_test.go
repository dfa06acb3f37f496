package importer

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
	"trade-journal/internal/store"
	"trade-journal/pkg/utils"
)

type memoryWriter struct {
	batches [][]models.Trade
	err     error
	calls   int
	// failing lists 1-based SaveTrades calls that return err.
	failing map[int]bool
}

func (w *memoryWriter) SaveTrades(_ context.Context, trades []models.Trade) error {
	w.calls++
	if w.err != nil && (w.failing == nil || w.failing[w.calls]) {
		return w.err
	}
	w.batches = append(w.batches, append([]models.Trade(nil), trades...))
	return nil
}

func (w *memoryWriter) all() []models.Trade {
	var out []models.Trade
	for _, b := range w.batches {
		out = append(out, b...)
	}
	return out
}

const sampleCSV = `date,time,market,direction,outcome,break_even,be_final_result,executed,calculated_profit,pnl_percent,news_related,news_name,news_intensity,evaluation
2024-03-01,09:30,EURUSD,Long,Win,,,,120.50,1.2%,yes,CPI,2,A+
2024-03-02,,XAUUSD,short,loss,,,,-40,-0.4,,,,
2024-03-03,,NQ,L,BE,,Win,,25,0,,,,B
2024-03-04,,ES,Long,Win,,,no,300,3,,,,
not-a-date,,ES,Long,Win,,,,1,0,,,,
2024-03-06,,ES,Sideways,Win,,,,1,0,,,,
2024-03-07,,ES,Long,Win,,,,abc,0,,,,
`

func TestImportCSV(t *testing.T) {
	w := &memoryWriter{}
	imp := New(w, "u1", "a1", models.ModeLive, WithBatchSize(2))

	res, err := imp.ImportCSV(context.Background(), "sample.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, 4, res.Imported)
	assert.Equal(t, 3, res.Skipped)
	assert.Equal(t, int64(2), res.Batches)
	require.Len(t, res.Errors, 3)
	assert.Equal(t, 6, res.Errors[0].Line)
	assert.True(t, errors.Is(res.Errors[0], apperrors.ErrInputValidation))
	assert.Equal(t, 8, res.Errors[2].Line)

	trades := w.all()
	require.Len(t, trades, 4)

	first := trades[0]
	assert.Equal(t, "u1", first.UserID)
	assert.Equal(t, "a1", first.AccountID)
	assert.Equal(t, models.ModeLive, first.Mode)
	assert.Equal(t, "2024-03-01", first.DateKey())
	assert.InDelta(t, 120.5, first.CalculatedProfit, 1e-9)
	assert.InDelta(t, 1.2, first.PnLPercent, 1e-9)
	assert.True(t, first.NewsRelated)
	assert.Equal(t, 2, first.NewsIntensity)
	assert.Equal(t, models.GradeAPlus, first.Evaluation)
	assert.True(t, first.IsExecuted())

	assert.Equal(t, models.DirectionShort, trades[1].Direction)
	assert.Equal(t, models.OutcomeLose, trades[1].Outcome)

	be := trades[2]
	assert.True(t, be.BreakEven)
	assert.Equal(t, 0.0, be.CalculatedProfit)
	assert.Equal(t, models.OutcomeWin, be.BEFinalResult)

	assert.False(t, trades[3].IsExecuted())
}

func TestImportCSV_FailedBatchIsReported(t *testing.T) {
	boom := errors.New("disk full")
	w := &memoryWriter{err: boom, failing: map[int]bool{2: true, 3: true}}
	imp := New(w, "u1", "a1", models.ModeDemo,
		WithBatchSize(2),
		WithRetry(utils.RetryConfig{MaxAttempts: 2}),
	)

	res, err := imp.ImportCSV(context.Background(), "sample.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, 3, w.calls)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 5, res.Skipped)
	assert.Equal(t, int64(2), res.Batches)

	lines := make([]int, 0, len(res.Errors))
	for _, e := range res.Errors {
		lines = append(lines, e.Line)
	}
	assert.Equal(t, []int{4, 5, 6, 7, 8}, lines)
	assert.ErrorIs(t, res.Errors[0], boom)
	assert.ErrorIs(t, res.Errors[1], boom)

	saved := w.all()
	require.Len(t, saved, 2)
	assert.Equal(t, "2024-03-01", saved[0].DateKey())
	assert.Equal(t, "2024-03-02", saved[1].DateKey())
}

func TestImportCSV_TransientFailureRetried(t *testing.T) {
	w := &memoryWriter{err: errors.New("database is locked"), failing: map[int]bool{1: true}}
	imp := New(w, "u1", "a1", models.ModeLive,
		WithBatchSize(10),
		WithRetry(utils.RetryConfig{MaxAttempts: 3, Retryable: func(err error) bool { return !store.IsPermanent(err) }}),
	)

	res, err := imp.ImportCSV(context.Background(), "sample.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, 2, w.calls)
	assert.Equal(t, 4, res.Imported)
	assert.Equal(t, 3, res.Skipped)
}

func TestImportCSV_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := &memoryWriter{}
	res, err := New(w, "u1", "a1", models.ModeLive, WithBatchSize(1)).
		ImportCSV(ctx, "sample.csv", strings.NewReader(sampleCSV))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, res.Imported)
	assert.Empty(t, w.batches)
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, store.IsPermanent(apperrors.NewValidationError("market", "", "market is required")))
	assert.True(t, store.IsPermanent(context.Canceled))
	assert.False(t, store.IsPermanent(errors.New("database is locked")))
}

func TestImportCSV_IntoSQLite(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer s.Close()

	res, err := New(s, "u1", "a1", models.ModeLive).ImportCSV(ctx, "sample.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, 4, res.Imported)

	trades, err := s.GetTrades(ctx, store.TradeQuery{UserID: "u1", AccountID: "a1", IncludeNonExecuted: true})
	require.NoError(t, err)
	assert.Len(t, trades, 4)
}

func TestParseHelpers(t *testing.T) {
	d, err := parseDate("05.03.2024")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", d.Format(models.DateLayout))

	b, err := parseBool("x", " Y ")
	require.NoError(t, err)
	assert.True(t, b)
	_, err = parseBool("x", "maybe")
	assert.Error(t, err)

	f, err := parseFloat("x", "1,250.5")
	require.NoError(t, err)
	assert.InDelta(t, 1250.5, f, 1e-9)
}
