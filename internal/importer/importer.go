// Package importer loads trades from CSV exports into the journal store.
package importer

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog"

	"trade-journal/internal/batch"
	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
	"trade-journal/internal/store"
	"trade-journal/pkg/utils"
)

// DefaultBatchSize is the number of trades written per transaction.
const DefaultBatchSize = 100

// TradeWriter persists a group of trades atomically.
type TradeWriter interface {
	SaveTrades(ctx context.Context, trades []models.Trade) error
}

// csvTrade is one CSV row. Every column is read as text and converted
// explicitly so blank cells never fail decoding.
type csvTrade struct {
	Date                string `csv:"date"`
	Time                string `csv:"time"`
	Market              string `csv:"market"`
	Direction           string `csv:"direction"`
	Outcome             string `csv:"outcome"`
	BreakEven           string `csv:"break_even"`
	BEFinalResult       string `csv:"be_final_result"`
	Executed            string `csv:"executed"`
	PartialsTaken       string `csv:"partials_taken"`
	RiskPerTrade        string `csv:"risk_per_trade"`
	RiskReward          string `csv:"risk_reward"`
	PotentialRiskReward string `csv:"potential_risk_reward"`
	StopLossSize        string `csv:"stop_loss_size"`
	CalculatedProfit    string `csv:"calculated_profit"`
	PnLPercent          string `csv:"pnl_percent"`
	NewsRelated         string `csv:"news_related"`
	NewsName            string `csv:"news_name"`
	NewsIntensity       string `csv:"news_intensity"`
	LocalHighLow        string `csv:"local_high_low"`
	SetupType           string `csv:"setup_type"`
	LiquidityType       string `csv:"liquidity_type"`
	StrategyID          string `csv:"strategy_id"`
	Notes               string `csv:"notes"`
	Evaluation          string `csv:"evaluation"`
}

// Result summarizes an import.
type Result struct {
	Imported int                      `json:"imported"`
	Skipped  int                      `json:"skipped"`
	Batches  int64                    `json:"batches"`
	Errors   []*apperrors.ImportError `json:"errors,omitempty"`
}

// Importer converts CSV rows into trades scoped to one account.
type Importer struct {
	writer    TradeWriter
	userID    string
	accountID string
	mode      models.AccountMode
	batchSize int
	retry     utils.RetryConfig
	logger    zerolog.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithBatchSize sets how many trades share a transaction.
func WithBatchSize(n int) Option {
	return func(i *Importer) { i.batchSize = n }
}

// WithRetry sets how failed batch writes are retried.
func WithRetry(cfg utils.RetryConfig) Option {
	return func(i *Importer) { i.retry = cfg }
}

// WithLogger sets the importer logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(i *Importer) { i.logger = logger }
}

// New creates an importer writing trades for the given account scope.
func New(writer TradeWriter, userID, accountID string, mode models.AccountMode, opts ...Option) *Importer {
	imp := &Importer{
		writer:    writer,
		userID:    userID,
		accountID: accountID,
		mode:      mode,
		batchSize: DefaultBatchSize,
		logger:    zerolog.Nop(),
	}
	imp.retry = utils.DefaultRetryConfig()
	imp.retry.Retryable = func(err error) bool { return !store.IsPermanent(err) }
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

// pendingRow is a valid trade waiting for its batch to be written.
type pendingRow struct {
	line  int
	trade models.Trade
}

// ImportCSV reads trades from r. Rows that fail conversion or validation are
// reported in Result.Errors and skipped. A batch that still fails after
// retries reports each of its rows and the import continues with the next
// batch. Only decoding failures and cancellation abort the import.
func (imp *Importer) ImportCSV(ctx context.Context, source string, r io.Reader) (Result, error) {
	start := time.Now()
	var res Result

	var rows []*csvTrade
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return res, apperrors.Wrap(err, "failed to decode CSV")
	}

	b := batch.New(imp.batchSize, func(ctx context.Context, pending []pendingRow) error {
		trades := make([]models.Trade, len(pending))
		for i, p := range pending {
			trades[i] = p.trade
		}
		err := utils.Retry(ctx, imp.retry, func() error {
			return imp.writer.SaveTrades(ctx, trades)
		})
		if err != nil {
			imp.logger.Warn().Err(err).
				Int("first_line", pending[0].line).
				Int("rows", len(pending)).
				Msg("Batch write failed")
			for _, p := range pending {
				res.Skipped++
				res.Errors = append(res.Errors, apperrors.NewImportError(p.line, "batch write failed", err))
			}
		}
		return err
	})

	for i, row := range rows {
		line := i + 2 // header is line 1
		t, err := imp.convert(row)
		if err == nil {
			t.Normalize()
			err = t.Validate()
		}
		if err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, apperrors.NewImportError(line, "invalid row", err))
			continue
		}
		if err := b.Add(ctx, pendingRow{line: line, trade: t}); err != nil && ctx.Err() != nil {
			return imp.finish(res, b), apperrors.Wrapf(ctx.Err(), "import stopped near line %d", line)
		}
	}
	if err := b.Flush(ctx); err != nil && ctx.Err() != nil {
		return imp.finish(res, b), apperrors.Wrap(ctx.Err(), "import stopped")
	}

	res = imp.finish(res, b)
	logging.LogImport(imp.logger, source, res.Imported, res.Skipped, time.Since(start))
	return res, nil
}

// finish fills the counters that only the batcher knows and orders the
// errors by line.
func (imp *Importer) finish(res Result, b *batch.Batcher[pendingRow]) Result {
	stats := b.Stats()
	res.Imported = int(stats.Processed)
	res.Batches = stats.Flushes
	sort.SliceStable(res.Errors, func(i, j int) bool { return res.Errors[i].Line < res.Errors[j].Line })
	return res
}

func (imp *Importer) convert(row *csvTrade) (models.Trade, error) {
	t := models.Trade{
		UserID:        imp.userID,
		AccountID:     imp.accountID,
		Mode:          imp.mode,
		Time:          strings.TrimSpace(row.Time),
		Market:        strings.TrimSpace(row.Market),
		NewsName:      strings.TrimSpace(row.NewsName),
		SetupType:     strings.TrimSpace(row.SetupType),
		LiquidityType: strings.TrimSpace(row.LiquidityType),
		StrategyID:    strings.TrimSpace(row.StrategyID),
		Notes:         row.Notes,
	}

	var err error
	if t.Date, err = parseDate(row.Date); err != nil {
		return t, err
	}

	dir, ok := models.ParseDirection(strings.TrimSpace(row.Direction))
	if !ok {
		return t, apperrors.NewValidationError("direction", row.Direction, "must be Long or Short")
	}
	t.Direction = dir

	out, ok := models.ParseOutcome(strings.TrimSpace(row.Outcome))
	if !ok {
		return t, apperrors.NewValidationError("outcome", row.Outcome, "must be Win, Lose or BE")
	}
	t.Outcome = out

	if s := strings.TrimSpace(row.BEFinalResult); s != "" {
		final, ok := models.ParseOutcome(s)
		if !ok {
			return t, apperrors.NewValidationError("be_final_result", row.BEFinalResult, "must be Win or Lose")
		}
		t.BEFinalResult = final
	}

	if s := strings.TrimSpace(row.Evaluation); s != "" {
		g, ok := models.ParseGrade(s)
		if !ok {
			return t, apperrors.NewValidationError("evaluation", row.Evaluation, "must be A+, A, B or C")
		}
		t.Evaluation = g
	}

	bools := []struct {
		name string
		raw  string
		dst  *bool
	}{
		{"break_even", row.BreakEven, &t.BreakEven},
		{"partials_taken", row.PartialsTaken, &t.PartialsTaken},
		{"news_related", row.NewsRelated, &t.NewsRelated},
		{"local_high_low", row.LocalHighLow, &t.LocalHighLow},
	}
	for _, f := range bools {
		if *f.dst, err = parseBool(f.name, f.raw); err != nil {
			return t, err
		}
	}

	if s := strings.TrimSpace(row.Executed); s != "" {
		executed, err := parseBool("executed", s)
		if err != nil {
			return t, err
		}
		t.Executed = models.BoolPtr(executed)
	}

	floats := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"risk_per_trade", row.RiskPerTrade, &t.RiskPerTrade},
		{"risk_reward", row.RiskReward, &t.RiskReward},
		{"potential_risk_reward", row.PotentialRiskReward, &t.PotentialRiskReward},
		{"stop_loss_size", row.StopLossSize, &t.StopLossSize},
		{"calculated_profit", row.CalculatedProfit, &t.CalculatedProfit},
		{"pnl_percent", row.PnLPercent, &t.PnLPercent},
	}
	for _, f := range floats {
		if *f.dst, err = parseFloat(f.name, f.raw); err != nil {
			return t, err
		}
	}

	if s := strings.TrimSpace(row.NewsIntensity); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return t, apperrors.NewValidationError("news_intensity", row.NewsIntensity, "must be an integer")
		}
		t.NewsIntensity = n
	}

	return t, nil
}

var dateLayouts = []string{models.DateLayout, "2006/01/02", "02.01.2006", time.RFC3339}

func parseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			y, m, dd := d.Date()
			return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, apperrors.NewValidationError("date", raw, fmt.Sprintf("expected %s", models.DateLayout))
}

func parseBool(field, raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "0", "false", "no", "n":
		return false, nil
	case "1", "true", "yes", "y", "x":
		return true, nil
	}
	return false, apperrors.NewValidationError(field, raw, "must be a boolean")
}

func parseFloat(field, raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	s = strings.TrimSuffix(strings.ReplaceAll(s, ",", ""), "%")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, apperrors.NewValidationError(field, raw, "must be a number")
	}
	return f, nil
}
