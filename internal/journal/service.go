// Package journal loads scoped trades from the store and runs the
// statistics over them. The CLI and the HTTP API both go through Service.
package journal

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
	"trade-journal/internal/stats"
	"trade-journal/internal/store"
)

// TradeReader is the read side of the store used by Service.
type TradeReader interface {
	GetTrades(ctx context.Context, query store.TradeQuery) ([]models.Trade, error)
	GetAccount(ctx context.Context, id string) (*models.Account, error)
}

// Scope selects whose trades are visible.
type Scope struct {
	UserID    string
	AccountID string
	Mode      models.AccountMode
}

// Settings are the statistics defaults applied to every query.
type Settings struct {
	BEResolution       stats.BEResolution
	IncludeNonExecuted bool
	Scorer             stats.Scorer
}

// Query narrows the trades a computation runs over. Preset wins over
// From/To when both are set.
type Query struct {
	Preset             string
	From               string // ISO date, inclusive
	To                 string // ISO date, inclusive
	StrategyID         string
	Markets            []string
	Directions         []models.Direction
	NewsOnly           bool
	IncludeNonExecuted bool
}

// Selection describes the range a result was computed over.
type Selection struct {
	Range  stats.DateRange `json:"range" yaml:"range"`
	Preset stats.Preset    `json:"preset,omitempty" yaml:"preset,omitempty"`
}

// SummaryResult is a summary plus the range it covers.
type SummaryResult struct {
	Selection Selection     `json:"selection" yaml:"selection"`
	Summary   stats.Summary `json:"summary" yaml:"summary"`
}

// CategoryResult is one category breakdown.
type CategoryResult struct {
	Selection Selection       `json:"selection" yaml:"selection"`
	Dimension string          `json:"dimension" yaml:"dimension"`
	Rows      []stats.StatRow `json:"rows" yaml:"rows"`
}

// Report bundles a summary with several breakdowns for export.
type Report struct {
	GeneratedAt time.Time                  `json:"generated_at" yaml:"generated_at"`
	Scope       ReportScope                `json:"scope" yaml:"scope"`
	Selection   Selection                  `json:"selection" yaml:"selection"`
	Summary     stats.Summary              `json:"summary" yaml:"summary"`
	Categories  map[string][]stats.StatRow `json:"categories" yaml:"categories"`
}

// ReportScope is the exported form of Scope.
type ReportScope struct {
	UserID    string `json:"user_id" yaml:"user_id"`
	AccountID string `json:"account_id,omitempty" yaml:"account_id,omitempty"`
	Mode      string `json:"mode" yaml:"mode"`
}

// Service computes statistics for one scope.
type Service struct {
	reader   TradeReader
	scope    Scope
	settings Settings
	logger   zerolog.Logger
	now      func() time.Time
	observe  Observer
}

// Observer is told about every finished computation.
type Observer func(kind string, trades int, duration time.Duration)

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the clock used to resolve presets.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithObserver registers fn to be called after every computation.
func WithObserver(fn Observer) Option {
	return func(s *Service) { s.observe = fn }
}

// NewService creates a Service.
func NewService(reader TradeReader, scope Scope, settings Settings, opts ...Option) *Service {
	if settings.BEResolution == "" {
		settings.BEResolution = stats.BEFromFinalResult
	}
	s := &Service{
		reader:   reader,
		scope:    scope,
		settings: settings,
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service clock reading.
func (s *Service) Now() time.Time {
	return s.now()
}

// Scope returns the service scope.
func (s *Service) Scope() Scope {
	return s.scope
}

// Settings returns the statistics defaults.
func (s *Service) Settings() Settings {
	return s.settings
}

// Stand-ins for the open end of a half-open From/To range.
const (
	openStartDate = "0001-01-01"
	openEndDate   = "9999-12-31"
)

// ResolveRange turns the range part of q into a DateRange. ok is false
// when q leaves both ends open. A single open end is filled with a far
// past or far future date.
func (s *Service) ResolveRange(q Query) (r stats.DateRange, ok bool, err error) {
	if strings.TrimSpace(q.Preset) != "" {
		p, err := stats.ParsePreset(q.Preset)
		if err != nil {
			return r, false, err
		}
		r, err = stats.ResolveDatePreset(p, s.now())
		return r, err == nil, err
	}
	if q.From == "" && q.To == "" {
		return r, false, nil
	}

	r = stats.DateRange{StartDate: q.From, EndDate: q.To}
	if r.StartDate == "" {
		r.StartDate = openStartDate
	}
	if r.EndDate == "" {
		r.EndDate = openEndDate
	}
	start, end, err := r.Bounds()
	if err != nil {
		return r, false, apperrors.NewValidationError("range", r, err.Error())
	}
	if end.Before(start) {
		return r, false, apperrors.NewValidationError("range", r, "end date is before start date")
	}
	return r, true, nil
}

// Trades returns the scoped trades selected by q, non-executed included,
// in ascending date order.
func (s *Service) Trades(ctx context.Context, q Query) ([]models.Trade, Selection, error) {
	var sel Selection

	r, bounded, err := s.ResolveRange(q)
	if err != nil {
		return nil, sel, err
	}

	sq := store.TradeQuery{
		UserID:             s.scope.UserID,
		AccountID:          s.scope.AccountID,
		Mode:               s.scope.Mode,
		StrategyID:         q.StrategyID,
		IncludeNonExecuted: true,
	}
	if bounded {
		sel.Range = r
		if p, ok := stats.MatchesPreset(r, s.now()); ok {
			sel.Preset = p
		}
		start, end, err := r.Bounds()
		if err != nil {
			return nil, sel, err
		}
		sq.StartDate, sq.EndDate = start, end
	}

	trades, err := s.reader.GetTrades(ctx, sq)
	if err != nil {
		return nil, sel, err
	}

	trades = stats.ApplyFilters(trades, stats.FilterState{
		Markets:            q.Markets,
		Directions:         q.Directions,
		NewsOnly:           q.NewsOnly,
		IncludeNonExecuted: true,
	})

	if !bounded && len(trades) > 0 {
		sel.Range = stats.NewDateRange(trades[0].Date, trades[len(trades)-1].Date)
	}
	if bounded && strings.TrimSpace(q.Preset) == "" {
		sel.Range = closeOpenEnds(sel.Range, q, trades)
	}
	return trades, sel, nil
}

// closeOpenEnds replaces the stand-in of an open From or To with the first
// or last selected trade date, or clears it when nothing was selected.
func closeOpenEnds(r stats.DateRange, q Query, trades []models.Trade) stats.DateRange {
	var first, last string
	if len(trades) > 0 {
		actual := stats.NewDateRange(trades[0].Date, trades[len(trades)-1].Date)
		first, last = actual.StartDate, actual.EndDate
	}
	if q.From == "" {
		r.StartDate = first
	}
	if q.To == "" {
		r.EndDate = last
	}
	return r
}

// AccountBalance returns the balance of the scoped account, or 0 when no
// account is selected or it does not exist.
func (s *Service) AccountBalance(ctx context.Context) (float64, error) {
	if s.scope.AccountID == "" {
		return 0, nil
	}
	acc, err := s.reader.GetAccount(ctx, s.scope.AccountID)
	if errors.Is(err, apperrors.ErrAccountNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return acc.BalanceFloat(), nil
}

func (s *Service) includeNonExecuted(q Query) bool {
	return q.IncludeNonExecuted || s.settings.IncludeNonExecuted
}

func (s *Service) done(kind string, trades int, start time.Time) {
	d := time.Since(start)
	logging.LogStatsComputed(s.logger, kind, trades, d)
	if s.observe != nil {
		s.observe(kind, trades, d)
	}
}

// Summary computes the dashboard summary for q.
func (s *Service) Summary(ctx context.Context, q Query) (SummaryResult, error) {
	start := time.Now()

	trades, sel, err := s.Trades(ctx, q)
	if err != nil {
		return SummaryResult{}, err
	}
	balance, err := s.AccountBalance(ctx)
	if err != nil {
		return SummaryResult{}, err
	}

	summary := stats.Summarize(trades, stats.SummaryOptions{
		BEResolution:       s.settings.BEResolution,
		IncludeNonExecuted: s.includeNonExecuted(q),
		Scorer:             s.settings.Scorer,
		AccountBalance:     balance,
	})
	s.done("summary", len(trades), start)
	return SummaryResult{Selection: sel, Summary: summary}, nil
}

// Categories computes the breakdown of q by the named dimension. Zero
// fields in opts fall back to the service settings.
func (s *Service) Categories(ctx context.Context, q Query, dimension string, opts stats.AggregateOptions) (CategoryResult, error) {
	start := time.Now()

	dim, err := stats.LookupDimension(dimension)
	if err != nil {
		return CategoryResult{}, err
	}
	trades, sel, err := s.Trades(ctx, q)
	if err != nil {
		return CategoryResult{}, err
	}

	if opts.BEResolution == "" {
		opts.BEResolution = s.settings.BEResolution
	}
	opts.IncludeNonExecuted = opts.IncludeNonExecuted || s.includeNonExecuted(q)

	rows := dim.Aggregate(trades, opts)
	s.done("categories:"+dim.Name, len(trades), start)
	return CategoryResult{Selection: sel, Dimension: dim.Name, Rows: rows}, nil
}

// Calendar buckets the month containing month. The range part of q is
// replaced by the month itself.
func (s *Service) Calendar(ctx context.Context, month time.Time, q Query) (stats.CalendarMonth, error) {
	start := time.Now()

	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.Local)
	last := first.AddDate(0, 1, -1)
	q.Preset = ""
	q.From = first.Format(models.DateLayout)
	q.To = last.Format(models.DateLayout)

	trades, _, err := s.Trades(ctx, q)
	if err != nil {
		return stats.CalendarMonth{}, err
	}
	balance, err := s.AccountBalance(ctx)
	if err != nil {
		return stats.CalendarMonth{}, err
	}

	opts := []stats.CalendarOption{
		stats.WithAccountBalance(balance),
		stats.WithBEResolution(s.settings.BEResolution),
	}
	if s.includeNonExecuted(q) {
		opts = append(opts, stats.WithNonExecuted())
	}

	cal := stats.BucketizeCalendarMonth(trades, first, opts...)
	s.done("calendar", len(trades), start)
	return cal, nil
}

// Report computes a summary plus one breakdown per dimension. An empty
// dimension list selects every registered dimension.
func (s *Service) Report(ctx context.Context, q Query, dimensions []string) (Report, error) {
	start := time.Now()

	if len(dimensions) == 0 {
		dimensions = stats.DimensionNames()
	}
	dims := make([]stats.Dimension, 0, len(dimensions))
	for _, name := range dimensions {
		dim, err := stats.LookupDimension(name)
		if err != nil {
			return Report{}, err
		}
		dims = append(dims, dim)
	}

	trades, sel, err := s.Trades(ctx, q)
	if err != nil {
		return Report{}, err
	}
	balance, err := s.AccountBalance(ctx)
	if err != nil {
		return Report{}, err
	}
	includeNonExecuted := s.includeNonExecuted(q)

	rows := make([][]stats.StatRow, len(dims))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, dim := range dims {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows[i] = dim.Aggregate(trades, stats.AggregateOptions{
				BEResolution:       s.settings.BEResolution,
				IncludeNonExecuted: includeNonExecuted,
				IncludeUnnamed:     true,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	rep := Report{
		GeneratedAt: s.now(),
		Scope: ReportScope{
			UserID:    s.scope.UserID,
			AccountID: s.scope.AccountID,
			Mode:      string(s.scope.Mode),
		},
		Selection: sel,
		Summary: stats.Summarize(trades, stats.SummaryOptions{
			BEResolution:       s.settings.BEResolution,
			IncludeNonExecuted: includeNonExecuted,
			Scorer:             s.settings.Scorer,
			AccountBalance:     balance,
		}),
		Categories: make(map[string][]stats.StatRow, len(dims)),
	}
	for i, dim := range dims {
		rep.Categories[dim.Name] = rows[i]
	}
	s.done("report", len(trades), start)
	return rep, nil
}
