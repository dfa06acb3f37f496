package server

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/hlog"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/journal"
	"trade-journal/internal/models"
	"trade-journal/internal/stats"
)

type summaryResponse struct {
	journal.SummaryResult
	ProfitFactorDisplay float64 `json:"profit_factor_display"`
}

type presetResponse struct {
	Name  stats.Preset    `json:"name"`
	Range stats.DateRange `json:"range"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	now := s.svc.Now()
	out := make([]presetResponse, 0, len(stats.Presets()))
	for _, p := range stats.Presets() {
		rng, err := stats.ResolveDatePreset(p, now)
		if err != nil {
			s.fail(w, r, "presets", err)
			return
		}
		out = append(out, presetResponse{Name: p, Range: rng})
	}
	JSON(w, r, http.StatusOK, out)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		s.fail(w, r, "summary", err)
		return
	}
	res, err := s.svc.Summary(r.Context(), q)
	if err != nil {
		s.fail(w, r, "summary", err)
		return
	}
	JSON(w, r, http.StatusOK, summaryResponse{
		SummaryResult:       res,
		ProfitFactorDisplay: capProfitFactor(res.Summary.ProfitFactor, s.pfCap),
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	by := params.Get("by")
	if by == "" {
		s.fail(w, r, "categories", apperrors.NewValidationError("by", by, "is required"))
		return
	}
	q, err := parseQuery(params)
	if err != nil {
		s.fail(w, r, "categories", err)
		return
	}
	opts, err := parseAggregateOptions(params)
	if err != nil {
		s.fail(w, r, "categories", err)
		return
	}
	res, err := s.svc.Categories(r.Context(), q, by, opts)
	if err != nil {
		s.fail(w, r, "categories", err)
		return
	}
	JSON(w, r, http.StatusOK, res)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	month := s.svc.Now()
	if raw := params.Get("month"); raw != "" {
		m, err := time.ParseInLocation("2006-01", raw, time.Local)
		if err != nil {
			s.fail(w, r, "calendar", apperrors.NewValidationError("month", raw, "expected YYYY-MM"))
			return
		}
		month = m
	}
	q, err := parseQuery(params)
	if err != nil {
		s.fail(w, r, "calendar", err)
		return
	}
	cal, err := s.svc.Calendar(r.Context(), month, q)
	if err != nil {
		s.fail(w, r, "calendar", err)
		return
	}
	JSON(w, r, http.StatusOK, cal)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q, err := parseQuery(params)
	if err != nil {
		s.fail(w, r, "report", err)
		return
	}
	rep, err := s.svc.Report(r.Context(), q, splitList(params["by"]))
	if err != nil {
		s.fail(w, r, "report", err)
		return
	}
	JSON(w, r, http.StatusOK, rep)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, kind string, err error) {
	status := statusOf(err)
	ev := hlog.FromRequest(r).Warn()
	if status >= http.StatusInternalServerError {
		ev = hlog.FromRequest(r).Error()
		s.metrics.RecordStatsError(kind)
	}
	ev.Err(err).Str("kind", kind).Int("status", status).Msg("request failed")
	Error(w, err)
}

func capProfitFactor(pf, limit float64) float64 {
	if limit <= 0 {
		return stats.DisplayProfitFactor(pf)
	}
	if pf > limit {
		return limit
	}
	return pf
}

// parseQuery reads the trade selection shared by every stats endpoint.
func parseQuery(v url.Values) (journal.Query, error) {
	q := journal.Query{
		Preset:     v.Get("preset"),
		From:       v.Get("from"),
		To:         v.Get("to"),
		StrategyID: v.Get("strategy"),
		Markets:    splitList(v["market"]),
	}
	for _, raw := range splitList(v["direction"]) {
		d, ok := models.ParseDirection(raw)
		if !ok {
			return q, apperrors.NewValidationError("direction", raw, "must be Long or Short")
		}
		q.Directions = append(q.Directions, d)
	}
	var err error
	if q.NewsOnly, err = parseFlag(v, "news_only"); err != nil {
		return q, err
	}
	if q.IncludeNonExecuted, err = parseFlag(v, "include_non_executed"); err != nil {
		return q, err
	}
	return q, nil
}

func parseAggregateOptions(v url.Values) (stats.AggregateOptions, error) {
	var opts stats.AggregateOptions

	if raw := v.Get("order"); raw != "" {
		order, ok := stats.ParseRowOrder(raw)
		if !ok {
			return opts, apperrors.NewValidationError("order", raw, "must be insertion, label or total")
		}
		opts.Order = order
	}
	if raw := v.Get("be_resolution"); raw != "" {
		res, ok := stats.ParseBEResolution(raw)
		if !ok {
			return opts, apperrors.NewValidationError("be_resolution", raw, "must be final_result or outcome")
		}
		opts.BEResolution = res
	}
	if raw := v.Get("intensity"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || !stats.ValidIntensityFilter(n) {
			return opts, apperrors.NewValidationError("intensity", raw, "must be 1, 2 or 3")
		}
		opts.IntensityFilter = n
	}
	var err error
	if opts.IncludeUnnamed, err = parseFlag(v, "include_unnamed"); err != nil {
		return opts, err
	}
	opts.UnnamedLabel = v.Get("unnamed_label")
	return opts, nil
}

func parseFlag(v url.Values, name string) (bool, error) {
	raw := v.Get(name)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperrors.NewValidationError(name, raw, "must be a boolean")
	}
	return b, nil
}

// splitList accepts both repeated parameters and comma separated values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
