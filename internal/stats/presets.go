package stats

import (
	"strings"
	"time"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

// Preset names one of the built-in date-range shortcuts.
type Preset string

const (
	PresetYear   Preset = "year"
	Preset15Days Preset = "15days"
	Preset30Days Preset = "30days"
	PresetMonth  Preset = "month"
)

// presetOrder is also the order MatchesPreset checks in.
var presetOrder = []Preset{PresetYear, Preset15Days, Preset30Days, PresetMonth}

// Presets returns every preset in matching order.
func Presets() []Preset {
	out := make([]Preset, len(presetOrder))
	copy(out, presetOrder)
	return out
}

// ParsePreset validates a preset name.
func ParsePreset(s string) (Preset, error) {
	p := Preset(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range presetOrder {
		if p == known {
			return p, nil
		}
	}
	return "", apperrors.Wrapf(apperrors.ErrUnknownPreset, "%q", s)
}

// DateRange is an inclusive range of ISO calendar dates.
type DateRange struct {
	StartDate string `json:"start_date" yaml:"start_date"`
	EndDate   string `json:"end_date" yaml:"end_date"`
}

// NewDateRange builds a range from two times.
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{StartDate: start.Format(models.DateLayout), EndDate: end.Format(models.DateLayout)}
}

// Bounds parses the range into times at local midnight.
func (r DateRange) Bounds() (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(models.DateLayout, r.StartDate, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.Wrap(err, "parsing start date")
	}
	end, err := time.ParseInLocation(models.DateLayout, r.EndDate, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.Wrap(err, "parsing end date")
	}
	return start, end, nil
}

// ResolveDatePreset returns the concrete range of a preset anchored on now.
// Results depend on the calendar day of now.
func ResolveDatePreset(name Preset, now time.Time) (DateRange, error) {
	y, m, d := now.Date()
	loc := now.Location()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)

	switch name {
	case PresetYear:
		return NewDateRange(time.Date(y, time.January, 1, 0, 0, 0, 0, loc), time.Date(y, time.December, 31, 0, 0, 0, 0, loc)), nil
	case Preset15Days:
		return NewDateRange(today.AddDate(0, 0, -14), today), nil
	case Preset30Days:
		return NewDateRange(today.AddDate(0, 0, -29), today), nil
	case PresetMonth:
		return NewDateRange(time.Date(y, m, 1, 0, 0, 0, 0, loc), time.Date(y, m+1, 0, 0, 0, 0, 0, loc)), nil
	}
	return DateRange{}, apperrors.Wrapf(apperrors.ErrUnknownPreset, "%q", name)
}

// MatchesPreset reports which preset, if any, r equals when resolved
// against now. A range matching several presets reports the first in
// Presets order.
func MatchesPreset(r DateRange, now time.Time) (Preset, bool) {
	for _, p := range presetOrder {
		resolved, err := ResolveDatePreset(p, now)
		if err != nil {
			continue
		}
		if resolved == r {
			return p, true
		}
	}
	return "", false
}
