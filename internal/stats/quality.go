package stats

import (
	"math"
	"sort"
	"strings"
	"sync"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

// Scorer computes a Trade Quality Index, a bounded consistency score.
type Scorer interface {
	Score(trades []models.Trade) float64
}

// ScorerFunc adapts a plain function to Scorer.
type ScorerFunc func(trades []models.Trade) float64

// Score calls f.
func (f ScorerFunc) Score(trades []models.Trade) float64 {
	return f(trades)
}

// QualityBand is the human reading of a TQI score.
type QualityBand string

const (
	BandNeedsDevelopment QualityBand = "Needs Development"
	BandDeveloping       QualityBand = "Developing"
	BandEstablished      QualityBand = "Established"
	BandStrong           QualityBand = "Strong"
	BandExceptional      QualityBand = "Exceptional"
	BandUnknown          QualityBand = "Unknown"
)

// TQIBand maps a score onto its band.
func TQIBand(score float64) QualityBand {
	switch {
	case math.IsNaN(score):
		return BandUnknown
	case score < 0.20:
		return BandNeedsDevelopment
	case score < 0.30:
		return BandDeveloping
	case score < 0.45:
		return BandEstablished
	case score <= 0.55:
		return BandStrong
	default:
		return BandExceptional
	}
}

// BalancedScorerName is the registry name of BalancedScorer.
const BalancedScorerName = "balanced-v1"

// BalancedScorer weighs the strict win rate by the profit factor squashed
// into [0,1): score = winRate * pf/(1+pf). A record with gains and no losses
// scores its win rate. The result is always within [0,1].
var BalancedScorer = ScorerFunc(func(trades []models.Trade) float64 {
	var wins, losses int
	for _, t := range trades {
		if !t.IsExecuted() || t.IsBreakEven() {
			continue
		}
		switch t.Outcome {
		case models.OutcomeWin:
			wins++
		case models.OutcomeLose:
			losses++
		}
	}
	if wins+losses == 0 {
		return 0
	}
	winRate := float64(wins) / float64(wins+losses)

	gains, lossSum := grossProfitLoss(trades)
	if lossSum.IsZero() {
		if gains.IsPositive() {
			return winRate
		}
		return 0
	}
	pf, _ := gains.Div(lossSum).Float64()
	return winRate * pf / (1 + pf)
})

var (
	scorersMu sync.RWMutex
	scorers   = map[string]Scorer{
		BalancedScorerName: BalancedScorer,
	}
)

// RegisterScorer makes a scorer selectable by name.
func RegisterScorer(name string, s Scorer) {
	scorersMu.Lock()
	defer scorersMu.Unlock()
	scorers[strings.ToLower(name)] = s
}

// LookupScorer returns the scorer registered under name.
func LookupScorer(name string) (Scorer, error) {
	scorersMu.RLock()
	defer scorersMu.RUnlock()
	s, ok := scorers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, apperrors.Wrapf(apperrors.ErrUnknownScorer, "%q", name)
	}
	return s, nil
}

// ScorerNames lists the registered scorers alphabetically.
func ScorerNames() []string {
	scorersMu.RLock()
	defer scorersMu.RUnlock()
	names := make([]string, 0, len(scorers))
	for name := range scorers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
