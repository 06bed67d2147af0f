package scoring

import (
	"math"

	"github.com/okian/skillgrade/internal/domain/model"
)

// exactCopyCeiling bounds ExactCopyCap whatever the configuration says.
const exactCopyCeiling = 50

// AdjustmentPolicy holds the constants of the post-ensemble pipeline.
type AdjustmentPolicy struct {
	ExactCopyCap       int
	HighRiskMultiplier float64
	HintPenaltyPoints  int
	MaxHints           int
}

// DefaultAdjustmentPolicy returns the production constants.
func DefaultAdjustmentPolicy() AdjustmentPolicy {
	return AdjustmentPolicy{ExactCopyCap: 50, HighRiskMultiplier: 0.85, HintPenaltyPoints: 3, MaxHints: 3}
}

// Breakdown records every stage of the adjustment pipeline.
type Breakdown struct {
	EnsembleScore    int     `json:"ensembleScore"`
	IntegrityPenalty float64 `json:"integrityPenalty"`
	CorpusAdjustment float64 `json:"corpusAdjustment"`
	HintsUsed        int     `json:"hintsUsed"`
	HintPenalty      int     `json:"hintPenalty"`
	FinalScore       int     `json:"finalScore"`
}

// Apply runs the pipeline in fixed order: integrity, corpus, hints.
// An exact copy never ends above ExactCopyCap (itself at most 50), even after a
// positive corpus delta.
func (p AdjustmentPolicy) Apply(ensembleScore int, integrity model.IntegrityAssessment, corpusDelta float64, hintsUsed int) Breakdown {
	b := Breakdown{EnsembleScore: ensembleScore}

	s := clamp(float64(ensembleScore), 0, maxScore)
	ceiling := float64(maxScore)
	switch {
	case integrity.IsExactCopy:
		ceiling = clamp(float64(p.ExactCopyCap), 0, exactCopyCeiling)
		s = math.Min(s, ceiling)
	case integrity.Overall() == model.RiskHigh:
		s *= p.HighRiskMultiplier
	}
	b.IntegrityPenalty = float64(ensembleScore) - s

	adjusted := clamp(s+corpusDelta, 0, ceiling)
	b.CorpusAdjustment = adjusted - s

	hints := hintsUsed
	if hints < 0 {
		hints = 0
	}
	if hints > p.MaxHints {
		hints = p.MaxHints
	}
	b.HintsUsed = hints
	b.HintPenalty = hints * p.HintPenaltyPoints

	final := int(math.Round(adjusted)) - b.HintPenalty
	if final < 0 {
		final = 0
	}
	b.FinalScore = final
	return b
}
