// Package scoring arbitrates heterogeneous signals into one score and applies
// the ordered post-ensemble adjustments.
package scoring

import (
	"math"

	"github.com/okian/skillgrade/internal/domain/model"
)

const maxScore = 100

// Signals are the per-request inputs to the ensemble. Validation is always present.
type Signals struct {
	Validation int

	AI    int
	HasAI bool

	// Similarity is the cosine similarity to the example solution.
	Similarity   float64
	HasEmbedding bool
}

// EnsemblePolicy holds base weights and confidence constants.
type EnsemblePolicy struct {
	WeightAI         float64
	WeightValidation float64
	WeightEmbedding  float64
	// SpreadFactor is the confidence lost per point of signal standard deviation.
	SpreadFactor float64
	// NoAICoverage scales confidence when the generative signal is absent.
	NoAICoverage float64
}

// DefaultEnsemblePolicy returns the production weights.
func DefaultEnsemblePolicy() EnsemblePolicy {
	return EnsemblePolicy{WeightAI: 0.5, WeightValidation: 0.3, WeightEmbedding: 0.2, SpreadFactor: 2, NoAICoverage: 0.6}
}

// EmbeddingScore maps a cosine similarity onto the 0-100 scale.
func EmbeddingScore(similarity float64) float64 {
	return clamp(similarity*maxScore, 0, maxScore)
}

// Arbitrate combines present signals. Base weights of absent signals are
// redistributed proportionally, so the effective weights always sum to 1.
func (p EnsemblePolicy) Arbitrate(s Signals) model.EnsembleResult {
	type signal struct {
		score  float64
		weight *float64
		base   float64
	}
	var w model.Weights
	present := []signal{{score: clamp(float64(s.Validation), 0, maxScore), weight: &w.Validation, base: p.WeightValidation}}
	if s.HasAI {
		present = append(present, signal{score: clamp(float64(s.AI), 0, maxScore), weight: &w.AI, base: p.WeightAI})
	}
	if s.HasEmbedding {
		present = append(present, signal{score: EmbeddingScore(s.Similarity), weight: &w.Embedding, base: p.WeightEmbedding})
	}

	var total float64
	for _, sg := range present {
		total += sg.base
	}
	if total <= 0 {
		// Degenerate policy: fall back to equal weights.
		for i := range present {
			present[i].base = 1
		}
		total = float64(len(present))
	}

	var score float64
	scores := make([]float64, 0, len(present))
	for _, sg := range present {
		*sg.weight = sg.base / total
		score += *sg.weight * sg.score
		scores = append(scores, sg.score)
	}

	coverage := 1.0
	if !s.HasAI {
		coverage = p.NoAICoverage
	}
	confidence := clamp(maxScore-p.SpreadFactor*stddev(scores), 0, maxScore) * coverage

	return model.EnsembleResult{
		FinalScore: int(math.Round(clamp(score, 0, maxScore))),
		Confidence: int(math.Round(clamp(confidence, 0, maxScore))),
		Weights:    w,
	}
}

// stddev is the population standard deviation.
func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return math.Sqrt(ss / float64(len(xs)))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
