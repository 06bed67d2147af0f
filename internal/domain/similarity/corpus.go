package similarity

import (
	"context"
	"math"

	"github.com/okian/skillgrade/internal/domain/model"
	"github.com/okian/skillgrade/pkg/logger"
)

// CorpusSource reads a game's reference corpus.
type CorpusSource interface {
	QueryByGame(ctx context.Context, gameID string) ([]model.ReferenceAnswer, error)
}

// CorpusPolicy holds the closed-form constants of the corpus adjustment.
type CorpusPolicy struct {
	MinSamples     int
	Baseline       float64
	Scale          float64
	MaxAdjustment  float64
	WeightCeiling  float64
	HalfSaturation float64
	PlayerWeight   float64
}

// CorpusResult describes the corpus signal for one submission.
type CorpusResult struct {
	Adjustment     float64
	Weight         float64
	AvgSimilarity  float64
	BestSimilarity float64
	Samples        int
	Verified       int
}

// Weight returns the corpus influence weight for a corpus of size total with
// verified trusted entries. It is zero below MinSamples and rises toward
// WeightCeiling as verified entries accumulate.
func (p CorpusPolicy) Weight(total, verified int) float64 {
	if total < p.MinSamples || total <= 0 {
		return 0
	}
	if verified > total {
		verified = total
	}
	eff := float64(verified) + p.PlayerWeight*float64(total-verified)
	if eff <= 0 {
		return 0
	}
	return p.WeightCeiling * eff / (eff + p.HalfSaturation)
}

// Adjust maps an average similarity and weight to a bounded score delta.
func (p CorpusPolicy) Adjust(avgSimilarity, weight float64) float64 {
	f := clamp((avgSimilarity-p.Baseline)*p.Scale, -p.MaxAdjustment, p.MaxAdjustment)
	return clamp(f*weight, -p.MaxAdjustment, p.MaxAdjustment)
}

// CorpusScorer compares a submission embedding with the game's reference corpus.
type CorpusScorer struct {
	source CorpusSource
	policy CorpusPolicy
	log    logger.Logger
}

// NewCorpusScorer returns a CorpusScorer.
func NewCorpusScorer(source CorpusSource, policy CorpusPolicy, l logger.Logger) *CorpusScorer {
	if l == nil {
		l = logger.NewNop()
	}
	return &CorpusScorer{source: source, policy: policy, log: l}
}

// Score never fails: missing embeddings, store errors, and small corpora all yield a zero adjustment.
func (s *CorpusScorer) Score(ctx context.Context, gameID string, emb model.Embedding) CorpusResult {
	if s == nil || s.source == nil || !emb.Present() {
		return CorpusResult{}
	}
	refs, err := s.source.QueryByGame(ctx, gameID)
	if err != nil {
		s.log.Warn(ctx, "corpus query failed", logger.String("game_id", gameID), logger.Error(err))
		return CorpusResult{}
	}

	var sum float64
	best := math.Inf(-1)
	res := CorpusResult{}
	for _, ref := range refs {
		sim, ok := Compare(emb, ref.Embedding)
		if !ok {
			continue
		}
		res.Samples++
		if ref.Trusted() {
			res.Verified++
		}
		sum += sim
		best = math.Max(best, sim)
	}
	if res.Samples == 0 {
		return CorpusResult{}
	}
	res.AvgSimilarity = sum / float64(res.Samples)
	res.BestSimilarity = best
	res.Weight = s.policy.Weight(res.Samples, res.Verified)
	if res.Weight > 0 {
		res.Adjustment = s.policy.Adjust(res.AvgSimilarity, res.Weight)
	}
	return res
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
