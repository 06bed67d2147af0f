package grading

import (
	"time"

	"github.com/okian/skillgrade/internal/domain/dedupe"
	"github.com/okian/skillgrade/internal/domain/integrity"
	"github.com/okian/skillgrade/internal/domain/review"
	"github.com/okian/skillgrade/internal/domain/scoring"
	"github.com/okian/skillgrade/internal/domain/similarity"
	"github.com/okian/skillgrade/pkg/logger"
)

// Option configures a Grader.
type Option func(*Grader)

// WithValidator replaces the rule-based validator.
func WithValidator(v Validator) Option { return func(g *Grader) { g.validator = v } }

// WithModelScorer enables the generative signal.
func WithModelScorer(s ModelScorer) Option { return func(g *Grader) { g.scorer = s } }

// WithEmbedder enables the similarity signals.
func WithEmbedder(e *similarity.Engine) Option { return func(g *Grader) { g.embedder = e } }

// WithCorpus enables the reference-corpus adjustment.
func WithCorpus(c *similarity.CorpusScorer) Option { return func(g *Grader) { g.corpus = c } }

// WithPublisher routes follow-up events to background workers.
func WithPublisher(p Publisher) Option { return func(g *Grader) { g.publisher = p } }

// WithDeduper sets the in-flight guard.
func WithDeduper(d dedupe.Deduper) Option { return func(g *Grader) { g.inflight = d } }

// WithLogger sets the grader logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Grader) {
		if l != nil {
			g.log = l
		}
	}
}

// WithEnsemblePolicy overrides the ensemble weights and confidence constants.
func WithEnsemblePolicy(p scoring.EnsemblePolicy) Option { return func(g *Grader) { g.ensemble = p } }

// WithAdjustmentPolicy overrides the post-ensemble constants.
func WithAdjustmentPolicy(p scoring.AdjustmentPolicy) Option { return func(g *Grader) { g.adjust = p } }

// WithIntegrityPolicy overrides the copy thresholds.
func WithIntegrityPolicy(p integrity.Policy) Option { return func(g *Grader) { g.integrity = p } }

// WithRouter overrides the review router.
func WithRouter(r review.Router) Option { return func(g *Grader) { g.router = r } }

// WithMaxTextRunes bounds submission length.
func WithMaxTextRunes(n int) Option {
	return func(g *Grader) {
		if n > 0 {
			g.maxTextRunes = n
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option { return func(g *Grader) { g.now = now } }
