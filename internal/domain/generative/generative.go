// Package generative scores submissions with an ordered chain of language-model tiers.
package generative

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/okian/skillgrade/internal/domain/model"
	"github.com/okian/skillgrade/pkg/logger"
	"github.com/okian/skillgrade/pkg/metrics"
)

const (
	defaultTierTimeout = 20 * time.Second
	maxLogPreview      = 200
)

// Generator produces raw text for a prompt with one model.
type Generator interface {
	GenerateContent(ctx context.Context, system, prompt string) (string, error)
	Model() string
}

// Tier is one model in the fallback chain.
type Tier struct {
	Generator Generator
	Timeout   time.Duration
	// Limiter is optional; a tier without tokens is skipped.
	Limiter *rate.Limiter
}

// Chain tries tiers in order and returns the first schema-valid result.
type Chain struct {
	tiers  []Tier
	log    logger.Logger
	system string
}

// Option configures a Chain.
type Option func(*Chain)

// WithLogger sets the chain logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Chain) { c.log = l }
}

// WithSystemInstruction overrides the system instruction.
func WithSystemInstruction(s string) Option {
	return func(c *Chain) { c.system = s }
}

// NewChain builds a Chain from tiers in priority order.
func NewChain(tiers []Tier, opts ...Option) (*Chain, error) {
	if len(tiers) == 0 {
		return nil, ErrNoTiers
	}
	c := &Chain{tiers: tiers, log: logger.NewNop(), system: SystemInstruction}
	for _, opt := range opts {
		opt(c)
	}
	for i := range c.tiers {
		if c.tiers[i].Timeout <= 0 {
			c.tiers[i].Timeout = defaultTierTimeout
		}
	}
	return c, nil
}

// Score runs the chain. It returns ErrUnavailable (joined with each tier's failure)
// when no tier yields a valid result.
func (c *Chain) Score(ctx context.Context, in Input) (model.ModelScore, error) {
	prompt, err := BuildPrompt(in)
	if err != nil {
		return model.ModelScore{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	failures := make([]error, 0, len(c.tiers))
	for _, tier := range c.tiers {
		if err := ctx.Err(); err != nil {
			failures = append(failures, err)
			break
		}
		name := tier.Generator.Model()
		res, err := c.try(ctx, tier, prompt, in.Game.Rubric)
		if err == nil {
			metrics.RecordTierOutcome(name, "ok")
			res.Model = name
			return res, nil
		}
		outcome := "error"
		switch {
		case errors.Is(err, ErrSchema):
			outcome = "schema"
		case errors.Is(err, ErrQuota):
			outcome = "quota"
		case errors.Is(err, context.DeadlineExceeded):
			outcome = "timeout"
		}
		metrics.RecordTierOutcome(name, outcome)
		c.log.Warn(ctx, "generative tier failed",
			append(logger.AIFields("gemini", name), logger.String("outcome", outcome), logger.Error(err))...)
		failures = append(failures, fmt.Errorf("%s: %w", name, err))
	}
	return model.ModelScore{}, fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(failures...))
}

func (c *Chain) try(ctx context.Context, tier Tier, prompt string, rubric []model.RubricCriterion) (model.ModelScore, error) {
	if tier.Limiter != nil && !tier.Limiter.Allow() {
		return model.ModelScore{}, ErrQuota
	}
	tctx, cancel := context.WithTimeout(ctx, tier.Timeout)
	defer cancel()

	raw, err := tier.Generator.GenerateContent(tctx, c.system, prompt)
	if err != nil {
		return model.ModelScore{}, err
	}
	c.log.Debug(ctx, "generative tier response",
		append(logger.AIFields("gemini", tier.Generator.Model()),
			logger.Int("response_length", utf8.RuneCountInString(raw)),
			logger.String("response_preview", logger.Truncate(raw, maxLogPreview)))...)
	return Parse(raw, rubric)
}
