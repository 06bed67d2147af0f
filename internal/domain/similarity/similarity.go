// Package similarity embeds text and compares vectors, including against a
// game's reference corpus.
package similarity

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/okian/skillgrade/internal/domain/model"
	"github.com/okian/skillgrade/pkg/logger"
)

const defaultEmbedTimeout = 8 * time.Second

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Engine wraps an Embedder with per-call timeouts and degradation to absent.
type Engine struct {
	embedder Embedder
	timeout  time.Duration
	log      logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout bounds each embedding call.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option { return func(e *Engine) { e.log = l } }

// NewEngine returns an Engine. A nil embedder yields an engine whose embeddings are always absent.
func NewEngine(embedder Embedder, opts ...Option) *Engine {
	e := &Engine{embedder: embedder, timeout: defaultEmbedTimeout, log: logger.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Embed returns the embedding for text or an error wrapping ErrSignalUnavailable.
func (e *Engine) Embed(ctx context.Context, text string) (model.Embedding, error) {
	if e == nil || e.embedder == nil {
		return nil, fmt.Errorf("%w: no embedder configured", ErrSignalUnavailable)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", ErrSignalUnavailable)
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	vec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		e.log.Warn(ctx, "embedding failed", logger.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrSignalUnavailable, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrSignalUnavailable)
	}
	return vec, nil
}

// Cosine returns the cosine similarity of a and b. Zero vectors compare as 0.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

// Compare returns the similarity of two embeddings and whether it is usable.
func Compare(a, b model.Embedding) (float64, bool) {
	if !a.Present() || !b.Present() {
		return 0, false
	}
	s, err := Cosine(a, b)
	if err != nil {
		return 0, false
	}
	return s, true
}
