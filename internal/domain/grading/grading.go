// Package grading orchestrates one submission through every scoring stage:
// validation, concurrent signal collection, corpus adjustment, ensemble,
// integrity, adjustments, persistence, and follow-up events.
package grading

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/okian/skillgrade/internal/adapters/repository"
	"github.com/okian/skillgrade/internal/domain/dedupe"
	"github.com/okian/skillgrade/internal/domain/feedback"
	"github.com/okian/skillgrade/internal/domain/generative"
	"github.com/okian/skillgrade/internal/domain/integrity"
	"github.com/okian/skillgrade/internal/domain/model"
	"github.com/okian/skillgrade/internal/domain/review"
	"github.com/okian/skillgrade/internal/domain/scoring"
	"github.com/okian/skillgrade/internal/domain/similarity"
	"github.com/okian/skillgrade/internal/domain/validation"
	"github.com/okian/skillgrade/pkg/logger"
	"github.com/okian/skillgrade/pkg/metrics"
	"github.com/okian/skillgrade/pkg/tracing"
)

const (
	defaultMaxTextRunes = 10_000
	defaultMaxHints     = 3
)

// Games resolves game definitions.
type Games interface {
	Lookup(gameID string) (model.Game, error)
}

// Validator is the rule-based scorer.
type Validator interface {
	Validate(category, text string, cfg model.ValidationConfig) model.ValidationResult
}

// ModelScorer produces the generative signal.
type ModelScorer interface {
	Score(ctx context.Context, in generative.Input) (model.ModelScore, error)
}

// Publisher hands follow-up events to background workers without blocking.
type Publisher interface {
	Enqueue(ctx context.Context, e model.Event) error
}

// Request is one submission to grade.
type Request struct {
	PlayerID       string
	TeamID         string
	GameID         string
	SkillCategory  string
	Difficulty     string
	SubmissionText string
	HintsUsed      int
}

// Result is everything the response and the audit trail need.
type Result struct {
	Attempt    model.AttemptRecord
	Validation model.ValidationResult
	AI         *model.ModelScore
	// Similarity to the example solution; meaningful only when HasSimilarity.
	Similarity    float64
	HasSimilarity bool
	Corpus        similarity.CorpusResult
	Ensemble      model.EnsembleResult
	Integrity     model.IntegrityAssessment
	Breakdown     scoring.Breakdown
	Feedback      feedback.Feedback
	Review        *model.ReviewQueueItem
}

// UsedAIScoring reports whether the generative signal contributed.
func (r *Result) UsedAIScoring() bool { return r.AI != nil }

// ReviewRequired reports whether the attempt was escalated.
func (r *Result) ReviewRequired() bool { return r.Review != nil }

// Grader is safe for concurrent use. It holds no per-request state.
type Grader struct {
	games     Games
	attempts  repository.AttemptStore
	validator Validator
	scorer    ModelScorer
	embedder  *similarity.Engine
	corpus    *similarity.CorpusScorer
	publisher Publisher
	inflight  dedupe.Deduper

	ensemble  scoring.EnsemblePolicy
	adjust    scoring.AdjustmentPolicy
	integrity integrity.Policy
	router    review.Router

	maxTextRunes int
	log          logger.Logger
	now          func() time.Time
}

// New returns a Grader. Without further options it runs validation-only.
func New(games Games, attempts repository.AttemptStore, opts ...Option) *Grader {
	g := &Grader{
		games:        games,
		attempts:     attempts,
		validator:    validation.NewRegistry(),
		inflight:     dedupe.NewInMemoryDeduper(),
		ensemble:     scoring.DefaultEnsemblePolicy(),
		adjust:       scoring.DefaultAdjustmentPolicy(),
		integrity:    integrity.DefaultPolicy(),
		router:       review.NewRouter(50),
		maxTextRunes: defaultMaxTextRunes,
		log:          logger.NewNop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.adjust.MaxHints < 0 {
		g.adjust.MaxHints = defaultMaxHints
	}
	return g
}

// Grade scores req and persists exactly one attempt for its (player, game).
// Errors wrap ErrInvalidInput, ErrGameNotFound, ErrDuplicateSubmission (as
// *DuplicateError), or ErrDatastoreUnavailable.
func (g *Grader) Grade(ctx context.Context, req Request) (res Result, err error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "grading.Grade",
		attribute.String("game_id", req.GameID),
		attribute.String("player_id", req.PlayerID),
	)
	defer func() {
		metrics.RecordStageLatency("total", time.Since(start))
		metrics.RecordAttempt(outcome(err))
		tracing.Fail(span, err)
		span.End()
	}()

	if err := g.check(&req); err != nil {
		return Result{}, err
	}
	game, err := g.games.Lookup(req.GameID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrGameNotFound, req.GameID)
	}

	if err := g.ensureAbsent(ctx, req.PlayerID, req.GameID); err != nil {
		return Result{}, err
	}
	key := model.AttemptKey(req.PlayerID, req.GameID)
	if g.inflight.SeenAndRecord(ctx, key) {
		return Result{}, &DuplicateError{}
	}
	defer g.inflight.Unrecord(ctx, key)

	sub := model.Submission{
		Text:          req.SubmissionText,
		GameID:        game.ID,
		SkillCategory: category(game, req),
		Difficulty:    firstNonEmpty(req.Difficulty, game.Difficulty),
		HintsUsed:     req.HintsUsed,
	}

	res.Validation = g.validator.Validate(sub.SkillCategory, sub.Text, game.Validation)
	sig := g.collect(ctx, game, sub, res.Validation)
	res.AI = sig.ai
	res.Similarity, res.HasSimilarity = similarity.Compare(sig.submission, sig.example)

	stageStart := time.Now()
	res.Corpus = g.corpus.Score(ctx, game.ID, sig.submission)
	metrics.RecordStageLatency("corpus", time.Since(stageStart))
	metrics.RecordSignal("corpus", res.Corpus.Weight > 0)

	signals := scoring.Signals{
		Validation:   res.Validation.Score,
		Similarity:   res.Similarity,
		HasEmbedding: res.HasSimilarity,
	}
	if res.AI != nil {
		signals.AI, signals.HasAI = res.AI.Score, true
	}
	res.Ensemble = g.ensemble.Arbitrate(signals)
	res.Integrity = g.integrity.Evaluate(integrity.Input{
		Submission:    sub.Text,
		Example:       game.ExampleSolution,
		Similarity:    res.Similarity,
		HasSimilarity: res.HasSimilarity,
		AIScore:       signals.AI,
		HasAI:         signals.HasAI,
	})
	res.Breakdown = g.adjust.Apply(res.Ensemble.FinalScore, res.Integrity, res.Corpus.Adjustment, req.HintsUsed)

	res.Feedback, err = feedback.Compose(feedback.Input{
		Validation: res.Validation,
		AI:         res.AI,
		Integrity:  res.Integrity,
		Breakdown:  res.Breakdown,
	})
	if err != nil {
		return Result{}, err
	}

	now := g.now().UTC()
	res.Attempt = model.AttemptRecord{
		ID:            uuid.NewString(),
		PlayerID:      req.PlayerID,
		GameID:        game.ID,
		TeamID:        req.TeamID,
		FinalScore:    res.Breakdown.FinalScore,
		Confidence:    res.Ensemble.Confidence,
		IntegrityRisk: res.Integrity.Overall(),
		UsedAIScoring: res.AI != nil,
		HintsUsed:     res.Breakdown.HintsUsed,
		CreatedAt:     now,
	}
	if item, escalate := g.router.Route(review.Input{
		AttemptID:  res.Attempt.ID,
		Confidence: res.Ensemble.Confidence,
		Integrity:  res.Integrity,
	}, now); escalate {
		res.Review = &item
	}

	if err := g.attempts.InsertIfAbsent(ctx, res.Attempt); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return Result{}, g.duplicate(ctx, req.PlayerID, req.GameID)
		}
		return Result{}, fmt.Errorf("%w: insert attempt: %w", ErrDatastoreUnavailable, err)
	}

	metrics.RecordScore(res.Attempt.FinalScore, res.Attempt.Confidence)
	metrics.RecordIntegrityRisk(string(res.Attempt.IntegrityRisk))
	span.SetAttributes(
		attribute.Int("final_score", res.Attempt.FinalScore),
		attribute.Int("confidence", res.Attempt.Confidence),
		attribute.Bool("used_ai", res.Attempt.UsedAIScoring),
	)
	g.publish(ctx, &res, sig.submission)

	g.log.Info(ctx, "attempt graded",
		logger.String("attempt_id", res.Attempt.ID),
		logger.String("game_id", game.ID),
		logger.Int("final_score", res.Attempt.FinalScore),
		logger.Int("confidence", res.Attempt.Confidence),
		logger.Bool("used_ai", res.Attempt.UsedAIScoring),
		logger.String("integrity_risk", string(res.Attempt.IntegrityRisk)),
	)
	return res, nil
}

func (g *Grader) check(req *Request) error {
	req.PlayerID = strings.TrimSpace(req.PlayerID)
	req.GameID = strings.TrimSpace(req.GameID)
	switch {
	case req.PlayerID == "":
		return fmt.Errorf("%w: playerId is required", ErrInvalidInput)
	case req.GameID == "":
		return fmt.Errorf("%w: gameId is required", ErrInvalidInput)
	case strings.TrimSpace(req.SubmissionText) == "":
		return fmt.Errorf("%w: submissionText is required", ErrInvalidInput)
	case utf8.RuneCountInString(req.SubmissionText) > g.maxTextRunes:
		return fmt.Errorf("%w: submissionText exceeds %d characters", ErrInvalidInput, g.maxTextRunes)
	case req.HintsUsed < 0 || req.HintsUsed > g.adjust.MaxHints:
		return fmt.Errorf("%w: hintsUsed must be in [0,%d]", ErrInvalidInput, g.adjust.MaxHints)
	}
	return nil
}

func (g *Grader) ensureAbsent(ctx context.Context, playerID, gameID string) error {
	exists, err := g.attempts.Exists(ctx, playerID, gameID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatastoreUnavailable, err)
	}
	if exists {
		return g.duplicate(ctx, playerID, gameID)
	}
	return nil
}

func (g *Grader) duplicate(ctx context.Context, playerID, gameID string) error {
	rec, err := g.attempts.Get(ctx, playerID, gameID)
	if err != nil {
		g.log.Warn(ctx, "duplicate attempt could not be loaded",
			logger.String("player_id", playerID), logger.String("game_id", gameID), logger.Error(err))
		return &DuplicateError{}
	}
	return &DuplicateError{Existing: &rec}
}

type signals struct {
	ai         *model.ModelScore
	submission model.Embedding
	example    model.Embedding
}

// collect gathers the external signals concurrently. Each degrades to absent on failure.
func (g *Grader) collect(ctx context.Context, game model.Game, sub model.Submission, v model.ValidationResult) signals {
	start := time.Now()
	defer func() { metrics.RecordStageLatency("signals", time.Since(start)) }()

	var out signals
	eg, ectx := errgroup.WithContext(ctx)
	if g.embedder != nil {
		eg.Go(func() error {
			emb, err := g.embedder.Embed(ectx, sub.Text)
			if err == nil {
				out.submission = emb
			}
			return nil
		})
		if game.HasExample() {
			eg.Go(func() error {
				emb, err := g.embedder.Embed(ectx, game.ExampleSolution)
				if err == nil {
					out.example = emb
				}
				return nil
			})
		}
	}
	if g.scorer != nil {
		eg.Go(func() error {
			ms, err := g.scorer.Score(ectx, generative.Input{Game: game, Submission: sub, Validation: v})
			if err != nil {
				g.log.Warn(ctx, "generative signal unavailable", logger.String("game_id", game.ID), logger.Error(err))
				return nil
			}
			out.ai = &ms
			return nil
		})
	}
	_ = eg.Wait()

	metrics.RecordSignal("ai", out.ai != nil)
	metrics.RecordSignal("embedding", out.submission.Present())
	return out
}

// publish emits follow-up events on a context detached from the request.
func (g *Grader) publish(ctx context.Context, res *Result, emb model.Embedding) {
	if g.publisher == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	rec := res.Attempt
	base := model.Event{
		AttemptID: rec.ID,
		PlayerID:  rec.PlayerID,
		GameID:    rec.GameID,
		Score:     rec.FinalScore,
		TS:        rec.CreatedAt,
	}

	scored := base
	scored.EventID = uuid.NewString()
	scored.Kind = model.EventAttemptScored
	scored.Attributes = map[string]any{
		"confidence":      rec.Confidence,
		"integrity_risk":  string(rec.IntegrityRisk),
		"used_ai":         rec.UsedAIScoring,
		"hints_used":      rec.HintsUsed,
		"corpus_weight":   res.Corpus.Weight,
		"flags":           res.Integrity.Flags,
		"review_required": res.Review != nil,
	}
	if res.AI != nil {
		scored.Attributes["ai_model"] = res.AI.Model
	}
	events := []model.Event{scored}

	if emb.Present() {
		curate := base
		curate.EventID = uuid.NewString()
		curate.Kind = model.EventCurationCandidate
		curate.Embedding = emb
		events = append(events, curate)
	}
	if res.Review != nil {
		esc := base
		esc.EventID = uuid.NewString()
		esc.Kind = model.EventReviewEscalation
		item := *res.Review
		esc.Review = &item
		events = append(events, esc)
	}

	for _, e := range events {
		if err := g.publisher.Enqueue(ctx, e); err != nil {
			metrics.RecordErrorByComponent("grading", "publish")
			g.log.Warn(ctx, "follow-up event dropped",
				logger.String("kind", string(e.Kind)),
				logger.String("attempt_id", rec.ID),
				logger.Error(err),
			)
		}
	}
}

func category(game model.Game, req Request) string {
	return firstNonEmpty(game.SkillCategory, req.SkillCategory)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "scored"
	case errors.Is(err, ErrInvalidInput):
		return "invalid"
	case errors.Is(err, ErrGameNotFound):
		return "game_not_found"
	case errors.Is(err, ErrDuplicateSubmission):
		return "duplicate"
	case errors.Is(err, ErrDatastoreUnavailable):
		return "datastore_unavailable"
	default:
		return "error"
	}
}
