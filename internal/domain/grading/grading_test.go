package grading_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/skillgrade/internal/adapters/repository"
	"github.com/okian/skillgrade/internal/domain/generative"
	"github.com/okian/skillgrade/internal/domain/grading"
	"github.com/okian/skillgrade/internal/domain/model"
	"github.com/okian/skillgrade/internal/domain/similarity"
)

type fakeGames map[string]model.Game

func (f fakeGames) Lookup(id string) (model.Game, error) {
	g, ok := f[id]
	if !ok {
		return model.Game{}, errors.New("unknown")
	}
	return g, nil
}

type fixedValidator struct{ score int }

func (v fixedValidator) Validate(_, _ string, _ model.ValidationConfig) model.ValidationResult {
	return model.ValidationResult{Score: v.score, Checks: map[string]bool{"has_operators": true}, Feedback: []string{"Tighten the location filter."}}
}

type fakeScorer struct {
	score int
	err   error
	delay time.Duration
}

func (f fakeScorer) Score(ctx context.Context, in generative.Input) (model.ModelScore, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return model.ModelScore{}, f.err
	}
	return model.ModelScore{
		Score:        f.score,
		Strengths:    []string{"Clear structure"},
		Improvements: []string{"Add more synonyms"},
		Narrative:    "Competent answer.",
		Model:        "tier-a",
	}, nil
}

// constEmbedder embeds every text as the same vector.
type constEmbedder struct{}

func (constEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{0.6, 0.8}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.Event
	err    error
}

func (p *recordingPublisher) Enqueue(_ context.Context, e model.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) kinds() []model.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.EventKind, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Kind)
	}
	return out
}

type brokenAttempts struct {
	existsErr error
	insertErr error
	existing  *model.AttemptRecord
}

func (b brokenAttempts) Exists(context.Context, string, string) (bool, error) {
	return false, b.existsErr
}

func (b brokenAttempts) InsertIfAbsent(context.Context, model.AttemptRecord) error { return b.insertErr }

func (b brokenAttempts) Get(context.Context, string, string) (model.AttemptRecord, error) {
	if b.existing == nil {
		return model.AttemptRecord{}, repository.ErrNotFound
	}
	return *b.existing, nil
}

var rubric = []model.RubricCriterion{{Name: "quality", MaxPoints: 100}}

func games() fakeGames {
	return fakeGames{
		"plain": {ID: "plain", SkillCategory: "general", Rubric: rubric},
		"with-example": {
			ID: "with-example", SkillCategory: "boolean_search", Rubric: rubric,
			ExampleSolution: "(Java OR Kotlin) AND Berlin",
		},
	}
}

func request(player, game string) grading.Request {
	return grading.Request{PlayerID: player, GameID: game, SubmissionText: "(Java OR Kotlin) AND Berlin"}
}

func TestGradeScenarios(t *testing.T) {
	Convey("Given a grader over an in-memory store", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		pub := &recordingPublisher{}

		Convey("A copy of the example is capped at 50 even with a 95 from the model", func() {
			g := grading.New(games(), store,
				grading.WithValidator(fixedValidator{score: 80}),
				grading.WithModelScorer(fakeScorer{score: 95}),
				grading.WithEmbedder(similarity.NewEngine(constEmbedder{})),
				grading.WithPublisher(pub),
			)
			res, err := g.Grade(ctx, request("p1", "with-example"))
			So(err, ShouldBeNil)
			So(res.Integrity.IsExactCopy, ShouldBeTrue)
			So(res.Ensemble.FinalScore, ShouldBeGreaterThan, 90)
			So(res.Attempt.FinalScore, ShouldEqual, 50)
			So(res.Attempt.IntegrityRisk, ShouldEqual, model.RiskHigh)
			So(res.ReviewRequired(), ShouldBeTrue)
			So(res.Review.Reasons, ShouldContain, "flag: exact_copy")
			So(pub.kinds(), ShouldResemble, []model.EventKind{
				model.EventAttemptScored, model.EventCurationCandidate, model.EventReviewEscalation,
			})
		})

		Convey("With every tier failing the validator still yields a score", func() {
			withAI := grading.New(games(), repository.NewMemoryStore(),
				grading.WithValidator(fixedValidator{score: 80}),
				grading.WithModelScorer(fakeScorer{score: 80}),
			)
			noAI := grading.New(games(), store,
				grading.WithValidator(fixedValidator{score: 80}),
				grading.WithModelScorer(fakeScorer{err: generative.ErrUnavailable}),
			)
			full, err := withAI.Grade(ctx, request("p1", "plain"))
			So(err, ShouldBeNil)
			degraded, err := noAI.Grade(ctx, request("p1", "plain"))
			So(err, ShouldBeNil)

			So(degraded.UsedAIScoring(), ShouldBeFalse)
			So(degraded.Attempt.UsedAIScoring, ShouldBeFalse)
			So(degraded.Attempt.FinalScore, ShouldEqual, 80)
			So(degraded.Ensemble.Weights.Validation, ShouldEqual, 1.0)
			So(degraded.Ensemble.Confidence, ShouldBeLessThan, full.Ensemble.Confidence)
			So(degraded.Feedback.Rendered, ShouldNotBeEmpty)
		})

		Convey("Two hints cost six points", func() {
			g := grading.New(games(), store,
				grading.WithValidator(fixedValidator{score: 80}),
				grading.WithModelScorer(fakeScorer{score: 80}),
			)
			req := request("p1", "plain")
			req.HintsUsed = 2
			res, err := g.Grade(ctx, req)
			So(err, ShouldBeNil)
			So(res.Ensemble.FinalScore, ShouldEqual, 80)
			So(res.Breakdown.HintPenalty, ShouldEqual, 6)
			So(res.Attempt.FinalScore, ShouldEqual, 74)
			So(res.Attempt.HintsUsed, ShouldEqual, 2)
		})

		Convey("A second submission conflicts and leaves the stored attempt unchanged", func() {
			g := grading.New(games(), store, grading.WithValidator(fixedValidator{score: 70}))
			first, err := g.Grade(ctx, request("p1", "plain"))
			So(err, ShouldBeNil)

			g2 := grading.New(games(), store, grading.WithValidator(fixedValidator{score: 100}))
			_, err = g2.Grade(ctx, request("p1", "plain"))
			So(errors.Is(err, grading.ErrDuplicateSubmission), ShouldBeTrue)

			var dup *grading.DuplicateError
			So(errors.As(err, &dup), ShouldBeTrue)
			So(dup.Existing, ShouldNotBeNil)
			So(dup.Existing.ID, ShouldEqual, first.Attempt.ID)
			So(dup.Existing.FinalScore, ShouldEqual, 70)

			stored, err := store.Get(ctx, "p1", "plain")
			So(err, ShouldBeNil)
			So(stored.FinalScore, ShouldEqual, 70)
			So(store.Count(), ShouldEqual, 1)

			_, err = g.Grade(ctx, request("p2", "plain"))
			So(err, ShouldBeNil)
			So(store.Count(), ShouldEqual, 2)
		})

		Convey("A corpus below the minimum sample count has no influence", func() {
			policy := similarity.CorpusPolicy{
				MinSamples: 3, Baseline: 0.75, Scale: 40, MaxAdjustment: 8,
				WeightCeiling: 1, HalfSaturation: 5, PlayerWeight: 0.25,
			}
			for i := 0; i < 2; i++ {
				So(store.Append(ctx, model.ReferenceAnswer{GameID: "plain", Embedding: model.Embedding{0.6, 0.8}, Score: 90, SourceType: model.SourceSeed}), ShouldBeNil)
			}
			g := grading.New(games(), store,
				grading.WithValidator(fixedValidator{score: 80}),
				grading.WithEmbedder(similarity.NewEngine(constEmbedder{})),
				grading.WithCorpus(similarity.NewCorpusScorer(store, policy, nil)),
			)
			res, err := g.Grade(ctx, request("p1", "plain"))
			So(err, ShouldBeNil)
			So(res.Corpus.Samples, ShouldEqual, 2)
			So(res.Corpus.Weight, ShouldEqual, 0.0)
			So(res.Corpus.Adjustment, ShouldEqual, 0.0)
			So(res.Attempt.FinalScore, ShouldEqual, 80)

			Convey("and gains influence at the threshold", func() {
				So(store.Append(ctx, model.ReferenceAnswer{GameID: "plain", Embedding: model.Embedding{0.6, 0.8}, Score: 90, SourceType: model.SourceSeed}), ShouldBeNil)
				res, err := g.Grade(ctx, request("p2", "plain"))
				So(err, ShouldBeNil)
				So(res.Corpus.Weight, ShouldAlmostEqual, 0.375, 1e-9)
				So(res.Corpus.Adjustment, ShouldAlmostEqual, 3.0, 1e-9)
				So(res.Attempt.FinalScore, ShouldEqual, 83)
			})
		})
	})
}

func TestGradeErrors(t *testing.T) {
	Convey("Given a grader", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		g := grading.New(games(), store, grading.WithValidator(fixedValidator{score: 60}))

		Convey("Malformed requests are rejected", func() {
			for _, req := range []grading.Request{
				{GameID: "plain", SubmissionText: "x"},
				{PlayerID: "p1", SubmissionText: "x"},
				{PlayerID: "p1", GameID: "plain", SubmissionText: "   "},
				{PlayerID: "p1", GameID: "plain", SubmissionText: "x", HintsUsed: 4},
				{PlayerID: "p1", GameID: "plain", SubmissionText: "x", HintsUsed: -1},
			} {
				_, err := g.Grade(ctx, req)
				So(errors.Is(err, grading.ErrInvalidInput), ShouldBeTrue)
			}
			So(store.Count(), ShouldEqual, 0)
		})

		Convey("Oversized submissions are rejected", func() {
			g := grading.New(games(), store, grading.WithMaxTextRunes(5))
			_, err := g.Grade(ctx, grading.Request{PlayerID: "p1", GameID: "plain", SubmissionText: "too long"})
			So(errors.Is(err, grading.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("Unknown games are reported", func() {
			_, err := g.Grade(ctx, request("p1", "missing"))
			So(errors.Is(err, grading.ErrGameNotFound), ShouldBeTrue)
		})

		Convey("Datastore failures abort the request", func() {
			g := grading.New(games(), brokenAttempts{existsErr: repository.ErrUnavailable})
			_, err := g.Grade(ctx, request("p1", "plain"))
			So(errors.Is(err, grading.ErrDatastoreUnavailable), ShouldBeTrue)

			g = grading.New(games(), brokenAttempts{insertErr: repository.ErrUnavailable})
			_, err = g.Grade(ctx, request("p1", "plain"))
			So(errors.Is(err, grading.ErrDatastoreUnavailable), ShouldBeTrue)
		})

		Convey("A conflict on insert is a duplicate, not a failure", func() {
			prior := &model.AttemptRecord{ID: "a0", PlayerID: "p1", GameID: "plain", FinalScore: 55}
			g := grading.New(games(), brokenAttempts{insertErr: repository.ErrConflict, existing: prior})
			_, err := g.Grade(ctx, request("p1", "plain"))
			var dup *grading.DuplicateError
			So(errors.As(err, &dup), ShouldBeTrue)
			So(dup.Existing.FinalScore, ShouldEqual, 55)
		})

		Convey("Publish failures never surface", func() {
			pub := &recordingPublisher{err: errors.New("queue full")}
			g := grading.New(games(), store, grading.WithPublisher(pub), grading.WithValidator(fixedValidator{score: 60}))
			_, err := g.Grade(ctx, request("p1", "plain"))
			So(err, ShouldBeNil)
			So(pub.kinds(), ShouldContain, model.EventAttemptScored)
		})
	})
}

func TestGradeConcurrentDuplicates(t *testing.T) {
	Convey("Given many concurrent submissions for one (player, game)", t, func() {
		store := repository.NewMemoryStore()
		g := grading.New(games(), store,
			grading.WithValidator(fixedValidator{score: 70}),
			grading.WithModelScorer(fakeScorer{score: 70, delay: 20 * time.Millisecond}),
		)

		const n = 16
		var wg sync.WaitGroup
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = g.Grade(context.Background(), request("p1", "plain"))
			}(i)
		}
		wg.Wait()

		ok, dups := 0, 0
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, grading.ErrDuplicateSubmission):
				dups++
			}
		}
		So(ok, ShouldEqual, 1)
		So(dups, ShouldEqual, n-1)
		So(store.Count(), ShouldEqual, 1)
	})
}
