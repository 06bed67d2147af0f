package similarity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/skillgrade/internal/domain/model"
	"github.com/okian/skillgrade/internal/domain/similarity"
	. "github.com/smartystreets/goconvey/convey"
)

type embedFunc func(ctx context.Context, text string) ([]float32, error)

func (f embedFunc) Embed(ctx context.Context, text string) ([]float32, error) { return f(ctx, text) }

func TestCosine(t *testing.T) {
	Convey("Given vectors", t, func() {
		Convey("Identical vectors have similarity 1", func() {
			s, err := similarity.Cosine([]float32{1, 2, 3}, []float32{1, 2, 3})
			So(err, ShouldBeNil)
			So(s, ShouldAlmostEqual, 1.0, 1e-9)
		})

		Convey("Orthogonal vectors have similarity 0", func() {
			s, _ := similarity.Cosine([]float32{1, 0}, []float32{0, 1})
			So(s, ShouldAlmostEqual, 0.0, 1e-9)
		})

		Convey("Zero vectors compare as 0", func() {
			s, err := similarity.Cosine([]float32{0, 0}, []float32{1, 1})
			So(err, ShouldBeNil)
			So(s, ShouldEqual, 0.0)
		})

		Convey("Length mismatch is an error", func() {
			_, err := similarity.Cosine([]float32{1}, []float32{1, 2})
			So(errors.Is(err, similarity.ErrDimensionMismatch), ShouldBeTrue)
			_, ok := similarity.Compare(model.Embedding{1}, model.Embedding{1, 2})
			So(ok, ShouldBeFalse)
		})
	})
}

func TestEngine(t *testing.T) {
	Convey("Given an embedding engine", t, func() {
		ctx := context.Background()

		Convey("Without an embedder the signal is unavailable", func() {
			_, err := similarity.NewEngine(nil).Embed(ctx, "text")
			So(errors.Is(err, similarity.ErrSignalUnavailable), ShouldBeTrue)
		})

		Convey("Embedder errors degrade to unavailable", func() {
			e := similarity.NewEngine(embedFunc(func(context.Context, string) ([]float32, error) {
				return nil, errors.New("quota")
			}))
			_, err := e.Embed(ctx, "text")
			So(errors.Is(err, similarity.ErrSignalUnavailable), ShouldBeTrue)
		})

		Convey("Each call runs under its own timeout", func() {
			e := similarity.NewEngine(embedFunc(func(ctx context.Context, _ string) ([]float32, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			}), similarity.WithTimeout(10*time.Millisecond))
			_, err := e.Embed(ctx, "text")
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
		})

		Convey("A successful call returns the vector", func() {
			e := similarity.NewEngine(embedFunc(func(context.Context, string) ([]float32, error) {
				return []float32{0.1, 0.2}, nil
			}))
			v, err := e.Embed(ctx, "text")
			So(err, ShouldBeNil)
			So(v, ShouldHaveLength, 2)
		})
	})
}

type staticCorpus struct {
	refs []model.ReferenceAnswer
	err  error
}

func (s staticCorpus) QueryByGame(context.Context, string) ([]model.ReferenceAnswer, error) {
	return s.refs, s.err
}

func policy() similarity.CorpusPolicy {
	return similarity.CorpusPolicy{
		MinSamples: 3, Baseline: 0.75, Scale: 40, MaxAdjustment: 8,
		WeightCeiling: 1, HalfSaturation: 5, PlayerWeight: 0.25,
	}
}

func refs(n int, source model.SourceType) []model.ReferenceAnswer {
	out := make([]model.ReferenceAnswer, n)
	for i := range out {
		out[i] = model.ReferenceAnswer{Embedding: model.Embedding{1, 0, 0}, SourceType: source}
	}
	return out
}

func TestCorpusPolicy(t *testing.T) {
	Convey("Given the corpus weighting policy", t, func() {
		p := policy()

		Convey("Weight is zero below the minimum sample count", func() {
			So(p.Weight(2, 2), ShouldEqual, 0.0)
			So(p.Weight(0, 0), ShouldEqual, 0.0)
		})

		Convey("Weight grows with verified entries and total size", func() {
			So(p.Weight(3, 3), ShouldAlmostEqual, 0.375, 1e-9)
			So(p.Weight(3, 0), ShouldBeLessThan, p.Weight(3, 1))
			So(p.Weight(3, 1), ShouldBeLessThan, p.Weight(3, 2))
			So(p.Weight(10, 2), ShouldBeGreaterThan, p.Weight(5, 2))
			So(p.Weight(1000, 1000), ShouldBeLessThan, p.WeightCeiling)
		})

		Convey("Adjustment is bounded", func() {
			So(p.Adjust(0.95, 0.375), ShouldAlmostEqual, 3.0, 1e-9)
			So(p.Adjust(-1, 1), ShouldEqual, -8.0)
			So(p.Adjust(0.75, 1), ShouldEqual, 0.0)
		})
	})
}

func TestCorpusScorer(t *testing.T) {
	Convey("Given a corpus scorer", t, func() {
		ctx := context.Background()
		emb := model.Embedding{1, 0, 0}

		Convey("A corpus below the minimum contributes nothing", func() {
			s := similarity.NewCorpusScorer(staticCorpus{refs: refs(2, model.SourceSeed)}, policy(), nil)
			res := s.Score(ctx, "g1", emb)
			So(res.Samples, ShouldEqual, 2)
			So(res.Weight, ShouldEqual, 0.0)
			So(res.Adjustment, ShouldEqual, 0.0)
		})

		Convey("A trusted corpus pulls close answers up", func() {
			s := similarity.NewCorpusScorer(staticCorpus{refs: refs(3, model.SourceSeed)}, policy(), nil)
			res := s.Score(ctx, "g1", emb)
			So(res.Verified, ShouldEqual, 3)
			So(res.BestSimilarity, ShouldAlmostEqual, 1.0, 1e-9)
			So(res.Adjustment, ShouldAlmostEqual, 3.0, 1e-9)
		})

		Convey("Unverified player entries count for less", func() {
			trusted := similarity.NewCorpusScorer(staticCorpus{refs: refs(4, model.SourceSeed)}, policy(), nil).Score(ctx, "g1", emb)
			players := similarity.NewCorpusScorer(staticCorpus{refs: refs(4, model.SourcePlayer)}, policy(), nil).Score(ctx, "g1", emb)
			So(players.Weight, ShouldBeLessThan, trusted.Weight)
		})

		Convey("Store failures and missing embeddings yield zero", func() {
			s := similarity.NewCorpusScorer(staticCorpus{err: errors.New("down")}, policy(), nil)
			So(s.Score(ctx, "g1", emb), ShouldResemble, similarity.CorpusResult{})
			So(similarity.NewCorpusScorer(staticCorpus{refs: refs(5, model.SourceSeed)}, policy(), nil).Score(ctx, "g1", nil),
				ShouldResemble, similarity.CorpusResult{})
		})
	})
}
