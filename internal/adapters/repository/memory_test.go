package repository_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/skillgrade/internal/adapters/repository"
	"github.com/okian/skillgrade/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemoryStoreAttempts(t *testing.T) {
	Convey("Given an empty memory store", t, func() {
		ctx := context.Background()
		s := repository.NewMemoryStore()
		rec := model.AttemptRecord{PlayerID: "p1", GameID: "g1", FinalScore: 74}

		Convey("The first insert succeeds and assigns an ID", func() {
			So(s.InsertIfAbsent(ctx, rec), ShouldBeNil)
			ok, err := s.Exists(ctx, "p1", "g1")
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)

			got, err := s.Get(ctx, "p1", "g1")
			So(err, ShouldBeNil)
			So(got.ID, ShouldNotBeEmpty)
			So(got.FinalScore, ShouldEqual, 74)
		})

		Convey("A second insert for the pair conflicts and keeps the original", func() {
			So(s.InsertIfAbsent(ctx, rec), ShouldBeNil)
			rec.FinalScore = 99
			So(errors.Is(s.InsertIfAbsent(ctx, rec), repository.ErrConflict), ShouldBeTrue)
			got, _ := s.Get(ctx, "p1", "g1")
			So(got.FinalScore, ShouldEqual, 74)
			So(s.Count(), ShouldEqual, 1)
		})

		Convey("Unknown pairs are not found", func() {
			_, err := s.Get(ctx, "p1", "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Concurrent inserts store exactly one attempt", func() {
			var wins atomic.Int32
			var conflicts atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 32; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					switch err := s.InsertIfAbsent(ctx, rec); {
					case err == nil:
						wins.Add(1)
					case errors.Is(err, repository.ErrConflict):
						conflicts.Add(1)
					}
				}()
			}
			wg.Wait()
			So(wins.Load(), ShouldEqual, 1)
			So(conflicts.Load(), ShouldEqual, 31)
		})

		Convey("A cancelled context is honored", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			So(s.InsertIfAbsent(cctx, rec), ShouldNotBeNil)
		})
	})
}

func TestMemoryStoreCorpusAndReviews(t *testing.T) {
	Convey("Given a memory store with a corpus cap", t, func() {
		ctx := context.Background()
		s := repository.NewMemoryStore(repository.WithCorpusLimit(2))

		Convey("Entries are returned per game", func() {
			So(s.Append(ctx, model.ReferenceAnswer{GameID: "g1", SourceType: model.SourceSeed}), ShouldBeNil)
			So(s.Append(ctx, model.ReferenceAnswer{GameID: "g2", SourceType: model.SourceSeed}), ShouldBeNil)
			refs, err := s.QueryByGame(ctx, "g1")
			So(err, ShouldBeNil)
			So(refs, ShouldHaveLength, 1)
			So(refs[0].ID, ShouldNotBeEmpty)
		})

		Convey("The cap drops untrusted entries before seeds", func() {
			_ = s.Append(ctx, model.ReferenceAnswer{GameID: "g1", SourceType: model.SourceSeed, Score: 1})
			_ = s.Append(ctx, model.ReferenceAnswer{GameID: "g1", SourceType: model.SourcePlayer, Score: 2})
			_ = s.Append(ctx, model.ReferenceAnswer{GameID: "g1", SourceType: model.SourcePlayer, Score: 3})
			refs, _ := s.QueryByGame(ctx, "g1")
			So(refs, ShouldHaveLength, 2)
			So(refs[0].Score, ShouldEqual, 1)
			So(refs[1].Score, ShouldEqual, 3)
		})

		Convey("Pending reviews come back oldest first and limited", func() {
			now := time.Now()
			_ = s.Enqueue(ctx, model.ReviewQueueItem{AttemptID: "b", CreatedAt: now.Add(time.Second), Reasons: []string{"x"}})
			_ = s.Enqueue(ctx, model.ReviewQueueItem{AttemptID: "a", CreatedAt: now, Reasons: []string{"x"}})
			_ = s.Enqueue(ctx, model.ReviewQueueItem{AttemptID: "c", CreatedAt: now.Add(2 * time.Second), Reasons: []string{"x"}})
			items, err := s.Pending(ctx, 2)
			So(err, ShouldBeNil)
			So(items, ShouldHaveLength, 2)
			So(items[0].AttemptID, ShouldEqual, "a")
			So(items[1].AttemptID, ShouldEqual, "b")
		})
	})
}
