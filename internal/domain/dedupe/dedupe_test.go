package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/skillgrade/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given an in-memory deduper", t, func() {
		ctx := context.Background()

		Convey("A new key is recorded and a repeat is reported", func() {
			d := dedupe.NewInMemoryDeduper()
			So(d.SeenAndRecord(ctx, "p1:g1"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "p1:g1"), ShouldBeTrue)
			So(d.Size(), ShouldEqual, 1)
		})

		Convey("Unrecord releases the key", func() {
			d := dedupe.NewInMemoryDeduper()
			d.SeenAndRecord(ctx, "p1:g1")
			d.Unrecord(ctx, "p1:g1")
			So(d.Size(), ShouldEqual, 0)
			So(d.SeenAndRecord(ctx, "p1:g1"), ShouldBeFalse)
			d.Unrecord(ctx, "missing")
		})

		Convey("When full the oldest key is evicted", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(2))
			d.SeenAndRecord(ctx, "a")
			d.SeenAndRecord(ctx, "b")
			d.SeenAndRecord(ctx, "c")
			So(d.Size(), ShouldEqual, 2)
			So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "c"), ShouldBeTrue)
		})

		Convey("Keys expire after the TTL", func() {
			now := time.Unix(1000, 0)
			d := dedupe.NewInMemoryDeduper(
				dedupe.WithTTL(time.Minute),
				dedupe.WithClock(func() time.Time { return now }),
			)
			d.SeenAndRecord(ctx, "p1:g1")
			now = now.Add(2 * time.Minute)
			So(d.SeenAndRecord(ctx, "p1:g1"), ShouldBeFalse)
		})

		Convey("Concurrent callers admit exactly one owner per key", func() {
			d := dedupe.NewInMemoryDeduper()
			var owners atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if !d.SeenAndRecord(ctx, "p1:g1") {
						owners.Add(1)
					}
				}()
			}
			wg.Wait()
			So(owners.Load(), ShouldEqual, 1)
		})

		Convey("Distinct keys do not collide", func() {
			d := dedupe.NewInMemoryDeduper()
			for i := 0; i < 100; i++ {
				So(d.SeenAndRecord(ctx, fmt.Sprintf("p%d:g1", i)), ShouldBeFalse)
			}
			So(d.Size(), ShouldEqual, 100)
		})
	})
}
