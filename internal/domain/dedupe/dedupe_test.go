package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/kam/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new deduper", t, func() {
		d := dedupe.NewInMemoryDeduper()

		Convey("Then it starts empty", func() {
			So(d.Size(), ShouldEqual, 0)
			So(d.Contains(ctx, "preview-1"), ShouldBeFalse)
		})

		Convey("When an id is recorded for the first time", func() {
			seen := d.SeenAndRecord(ctx, "preview-1")

			Convey("Then it reports unseen and remembers it", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
				So(d.Contains(ctx, "preview-1"), ShouldBeTrue)
			})

			Convey("And recorded again it reports seen", func() {
				So(d.SeenAndRecord(ctx, "preview-1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And unrecorded it can be recorded again", func() {
				d.Unrecord(ctx, "preview-1")
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "preview-1"), ShouldBeFalse)
			})
		})

		Convey("When an unknown id is unrecorded", func() {
			d.Unrecord(ctx, "missing")

			Convey("Then nothing changes", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a bounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for i := 1; i <= 3; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("p-%d", i))
		}

		Convey("When one more id is recorded", func() {
			d.SeenAndRecord(ctx, "p-4")

			Convey("Then the oldest is forgotten", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.Contains(ctx, "p-1"), ShouldBeFalse)
				So(d.Contains(ctx, "p-2"), ShouldBeTrue)
				So(d.Contains(ctx, "p-4"), ShouldBeTrue)
			})
		})

		Convey("When an id is unrecorded before the ring wraps", func() {
			d.Unrecord(ctx, "p-2")
			d.SeenAndRecord(ctx, "p-4")

			Convey("Then the freed slot is reused without another eviction", func() {
				So(d.Contains(ctx, "p-1"), ShouldBeFalse)
				So(d.Contains(ctx, "p-3"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 2)

				d.SeenAndRecord(ctx, "p-5")
				So(d.Size(), ShouldEqual, 3)
				So(d.Contains(ctx, "p-3"), ShouldBeTrue)
			})
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(-1))
		for i := 0; i < 1000; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("p-%d", i))
		}

		Convey("Then nothing is evicted", func() {
			So(d.Size(), ShouldEqual, 1000)
			So(d.Contains(ctx, "p-0"), ShouldBeTrue)
		})
	})
}

func TestDeduperConcurrency(t *testing.T) {
	Convey("Given many goroutines confirming the same ids", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(100))

		var wg sync.WaitGroup
		var mu sync.Mutex
		firsts := 0
		for g := 0; g < 10; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 20; i++ {
					if !d.SeenAndRecord(ctx, fmt.Sprintf("p-%d", i)) {
						mu.Lock()
						firsts++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then each id is recorded exactly once", func() {
			So(firsts, ShouldEqual, 20)
			So(d.Size(), ShouldEqual, 20)
		})
	})
}
