package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/okian/kam/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func job(v uint64) Job {
	return Job{Collection: model.CollectionRecords, Snapshot: &model.Snapshot{}, Version: v}
}

func TestInMemoryQueue(t *testing.T) {
	ctx := context.Background()

	Convey("Given a queue with capacity 2", t, func() {
		q := NewInMemoryQueue(WithCapacity(2))

		Convey("Then it starts empty and open", func() {
			So(q.Len(), ShouldEqual, 0)
			So(q.IsClosed(), ShouldBeFalse)
		})

		Convey("When jobs are enqueued up to capacity", func() {
			So(q.Enqueue(ctx, job(1)), ShouldBeTrue)
			So(q.Enqueue(ctx, job(2)), ShouldBeTrue)

			Convey("Then a further job is refused without blocking", func() {
				So(q.Enqueue(ctx, job(3)), ShouldBeFalse)
				So(q.Len(), ShouldEqual, 2)
			})

			Convey("Then jobs come out in order with an enqueue time", func() {
				first := <-q.Dequeue()
				q.Done(first)
				So(first.Version, ShouldEqual, 1)
				So(first.Enqueued.IsZero(), ShouldBeFalse)
				So((<-q.Dequeue()).Version, ShouldEqual, 2)
			})
		})

		Convey("When the clock is fixed", func() {
			at := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
			fixed := NewInMemoryQueue(WithCapacity(1), WithClock(func() time.Time { return at }))
			So(fixed.Enqueue(ctx, job(1)), ShouldBeTrue)

			Convey("Then jobs are stamped with it", func() {
				So((<-fixed.Dequeue()).Enqueued, ShouldEqual, at)
			})
		})

		Convey("When the queue is closed", func() {
			So(q.Enqueue(ctx, job(1)), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)
			So(q.Close(), ShouldBeNil)

			Convey("Then enqueue fails but queued jobs drain before the channel closes", func() {
				So(q.Enqueue(ctx, job(2)), ShouldBeFalse)
				j, ok := <-q.Dequeue()
				So(ok, ShouldBeTrue)
				So(j.Version, ShouldEqual, 1)
				_, ok = <-q.Dequeue()
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			So(q.Enqueue(cctx, job(1)), ShouldBeFalse)
		})
	})

	Convey("Given concurrent producers and a close", t, func() {
		q := NewInMemoryQueue(WithCapacity(1000))
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for v := 0; v < 50; v++ {
					q.Enqueue(ctx, job(uint64(v)))
				}
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Close()
		}()
		wg.Wait()

		Convey("Then nothing panics and the queue ends closed", func() {
			So(q.IsClosed(), ShouldBeTrue)
			So(q.Len(), ShouldBeLessThanOrEqualTo, 500)
		})
	})
}
