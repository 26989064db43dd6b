package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/kam/internal/adapters/storage"
	service "github.com/okian/kam/internal/app"
	"github.com/okian/kam/internal/config"
	"github.com/okian/kam/pkg/metrics"
)

type fakeClients int64

func (f fakeClients) Clients() int64 { return int64(f) }

func TestRun(t *testing.T) {
	t.Setenv("KAM_ADDR", "127.0.0.1:0")
	t.Setenv("KAM_STORAGE__DRIVER", "memory")
	t.Setenv("KAM_AUTH__JWT_SECRET", "a-very-long-test-secret")
	t.Setenv("KAM_AUTH__ADMIN_PASSWORD", "admin-pass")
	t.Setenv("KAM_LOG_LEVEL", "error")

	convey.Convey("Given a memory-backed configuration", t, func() {
		cfg, err := config.Load(context.Background())
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.Storage.Driver, convey.ShouldEqual, config.DriverMemory)

		convey.Convey("When run is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- run(ctx) }()
			time.Sleep(100 * time.Millisecond)
			cancel()

			convey.Convey("Then it shuts down cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					convey.So("run did not return", convey.ShouldBeEmpty)
				}
			})
		})
	})
}

func TestRunRejectsBadConfig(t *testing.T) {
	t.Setenv("KAM_AUTH__JWT_SECRET", "")

	convey.Convey("Given no JWT secret", t, func() {
		err := run(context.Background())

		convey.Convey("Then run fails before serving", func() {
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "jwt_secret")
		})
	})
}

func TestUpdateServiceMetrics(t *testing.T) {
	convey.Convey("Given a started service", t, func() {
		svc := service.New(service.WithBackend(storage.NewMemory()), service.WithWorkerCount(3))
		convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
		defer svc.Stop(context.Background()) //nolint:errcheck

		convey.Convey("When service metrics are refreshed", func() {
			updateServiceMetrics(svc, fakeClients(2))

			convey.Convey("Then the gauges follow the stats", func() {
				families, err := metrics.GetRegistry().Gather()
				convey.So(err, convey.ShouldBeNil)
				found := map[string]float64{}
				for _, mf := range families {
					if len(mf.GetMetric()) > 0 && mf.GetMetric()[0].GetGauge() != nil {
						found[mf.GetName()] = mf.GetMetric()[0].GetGauge().GetValue()
					}
				}
				convey.So(found["kam_worker_count"], convey.ShouldEqual, 3)
				convey.So(found["kam_websocket_clients"], convey.ShouldEqual, 2)
			})
		})
	})
}

func TestRunEvery(t *testing.T) {
	convey.Convey("Given a ticking function", t, func() {
		var calls atomic.Int32
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
		defer cancel()

		runEvery(ctx, 10*time.Millisecond, func() { calls.Add(1) })

		convey.Convey("Then it ran until the context ended", func() {
			convey.So(calls.Load(), convey.ShouldBeGreaterThan, 1)
		})
	})
}

func TestUpdateSystemMetrics(t *testing.T) {
	convey.Convey("Refreshing system metrics records the goroutine count", t, func() {
		updateSystemMetrics()
		convey.So(testutil.CollectAndCount(metrics.GetRegistry(), "kam_system_goroutines"), convey.ShouldEqual, 1)
	})
}
