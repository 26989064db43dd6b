package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with options", func() {
			manager := NewManager(
				WithNamespace("kamtest"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.imports.WithLabelValues("preview", "ok").Inc()

			Convey("Then collectors are registered under the namespace with const labels", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, mf := range families {
					if mf.GetName() == "kamtest_unit_imports_total" {
						found = true
						So(mf.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When registering the same manager twice on one registry", func() {
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then promauto panics on the duplicate", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording import outcomes", func() {
			before := testutil.ToFloat64(globalManager.imports.WithLabelValues("confirm", "ok"))
			RecordImport("confirm", "ok")
			RecordImportRows(7, 2)
			RecordImportFailure("invalid_date")
			RecordImportLatency(3)
			UpdatePreviewsActive(1)

			Convey("Then the counters move", func() {
				So(testutil.ToFloat64(globalManager.imports.WithLabelValues("confirm", "ok")), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.previewsActive), ShouldEqual, 1)
			})
		})

		Convey("When recording store and persistence metrics", func() {
			UpdateCollectionSize("kam-excel-data", 12)
			RecordStoreMutation("kam-call-records", "upsert")
			RecordStoreMutationLatency(0.2)
			RecordPersist("kam-excel-data", "ok")
			RecordPersistLatency(4)
			RecordPersistCoalesced()

			So(testutil.ToFloat64(globalManager.collectionSize.WithLabelValues("kam-excel-data")), ShouldEqual, 12)
		})

		Convey("When recording queue, worker, feed and system metrics", func() {
			So(func() {
				UpdateQueueCapacity(64)
				UpdateQueueSize(3)
				UpdateQueueUtilization(3.0 / 64)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordQueueProcessingLatency(0.01)
				UpdateWorkerCount(2)
				RecordWorkerProcessingLatency(5)
				RecordWorkerError()
				UpdateWebsocketClients(1)
				RecordWebsocketMessage()
				RecordChangeDropped()
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(10)
				RecordSystemGCPauseTime(0.5)
			}, ShouldNotPanic)
			So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 64)
		})

		Convey("When recording HTTP and error metrics", func() {
			So(func() {
				RecordHTTPRequest("records", "GET", "200")
				RecordHTTPRequestDuration("records", "GET", "200", 2)
				RecordLogin("ok")
				RecordErrorByComponent("storage", "save_failed")
				RecordErrorByType("client_error", "medium")
				RecordErrorByEndpoint("imports", "POST", "client_error")
				RecordErrorLatency("http", "client_error", 1)
			}, ShouldNotPanic)
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("The custom registry exposes kam metrics only", t, func() {
		RecordHTTPRequest("healthz", "GET", "200")
		families, err := GetRegistry().Gather()
		So(err, ShouldBeNil)
		So(len(families), ShouldBeGreaterThan, 0)
		for _, mf := range families {
			So(strings.HasPrefix(mf.GetName(), "kam_"), ShouldBeTrue)
		}
	})
}
