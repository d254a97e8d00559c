package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

// find returns the family called name from the global registry.
func find(name string) *dto.MetricFamily {
	families, err := GetRegistry().Gather()
	So(err, ShouldBeNil)
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func labelled(f *dto.MetricFamily, pairs map[string]string) *dto.Metric {
	for _, m := range f.GetMetric() {
		matched := 0
		for _, l := range m.GetLabel() {
			if v, ok := pairs[l.GetName()]; ok && v == l.GetValue() {
				matched++
			}
		}
		if matched == len(pairs) {
			return m
		}
	}
	return nil
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "trainerscope")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 2}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.levelUps.Inc()

			Convey("Then metric names carry the namespace and subsystem", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["test_unit_level_ups_total"], ShouldBeTrue)
			})
		})

		Convey("When empty options are passed", func() {
			manager := NewManager(WithNamespace(""), WithHistogramBuckets(nil), WithPrometheusRegistry(prometheus.NewRegistry()))

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "trainerscope")
				So(len(manager.histogramBuckets), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global registry", t, func() {
		Convey("When recording submissions", func() {
			before := find("trainerscope_assessments_accepted_total")
			start := 0.0
			if before != nil {
				start = before.GetMetric()[0].GetCounter().GetValue()
			}
			RecordAssessmentAccepted()
			RecordAssessmentAccepted()

			Convey("Then the counter advances", func() {
				f := find("trainerscope_assessments_accepted_total")
				So(f, ShouldNotBeNil)
				So(f.GetMetric()[0].GetCounter().GetValue(), ShouldEqual, start+2)
			})
		})

		Convey("When recording labelled alerts", func() {
			RecordAlert("declining", "high")

			Convey("Then the type and severity labels are set", func() {
				f := find("trainerscope_alerts_generated_total")
				So(f, ShouldNotBeNil)
				So(labelled(f, map[string]string{"type": "declining", "severity": "high"}), ShouldNotBeNil)
			})
		})

		Convey("When recording XP", func() {
			RecordXPAwarded(0)
			RecordXPAwarded(-5)
			RecordXPAwarded(50)

			Convey("Then only positive awards are added", func() {
				f := find("trainerscope_xp_awarded_total")
				So(f, ShouldNotBeNil)
				So(f.GetMetric()[0].GetCounter().GetValue(), ShouldBeGreaterThanOrEqualTo, 50)
			})
		})

		Convey("When recording the remaining families", func() {
			So(func() {
				RecordAssessmentDuplicate()
				RecordAssessmentRejected("validation")
				RecordActivityProcessed("assessment_given")
				RecordActivityInline()
				RecordLevelUp()
				RecordBadgeAwarded("high_achiever")
				RecordAnalyticsLatency("correlations", 1.5)
				RecordStoreLatency("insert_assessment", 0.3)
				UpdateLeaderboardSize(10)
				RecordLeaderboardUpdate()
				UpdateQueueSize(3)
				UpdateQueueCapacity(100)
				UpdateQueueUtilization(0.03)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				UpdateWorkerCount(4)
				UpdateWorkerActiveCount(1)
				RecordWorkerProcessingLatency(2)
				RecordWorkerError()
				RecordHTTPRequest("/assessments", "POST", "202")
				RecordHTTPRequestDuration("/assessments", "POST", "202", 4)
				RecordErrorByComponent("repository", "not_found")
			}, ShouldNotPanic)

			Convey("Then gauges hold the last value", func() {
				f := find("trainerscope_queue_capacity")
				So(f, ShouldNotBeNil)
				So(f.GetMetric()[0].GetGauge().GetValue(), ShouldEqual, 100)
			})
		})
	})
}
