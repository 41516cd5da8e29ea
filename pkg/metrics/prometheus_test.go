package metrics_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/igorsal/bitbucket-notifier/pkg/metrics"
)

var _ = Describe("PrometheusCollector", func() {
	var (
		registry  *prometheus.Registry
		collector *metrics.PrometheusCollector
	)

	BeforeEach(func() {
		registry = prometheus.NewRegistry()
		collector = metrics.NewPrometheusCollectorWith(registry)
	})

	It("counts events by outcome", func() {
		labels := map[string]string{"context": "repo", "action": "push", "status": "success"}
		collector.IncrementCounter("events_total", labels)
		collector.IncrementCounter("events_total", labels)

		Expect(testutil.GatherAndCount(registry, "bitbucket_notifier_events_total")).To(Equal(1))
	})

	It("records relay durations and breaker state", func() {
		collector.RecordDuration("relay_request_duration_seconds", 0.2, map[string]string{"service": "slack"})
		collector.SetGauge("circuit_breaker_state", 2, map[string]string{"name": "slack-webhook"})

		Expect(testutil.GatherAndCount(registry,
			"bitbucket_notifier_relay_request_duration_seconds",
			"bitbucket_notifier_circuit_breaker_state",
		)).To(Equal(2))
	})

	It("ignores unknown metric names", func() {
		Expect(func() {
			collector.IncrementCounter("missing", nil)
			collector.RecordDuration("missing", 1, nil)
			collector.SetGauge("missing", 1, nil)
		}).ToNot(Panic())
	})

	It("keeps the first registration of a custom metric", func() {
		collector.RegisterCustomCounter("custom_total", "Custom", []string{"kind"})
		Expect(func() {
			collector.RegisterCustomCounter("custom_total", "Custom", []string{"kind"})
		}).ToNot(Panic())
	})
})
