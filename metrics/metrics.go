// Package metrics exposes process-level counters for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotblauer/fieldcat/telemetry"
)

var Registry = prometheus.NewRegistry()

var (
	PassesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldcat",
		Name:      "passes_total",
		Help:      "Pipeline passes by movement context.",
	}, []string{"context"})

	SuspiciousTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fieldcat",
		Name:      "suspicious_total",
		Help:      "Fixes flagged as suspicious.",
	})

	DeliveryTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldcat",
		Name:      "delivery_total",
		Help:      "Delivery outcomes of live fixes.",
	}, []string{"outcome"})

	DrainedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fieldcat",
		Name:      "drained_total",
		Help:      "Pending records acknowledged by the backend.",
	})

	PendingRecords = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fieldcat",
		Name:      "pending_records",
		Help:      "Records waiting in the pending queue.",
	})

	ProcessingSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fieldcat",
		Name:      "processing_seconds",
		Help:      "Pipeline pass duration.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
	})

	AccuracyImprovement = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fieldcat",
		Name:      "accuracy_improvement_meters",
		Help:      "Reported accuracy minus fused accuracy.",
		Buckets:   []float64{-10, -1, 0, 1, 2, 5, 10, 20, 50},
	})

	SensorSamplesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fieldcat",
		Name:      "sensor_samples_dropped_total",
		Help:      "Sensor samples dropped because the feed was full.",
	})
)

func init() {
	Registry.MustRegister(
		PassesTotal,
		SuspiciousTotal,
		DeliveryTotal,
		DrainedTotal,
		PendingRecords,
		ProcessingSeconds,
		AccuracyImprovement,
		SensorSamplesDropped,
		collectors.NewGoCollector(),
	)
}

// ObservePass records one pipeline pass.
func ObservePass(m telemetry.Metric) {
	PassesTotal.WithLabelValues(m.Context.String()).Inc()
	if m.WasSuspicious {
		SuspiciousTotal.Inc()
	}
	ProcessingSeconds.Observe(m.ProcessingTimeMs / 1000)
	AccuracyImprovement.Observe(m.Improvement)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
