// Package metrics exposes pipeline measurements in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/creatorstation/thumbnailer/pkg/mediaerr"
	"github.com/creatorstation/thumbnailer/pkg/thumbnail"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "thumbnailer"

// Metrics implements thumbnail.Observer on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
	stages      *prometheus.HistogramVec
	uploadBytes prometheus.Histogram
}

var _ thumbnail.Observer = (*Metrics)(nil)

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome (ok or error kind).",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "End-to-end pipeline duration.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of successful pipeline stages.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"stage"}),
		uploadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_size_bytes",
			Help:      "Size of buffered uploads.",
			Buckets:   prometheus.ExponentialBuckets(64*1024, 4, 10),
		}),
	}

	m.registry.MustRegister(
		m.runs,
		m.runDuration,
		m.stages,
		m.uploadBytes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveUpload(sizeBytes int64) {
	m.uploadBytes.Observe(float64(sizeBytes))
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.stages.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) ObserveRun(err error, d time.Duration) {
	m.runs.WithLabelValues(Outcome(err)).Inc()
	m.runDuration.Observe(d.Seconds())
}

// Outcome is the runs_total label for a pipeline result.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return mediaerr.KindOf(err).String()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func MountController(router fiber.Router, m *Metrics) {
	router.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
}
