// Package metrics records pipeline counters on a dedicated Prometheus
// registry and exports them once a run ends, either as a node-exporter
// textfile or to a Pushgateway.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Registry holds every ggufpub collector.
var Registry = prometheus.NewRegistry()

var (
	quantizeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ggufpub",
			Subsystem: "quantize",
			Name:      "levels_total",
			Help:      "Quantization levels processed, by level and result",
		},
		[]string{"level", "result"},
	)

	quantizeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ggufpub",
			Subsystem: "quantize",
			Name:      "duration_seconds",
			Help:      "Wall time of one quantizer invocation",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"level"},
	)

	artifactBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "ggufpub",
			Subsystem: "artifact",
			Name:      "size_bytes",
			Help:      "Size of each validated artifact",
		},
		[]string{"level"},
	)

	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ggufpub",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		},
		[]string{"stage", "result"},
	)

	uploadAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ggufpub",
			Subsystem: "publish",
			Name:      "upload_attempts_total",
			Help:      "Upload attempts, by result",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(quantizeTotal, quantizeDuration, artifactBytes, stageDuration, uploadAttempts)
}

// Result labels.
const (
	ResultOK      = "ok"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
	ResultInvalid = "invalid"
)

// ObserveQuantize records one level outcome. d is ignored for skips.
func ObserveQuantize(level, result string, d time.Duration) {
	quantizeTotal.WithLabelValues(level, result).Inc()
	if result != ResultSkipped {
		quantizeDuration.WithLabelValues(level).Observe(d.Seconds())
	}
}

// SetArtifactSize records the size of a validated artifact.
func SetArtifactSize(level string, n int64) {
	artifactBytes.WithLabelValues(level).Set(float64(n))
}

// ObserveStage records the duration of a pipeline stage.
func ObserveStage(stage string, err error, d time.Duration) {
	result := ResultOK
	if err != nil {
		result = ResultFailed
	}
	stageDuration.WithLabelValues(stage, result).Observe(d.Seconds())
}

// ObserveUpload counts one upload attempt.
func ObserveUpload(err error) {
	if err != nil {
		uploadAttempts.WithLabelValues(ResultFailed).Inc()
		return
	}
	uploadAttempts.WithLabelValues(ResultOK).Inc()
}

// WriteTextfile writes the registry in the text exposition format, suitable
// for the node-exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Push sends the registry to a Pushgateway under job, grouped by model.
func Push(ctx context.Context, url, job, model string) error {
	p := push.New(url, job).Gatherer(Registry)
	if model != "" {
		p = p.Grouping("model", model)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
