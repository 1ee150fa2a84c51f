// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// csvviz runs are short-lived, so collected metrics are pushed to a
// Pushgateway on Flush instead of being exposed on a scrape endpoint. The job
// label is the Pushgateway grouping key; the remaining labels become
// Prometheus labels on CounterVec and SummaryVec collectors.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"csvviz/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	stepCounter  *prometheus.CounterVec // csvviz_step_total
	stepDuration *prometheus.SummaryVec // csvviz_step_duration_seconds
	rowCounter   *prometheus.CounterVec // csvviz_rows_total
	exportBytes  *prometheus.CounterVec // csvviz_export_bytes_total
}

// NewBackend constructs a Prometheus Pushgateway backend. An empty jobName
// defaults to "csvviz".
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "csvviz"
	}

	reg := prometheus.NewRegistry()

	stepCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Pipeline step executions, partitioned by step and status.",
		},
		[]string{"step", "status"},
	)
	stepDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       metrics.StepDurationSeconds,
			Help:       "Duration of pipeline steps in seconds, partitioned by step and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step", "status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.RowsTotal,
			Help: "Row counts per kind (ingested, dropped_blank, filtered_out, ...).",
		},
		[]string{"kind"},
	)
	exportBytes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.ExportBytesTotal,
			Help: "Bytes of exported artifacts per format.",
		},
		[]string{"format"},
	)

	for _, c := range []prometheus.Collector{stepCounter, stepDuration, rowCounter, exportBytes} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register collector: %w", err)
		}
	}

	return &Backend{
		gatewayURL:   gatewayURL,
		jobName:      jobName,
		reg:          reg,
		stepCounter:  stepCounter,
		stepDuration: stepDuration,
		rowCounter:   rowCounter,
		exportBytes:  exportBytes,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		if b.stepCounter == nil {
			return
		}
		b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)

	case metrics.RowsTotal:
		if b.rowCounter == nil {
			return
		}
		b.rowCounter.WithLabelValues(labels["kind"]).Add(delta)

	case metrics.ExportBytesTotal:
		if b.exportBytes == nil {
			return
		}
		b.exportBytes.WithLabelValues(labels["format"]).Add(delta)

	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDurationSeconds || b.stepDuration == nil {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
