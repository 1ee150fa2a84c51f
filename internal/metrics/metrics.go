// Package metrics is a small, backend-agnostic facade for recording
// operational metrics from csvviz runs.
//
// The default backend is a no-op, so instrumentation is always safe to call.
// Concrete systems live in subpackages (prompush, datadog) and are installed
// once at startup with SetBackend.
package metrics

import (
	"sync/atomic"
	"time"
)

// Metric names shared by every backend.
const (
	StepTotal           = "csvviz_step_total"
	StepDurationSeconds = "csvviz_step_duration_seconds"
	RowsTotal           = "csvviz_rows_total"
	ExportBytesTotal    = "csvviz_export_bytes_total"
)

// Row kinds reported through RecordRows.
const (
	RowsIngested     = "ingested"
	RowsDroppedBlank = "dropped_blank"
	RowsSkipped      = "skipped"
	RowsFilteredOut  = "filtered_out"
	SeriesPoints     = "series_points"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

type holder struct{ b Backend }

var current atomic.Pointer[holder]

func init() { current.Store(&holder{nopBackend{}}) }

func backend() Backend { return current.Load().b }

// SetBackend installs a concrete backend. Passing nil keeps the existing one.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	current.Store(&holder{b})
}

// Reset restores the no-op backend.
func Reset() { current.Store(&holder{nopBackend{}}) }

// Flush delegates to the current backend.
func Flush() error {
	return backend().Flush()
}

// RecordStep counts one execution of a pipeline step and observes its
// duration, labelled by job, step and success/failure.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}
	b := backend()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordRows adds n to the row counter for job and kind. Non-positive
// deltas are ignored.
func RecordRows(job, kind string, n int) {
	if n <= 0 {
		return
	}
	backend().IncCounter(RowsTotal, float64(n), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordExport counts the bytes of one exported artifact; format is the
// file extension, e.g. "csv", "png" or "svg".
func RecordExport(job, format string, n int) {
	if n <= 0 {
		return
	}
	backend().IncCounter(ExportBytesTotal, float64(n), Labels{
		"job":    job,
		"format": format,
	})
}
