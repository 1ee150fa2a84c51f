// Package backend installs the metrics backend named by a config.Metrics
// block. Binaries call Install once at startup and the returned stop at exit.
package backend

import (
	"fmt"
	"strings"

	"csvviz/internal/config"
	"csvviz/internal/logging"
	"csvviz/internal/metrics"
	"csvviz/internal/metrics/datadog"
	"csvviz/internal/metrics/prompush"
)

// Names accepted by Install.
const (
	None        = "none"
	Pushgateway = "pushgateway"
	Datadog     = "datadog"
)

// Install builds the backend named by m.Backend and makes it current. The
// returned stop flushes pending metrics, releases the backend and restores the
// no-op backend; it is never nil. An empty name or "none" leaves metrics off.
func Install(job string, m config.Metrics) (stop func(), err error) {
	var b metrics.Backend
	closeFn := func() error { return nil }

	switch name := strings.ToLower(strings.TrimSpace(m.Backend)); name {
	case "", None:
		logging.Logger().Debug("metrics: disabled")
		return func() {}, nil

	case Pushgateway:
		url := m.Options.String("url", "")
		pb, err := prompush.NewBackend(m.Options.String("job", job), url)
		if err != nil {
			return func() {}, err
		}
		logging.Logger().Info("metrics: pushgateway", "url", url, "job", m.Options.String("job", job))
		b = pb

	case Datadog:
		db, err := datadog.NewBackend(datadog.Config{
			Addr:       m.Options.String("addr", ""),
			Namespace:  m.Options.String("namespace", ""),
			GlobalTags: append([]string{"job:" + job}, m.Options.StringSlice("tags")...),
		})
		if err != nil {
			return func() {}, err
		}
		logging.Logger().Info("metrics: datadog", "addr", m.Options.String("addr", ""))
		b, closeFn = db, db.Close

	default:
		return func() {}, fmt.Errorf("metrics: unknown backend %q (use none, pushgateway or datadog)", m.Backend)
	}

	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			logging.Logger().Warn("metrics: flush", "err", err)
		}
		if err := closeFn(); err != nil {
			logging.Logger().Warn("metrics: close", "err", err)
		}
		metrics.Reset()
	}, nil
}
