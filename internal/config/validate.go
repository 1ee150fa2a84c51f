package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"csvviz/internal/aggregate"
	"csvviz/internal/filter"
	"csvviz/internal/ingest"
	"csvviz/internal/logging"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "source.sql.query",
// "filters[1].operator"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// KnownSQLDrivers lists the SQL backends shipped with csvviz.
var KnownSQLDrivers = []string{"mssql", "mysql", "postgres", "postgresql", "sqlite", "sqlserver"}

// ValidateJob performs static validation of a Job. It does not mutate the
// job; callers decide whether warnings are fatal.
func ValidateJob(j Job) []Issue {
	var issues []Issue

	if strings.TrimSpace(j.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "job",
			Message:  "job is empty; metrics will be labelled " + DefaultJob,
		})
	}
	issues = append(issues, validateSource(j.Source)...)
	issues = append(issues, validateParser(j.Parser)...)
	issues = append(issues, validateFilters(j.Filters)...)
	issues = append(issues, validateChart(j.Chart)...)
	issues = append(issues, validateMetrics(j.Metrics)...)
	issues = append(issues, validateLog(j.Log)...)
	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue
	req := func(path, val, msg string) {
		if strings.TrimSpace(val) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: path, Message: msg})
		}
	}

	switch s.Kind {
	case "":
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  "source.kind must not be empty",
		})
	case "file":
		req("source.file.path", s.File.Path, "file source requires a non-empty path")
	case "http":
		req("source.http.url", s.HTTP.URL, "http source requires a url")
		if s.HTTP.URL != "" {
			u, err := url.Parse(s.HTTP.URL)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     "source.http.url",
					Message:  fmt.Sprintf("%q is not an absolute http(s) URL", s.HTTP.URL),
				})
			}
		}
		if s.HTTP.TimeoutSeconds < 0 || s.HTTP.MaxRetries < 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.http",
				Message:  "timeout_seconds and max_retries must not be negative",
			})
		}
		if s.HTTP.Insecure {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "source.http.insecure",
				Message:  "TLS verification is disabled",
			})
		}
	case "s3":
		req("source.s3.endpoint", s.S3.Endpoint, "s3 source requires an endpoint (or S3_ENDPOINT)")
		req("source.s3.bucket", s.S3.Bucket, "s3 source requires a bucket")
		req("source.s3.key", s.S3.Key, "s3 source requires an object key")
	case "sql":
		req("source.sql.driver", s.SQL.Driver, "sql source requires a driver")
		req("source.sql.dsn", s.SQL.DSN, "sql source requires a dsn (or CSVVIZ_SQL_DSN)")
		req("source.sql.query", s.SQL.Query, "sql source requires a query")
		if d := strings.ToLower(s.SQL.Driver); d != "" && !slices.Contains(KnownSQLDrivers, d) {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "source.sql.driver",
				Message:  fmt.Sprintf("unknown sql driver %q; ensure a matching backend is registered", s.SQL.Driver),
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  fmt.Sprintf("unknown source kind %q (use file, http, s3 or sql)", s.Kind),
		})
	}
	return issues
}

func validateParser(p Parser) []Issue {
	var issues []Issue
	if _, err := ingest.ParseDelimiter(p.Delimiter); err != nil {
		issues = append(issues, Issue{Severity: SeverityError, Path: "parser.delimiter", Message: err.Error()})
	}
	if _, err := ingest.LookupEncoding(p.Encoding); err != nil {
		issues = append(issues, Issue{Severity: SeverityError, Path: "parser.encoding", Message: err.Error()})
	}
	if p.MaxBytes < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.max_bytes",
			Message:  "max_bytes must not be negative",
		})
	}
	return issues
}

func validateFilters(fs []Filter) []Issue {
	var issues []Issue
	for i, f := range fs {
		if strings.TrimSpace(f.Field) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("filters[%d].field", i),
				Message:  "filter field must not be empty",
			})
		}
		op, err := filter.ParseOperator(f.Operator)
		if err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("filters[%d].operator", i),
				Message:  err.Error(),
			})
			continue
		}
		if (op == filter.IsEmpty || op == filter.IsNotEmpty) && f.Operand != "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     fmt.Sprintf("filters[%d].operand", i),
				Message:  fmt.Sprintf("operand is ignored by %s", op),
			})
		}
	}
	return issues
}

func validateChart(c Chart) []Issue {
	var issues []Issue
	if c.Kind != "" {
		if _, err := aggregate.ParseKind(c.Kind); err != nil {
			issues = append(issues, Issue{Severity: SeverityError, Path: "chart.kind", Message: err.Error()})
		}
	}
	if (c.XField == "") != (c.YField == "") {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "chart",
			Message:  "only one axis is set; the other falls back to the data's default",
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	switch strings.ToLower(m.Backend) {
	case "", "none":
	case "pushgateway":
		if m.Options.String("url", "") == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.options.url",
				Message:  "pushgateway backend requires options.url (or PUSHGATEWAY_URL)",
			})
		}
	case "datadog":
		if m.Options.String("addr", "") == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.options.addr",
				Message:  "datadog backend requires options.addr (or DD_AGENT_ADDR)",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q (use none, pushgateway or datadog)", m.Backend),
		})
	}
	return issues
}

func validateLog(l Log) []Issue {
	var issues []Issue
	if _, err := logging.ParseLevel(l.Level); err != nil {
		issues = append(issues, Issue{Severity: SeverityError, Path: "log.level", Message: err.Error()})
	}
	switch strings.ToLower(l.Format) {
	case "", "text", "json":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "log.format",
			Message:  fmt.Sprintf("unknown log format %q (use text or json)", l.Format),
		})
	}
	return issues
}
