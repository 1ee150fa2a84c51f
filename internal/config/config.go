// Package config defines the JSON job model for csvviz runs.
//
// A job names one data source, how to parse it, the filters and chart to
// compute and where the artifacts go. Jobs are loaded from disk with Load,
// overlaid with environment variables by ApplyEnv and linted by ValidateJob.
//
// Example (trimmed):
//
//	{
//	  "job":     "sales-weekly",
//	  "source":  { "kind": "file", "file": { "path": "sales.csv" } },
//	  "parser":  { "delimiter": "auto", "encoding": "windows-1252" },
//	  "filters": [ { "field": "region", "operator": "equal", "operand": "north" } ],
//	  "chart":   { "kind": "bar", "x_field": "region", "y_field": "amount" },
//	  "export":  { "dir": "out" },
//	  "metrics": { "backend": "pushgateway", "options": { "url": "http://pgw:9091" } }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// DefaultJob labels metrics when a job file does not name itself.
const DefaultJob = "csvviz"

// Job is the top-level object decoded from a job file.
type Job struct {
	// Job labels metrics and log lines for this run.
	Job     string   `json:"job"`
	Source  Source   `json:"source"`
	Parser  Parser   `json:"parser"`
	Filters []Filter `json:"filters"`
	Chart   Chart    `json:"chart"`
	Export  Export   `json:"export"`
	Metrics Metrics  `json:"metrics"`
	Log     Log      `json:"log"`
}

// Source identifies where the delimited input comes from.
type Source struct {
	// Kind selects the source implementation: file, http, s3 or sql.
	Kind string `json:"kind"`

	File SourceFile `json:"file"`
	HTTP SourceHTTP `json:"http"`
	S3   SourceS3   `json:"s3"`
	SQL  SourceSQL  `json:"sql"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	Path string `json:"path"`
}

// SourceHTTP holds configuration for the "http" source kind.
type SourceHTTP struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	// Insecure skips TLS verification.
	Insecure       bool `json:"insecure,omitempty"`
	TimeoutSeconds int  `json:"timeout_seconds,omitempty"`
	MaxRetries     int  `json:"max_retries,omitempty"`
}

// SourceS3 holds configuration for the "s3" source kind. Credentials are
// normally supplied through S3_ACCESS_KEY and S3_SECRET_KEY.
type SourceS3 struct {
	Endpoint  string `json:"endpoint"`
	Region    string `json:"region,omitempty"`
	Bucket    string `json:"bucket"`
	Key       string `json:"key"`
	AccessKey string `json:"access_key,omitempty"`
	SecretKey string `json:"secret_key,omitempty"`
	// Insecure talks plain HTTP to the endpoint.
	Insecure bool `json:"insecure,omitempty"`
}

// SourceSQL holds configuration for the "sql" source kind.
type SourceSQL struct {
	// Driver is a registered backend: postgres, sqlite, mssql or mysql.
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
	Query  string `json:"query"`
	Args   []any  `json:"args,omitempty"`
	// Name is the display file name of the result set.
	Name string `json:"name,omitempty"`
}

// Parser controls ingestion.
type Parser struct {
	// Delimiter is a separator or its name (comma, semicolon, tab, pipe,
	// auto). Empty means comma.
	Delimiter string `json:"delimiter"`
	// Encoding is an IANA/WHATWG charset label. Empty means UTF-8.
	Encoding string `json:"encoding"`
	// MaxBytes caps the input size; zero means the ingest default.
	MaxBytes int64 `json:"max_bytes"`
}

// Filter is one predicate. Operator accepts canonical names, symbols and
// the UI labels ("is equal to").
type Filter struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Operand  string `json:"operand"`
}

// Chart selects the series to compute. Empty axes fall back to the defaults
// chosen at ingestion.
type Chart struct {
	Kind   string            `json:"kind"`
	XField string            `json:"x_field"`
	YField string            `json:"y_field"`
	Title  string            `json:"title"`
	Colors map[string]string `json:"colors,omitempty"`
}

// Export says where artifacts are written.
type Export struct {
	// Dir is a local directory or an s3://bucket/prefix URI. Empty disables
	// file output.
	Dir string `json:"dir"`
	// Scene is a path to an SVG or HTML chart scene to rasterize.
	Scene string `json:"scene,omitempty"`
	// SkipTable disables the filtered CSV.
	SkipTable bool `json:"skip_table,omitempty"`
}

// Metrics selects a metrics backend. Options is backend specific:
// pushgateway reads "url" and "job"; datadog reads "addr", "namespace" and
// "tags".
type Metrics struct {
	Backend string  `json:"backend"`
	Options Options `json:"options"`
}

// Log configures the process logger.
type Log struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Load reads and decodes a job file. Unknown fields are rejected so typos
// surface early.
func Load(path string) (Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return Job{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	var j Job
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&j); err != nil {
		return Job{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	j.Defaults()
	return j, nil
}

// Defaults fills unset fields that have a natural default.
func (j *Job) Defaults() {
	if strings.TrimSpace(j.Job) == "" {
		j.Job = DefaultJob
	}
	if j.Source.Kind == "" {
		j.Source.Kind = inferKind(j.Source)
	}
	if j.Metrics.Options == nil {
		j.Metrics.Options = Options{}
	}
}

func inferKind(s Source) string {
	switch {
	case s.File.Path != "":
		return "file"
	case s.HTTP.URL != "":
		return "http"
	case s.S3.Bucket != "":
		return "s3"
	case s.SQL.Query != "":
		return "sql"
	}
	return ""
}

// Options is a small helper to fetch typed values from arbitrary JSON maps.
// It performs only minimal type coercion and returns the provided default
// when a key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers are decoded as
// float64 by encoding/json, so this method accepts float64 and casts to int.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// StringSlice returns a []string for key when the value is an array of
// strings. Non-string elements are skipped. Returns nil when the key is
// missing or the value is not an array.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// UnmarshalJSON decodes a missing or null object to a non-nil, empty map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
