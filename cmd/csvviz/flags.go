package main

import (
	"flag"
	"fmt"
	"strings"

	"csvviz/internal/config"
	"csvviz/internal/datasource/s3ds"
	"csvviz/internal/filter"
)

// jobFlags are flags that override fields of the job file. Only flags given
// on the command line are applied.
type jobFlags struct {
	delimiter string
	encoding  string
	kind      string
	x         string
	y         string
	title     string
	out       string
	svg       string
	metrics   string
	logFormat string
	noTable   bool
}

func (f *jobFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.delimiter, "delimiter", "", "field separator: comma, semicolon, tab, pipe or auto")
	fs.StringVar(&f.encoding, "encoding", "", "input charset label, e.g. windows-1250 (default utf-8)")
	fs.StringVar(&f.kind, "kind", "", "chart kind: pie, bar, line or scatter (default bar)")
	fs.StringVar(&f.x, "x", "", "x (category) field; default is the first column")
	fs.StringVar(&f.y, "y", "", "y (value) field; default is the first numeric column")
	fs.StringVar(&f.title, "title", "", "chart title, also names the PNG")
	fs.StringVar(&f.out, "out", "", "output directory or s3://bucket/prefix")
	fs.StringVar(&f.svg, "svg", "", "chart scene (SVG or HTML) to rasterize into the output")
	fs.StringVar(&f.metrics, "metrics-backend", "", "metrics backend: none, pushgateway or datadog")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: text or json")
	fs.BoolVar(&f.noTable, "no-table", false, "do not write the filtered CSV")
}

// apply copies every flag that was set onto j.
func (f jobFlags) apply(fs *flag.FlagSet, j *config.Job) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "delimiter":
			j.Parser.Delimiter = f.delimiter
		case "encoding":
			j.Parser.Encoding = f.encoding
		case "kind":
			j.Chart.Kind = f.kind
		case "x":
			j.Chart.XField = f.x
		case "y":
			j.Chart.YField = f.y
		case "title":
			j.Chart.Title = f.title
		case "out":
			j.Export.Dir = f.out
		case "svg":
			j.Export.Scene = f.svg
		case "metrics-backend":
			j.Metrics.Backend = f.metrics
		case "log-format":
			j.Log.Format = f.logFormat
		case "no-table":
			j.Export.SkipTable = f.noTable
		}
	})
}

// filterFlags collects repeated -filter values of the form
// field:operator[:operand]. The operand may itself contain colons.
type filterFlags []config.Filter

func (f *filterFlags) String() string {
	parts := make([]string, len(*f))
	for i, x := range *f {
		parts[i] = x.Field + ":" + x.Operator + ":" + x.Operand
	}
	return strings.Join(parts, ", ")
}

func (f *filterFlags) Set(v string) error {
	parts := strings.SplitN(v, ":", 3)
	if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" {
		return fmt.Errorf("want field:operator[:operand], got %q", v)
	}
	op, err := filter.ParseOperator(parts[1])
	if err != nil {
		return err
	}
	flt := config.Filter{Field: strings.TrimSpace(parts[0]), Operator: string(op)}
	if len(parts) == 3 {
		flt.Operand = parts[2]
	}
	*f = append(*f, flt)
	return nil
}

// sourceFromURI describes uri as a job source block so it goes through the
// same validation and resolution as a job file.
func sourceFromURI(uri string) (config.Source, error) {
	uri = strings.TrimSpace(uri)
	lower := strings.ToLower(uri)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return config.Source{Kind: "http", HTTP: config.SourceHTTP{URL: uri}}, nil
	case strings.HasPrefix(lower, "s3://"):
		bucket, key, err := s3ds.ParseURI(uri)
		if err != nil {
			return config.Source{}, err
		}
		return config.Source{Kind: "s3", S3: config.SourceS3{Bucket: bucket, Key: key}}, nil
	case strings.Contains(uri, "://") && !strings.HasPrefix(lower, "file://"):
		return config.Source{}, fmt.Errorf("unsupported source %q", uri)
	}
	return config.Source{Kind: "file", File: config.SourceFile{Path: strings.TrimPrefix(uri, "file://")}}, nil
}
