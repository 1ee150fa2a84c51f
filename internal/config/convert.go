package config

import (
	"fmt"

	"csvviz/internal/aggregate"
	"csvviz/internal/filter"
	"csvviz/internal/ingest"
)

// IngestOptions converts the parser block.
func (p Parser) IngestOptions() (ingest.Options, error) {
	d, err := ingest.ParseDelimiter(p.Delimiter)
	if err != nil {
		return ingest.Options{}, err
	}
	if _, err := ingest.LookupEncoding(p.Encoding); err != nil {
		return ingest.Options{}, err
	}
	return ingest.Options{Delimiter: d, Encoding: p.Encoding, MaxBytes: p.MaxBytes}, nil
}

// Predicates converts the filter list. IDs are left empty.
func (j Job) Predicates() ([]filter.Predicate, error) {
	out := make([]filter.Predicate, 0, len(j.Filters))
	for i, f := range j.Filters {
		op, err := filter.ParseOperator(f.Operator)
		if err != nil {
			return nil, fmt.Errorf("config: filters[%d]: %w", i, err)
		}
		if f.Field == "" {
			return nil, fmt.Errorf("config: filters[%d]: %w", i, filter.ErrNoField)
		}
		out = append(out, filter.Predicate{Field: f.Field, Operator: op, Operand: f.Operand})
	}
	return out, nil
}

// Options converts the chart block. An empty kind means bar.
func (c Chart) Options() (aggregate.Options, error) {
	kind := aggregate.Bar
	if c.Kind != "" {
		k, err := aggregate.ParseKind(c.Kind)
		if err != nil {
			return aggregate.Options{}, err
		}
		kind = k
	}
	return aggregate.Options{
		Kind:   kind,
		XField: c.XField,
		YField: c.YField,
		Title:  c.Title,
		Colors: c.Colors,
	}, nil
}
