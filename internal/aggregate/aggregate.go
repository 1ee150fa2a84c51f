// Package aggregate derives chart series from a filtered table.
//
// Categorical kinds (bar, line, pie) group rows by the string form of the x
// field and sum the y field; scatter keeps one point per numeric (x, y) pair.
// At most MaxDisplayedItems categories or points are produced.
package aggregate

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"csvviz/internal/coerce"
	"csvviz/internal/records"
)

// MaxDisplayedItems caps the number of categories or scatter points.
const MaxDisplayedItems = 50

// Kind is a chart type.
type Kind string

// Supported chart kinds.
const (
	Pie     Kind = "Pie"
	Bar     Kind = "Bar"
	Line    Kind = "Line"
	Scatter Kind = "Scatter"
)

// Kinds lists the chart kinds in display order.
var Kinds = []Kind{Pie, Bar, Line, Scatter}

// ParseKind matches s against the known kinds, ignoring case.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(strings.TrimSpace(s), string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("aggregate: unknown chart kind %q (want Pie, Bar, Line or Scatter)", s)
}

// UnmarshalJSON accepts any casing of a known kind.
func (k *Kind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Options selects what to chart. Colors maps a category name to a CSS color
// and overrides the default hue ramp for that category.
type Options struct {
	Kind   Kind              `json:"kind"`
	XField string            `json:"x_field"`
	YField string            `json:"y_field"`
	Title  string            `json:"title,omitempty"`
	Colors map[string]string `json:"colors,omitempty"`
}

// Point is one element of a series. Scatter points also carry the coerced
// coordinates and the cell values they came from.
type Point struct {
	Name      string   `json:"name"`
	Value     float64  `json:"value"`
	X         *float64 `json:"x,omitempty"`
	Y         *float64 `json:"y,omitempty"`
	OriginalX any      `json:"original_x,omitempty"`
	OriginalY any      `json:"original_y,omitempty"`
}

// MarshalJSON writes non-finite numbers as null since JSON has no encoding
// for them.
func (p Point) MarshalJSON() ([]byte, error) {
	type wire struct {
		Name      string   `json:"name"`
		Value     *float64 `json:"value"`
		X         *float64 `json:"x,omitempty"`
		Y         *float64 `json:"y,omitempty"`
		OriginalX any      `json:"original_x,omitempty"`
		OriginalY any      `json:"original_y,omitempty"`
	}
	return json.Marshal(wire{
		Name:      p.Name,
		Value:     finite(p.Value),
		X:         p.X,
		Y:         p.Y,
		OriginalX: p.OriginalX,
		OriginalY: p.OriginalY,
	})
}

func finite(f float64) *float64 {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil
	}
	return &f
}

// Aggregate builds the series for o over t. It is a pure function of its
// inputs. A missing axis or an empty table yields an empty series.
func Aggregate(t records.Table, o Options) []Point {
	if o.XField == "" || o.YField == "" || t.Empty() {
		return []Point{}
	}
	if o.Kind == Scatter {
		return scatter(t, o)
	}
	return categorical(t, o)
}

func scatter(t records.Table, o Options) []Point {
	out := make([]Point, 0, MaxDisplayedItems)
	for _, row := range t.Rows {
		if len(out) == MaxDisplayedItems {
			break
		}
		xv, yv := row[o.XField], row[o.YField]
		if coerce.IsEmpty(xv) || coerce.IsEmpty(yv) {
			continue
		}
		x, okX := coerce.Number(xv)
		y, okY := coerce.Number(yv)
		if !okX || !okY {
			continue
		}
		out = append(out, Point{
			Name:      coerce.String(xv) + "-" + coerce.String(yv),
			Value:     y,
			X:         &x,
			Y:         &y,
			OriginalX: xv,
			OriginalY: yv,
		})
	}
	return out
}

func categorical(t records.Table, o Options) []Point {
	var (
		order []string
		sums  = make(map[string]float64, MaxDisplayedItems)
	)
	for _, row := range t.Rows {
		key := coerce.String(row[o.XField])
		if key == "" {
			continue
		}
		_, admitted := sums[key]
		if !admitted && len(order) >= MaxDisplayedItems {
			continue
		}
		if !admitted {
			order = append(order, key)
		}
		sums[key] += contribution(row[o.YField])
	}

	out := make([]Point, len(order))
	for i, key := range order {
		out[i] = Point{Name: key, Value: coerce.Round2(sums[key])}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out
}

// contribution is what one y cell adds to its group: its numeric value, 0
// when empty, and 1 when it is not a number, so text columns count rows.
func contribution(v any) float64 {
	if coerce.IsEmpty(v) {
		return 0
	}
	if n, ok := coerce.Number(v); ok {
		return n
	}
	return 1
}
