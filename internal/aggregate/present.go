package aggregate

import (
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"
)

// Page sizes used by chart legends and data tables.
const (
	LegendPageSize = 10
	TablePageSize  = 25
)

// Color returns the color for the category name at index of total: the
// caller's override from o.Colors, else an evenly spaced hue.
func Color(o Options, name string, index, total int) string {
	if c, ok := o.Colors[name]; ok && c != "" {
		return c
	}
	hue := 0.0
	if total > 0 {
		hue = float64(index) * 360 / float64(total)
	}
	return fmt.Sprintf("hsl(%s, 70%%, 50%%)", strconv.FormatFloat(hue, 'f', -1, 64))
}

// Colors returns one color per point, in series order.
func Colors(o Options, pts []Point) []string {
	out := make([]string, len(pts))
	for i, p := range pts {
		out[i] = Color(o, p.Name, i, len(pts))
	}
	return out
}

// FormatTick compacts an axis value: 1.5B, 2.0M, 3.4K, or one decimal.
func FormatTick(v float64) string {
	switch {
	case v >= 1e9:
		return fixed1(v/1e9) + "B"
	case v >= 1e6:
		return fixed1(v/1e6) + "M"
	case v >= 1e3:
		return fixed1(v/1e3) + "K"
	}
	return fixed1(v)
}

// FormatLegendValue compacts a legend value: 2.0M, 3.4K, or one decimal.
func FormatLegendValue(v float64) string {
	switch {
	case v >= 1e6:
		return fixed1(v/1e6) + "M"
	case v >= 1e3:
		return fixed1(v/1e3) + "K"
	}
	return fixed1(v)
}

// fixed1 formats v with one decimal, rounding halves away from zero.
func fixed1(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', 1, 64)
}

// TickInterval returns how many category labels to skip between rendered
// ticks for a series of n points.
func TickInterval(n int) int {
	switch {
	case n <= 5:
		return 0
	case n <= 10:
		return 1
	case n <= 20:
		return 2
	}
	return n / 10
}

// TruncateLabel shortens labels longer than 20 characters to 17 plus "...".
func TruncateLabel(s string) string {
	if utf8.RuneCountInString(s) <= 20 {
		return s
	}
	return string([]rune(s)[:17]) + "..."
}

// LabelAngle picks an x-axis label rotation from the longest point name.
func LabelAngle(pts []Point) int {
	longest := 0
	for _, p := range pts {
		if n := utf8.RuneCountInString(p.Name); n > longest {
			longest = n
		}
	}
	switch {
	case longest <= 10:
		return 0
	case longest <= 15:
		return 30
	}
	return -20
}

// Page returns items[page*size : (page+1)*size], clamped.
func Page[T any](items []T, page, size int) []T {
	if size <= 0 {
		return items
	}
	if page < 0 {
		page = 0
	}
	start := page * size
	if start >= len(items) {
		return nil
	}
	end := min(start+size, len(items))
	return items[start:end]
}

// Pages returns the number of pages needed for n items, at least 1.
func Pages(n, size int) int {
	if size <= 0 || n <= 0 {
		return 1
	}
	return (n + size - 1) / size
}
