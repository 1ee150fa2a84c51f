package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColor(t *testing.T) {
	t.Parallel()

	o := Options{Colors: map[string]string{"north": "#ff0000"}}
	assert.Equal(t, "#ff0000", Color(o, "north", 0, 4))
	assert.Equal(t, "hsl(90, 70%, 50%)", Color(o, "south", 1, 4))
	assert.Equal(t, "hsl(0, 70%, 50%)", Color(Options{}, "x", 3, 0))

	pts := []Point{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	assert.Equal(t, []string{"hsl(0, 70%, 50%)", "hsl(120, 70%, 50%)", "hsl(240, 70%, 50%)"}, Colors(Options{}, pts))
}

func TestFormatTick(t *testing.T) {
	t.Parallel()

	cases := map[float64]string{
		2_500_000_000: "2.5B",
		1_000_000:     "1.0M",
		12_345:        "12.3K",
		999:           "999.0",
		0.25:          "0.3",
		-5000:         "-5000.0",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatTick(in), "%v", in)
	}
}

func TestFormatLegendValue(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2500.0M", FormatLegendValue(2_500_000_000))
	assert.Equal(t, "1.5K", FormatLegendValue(1500))
	assert.Equal(t, "42.0", FormatLegendValue(42))
}

func TestTickInterval(t *testing.T) {
	t.Parallel()

	for n, want := range map[int]int{0: 0, 5: 0, 6: 1, 10: 1, 11: 2, 20: 2, 21: 2, 35: 3, 50: 5} {
		assert.Equal(t, want, TickInterval(n), "n=%d", n)
	}
}

func TestTruncateLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "exactly twenty chars", TruncateLabel("exactly twenty chars"))
	assert.Equal(t, "a much longer cat...", TruncateLabel("a much longer category name"))
	assert.Equal(t, "ééééééééééééééééé...", TruncateLabel("éééééééééééééééééééééé"))
}

func TestLabelAngle(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, LabelAngle(nil))
	assert.Equal(t, 0, LabelAngle([]Point{{Name: "short"}}))
	assert.Equal(t, 30, LabelAngle([]Point{{Name: "a"}, {Name: "fifteen chars!!"}}))
	assert.Equal(t, -20, LabelAngle([]Point{{Name: "sixteen chars!!!"}}))
}

func TestPage(t *testing.T) {
	t.Parallel()

	items := make([]int, 23)
	for i := range items {
		items[i] = i
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, Page(items, 0, LegendPageSize))
	assert.Equal(t, []int{20, 21, 22}, Page(items, 2, LegendPageSize))
	assert.Nil(t, Page(items, 3, LegendPageSize))
	assert.Equal(t, items, Page(items, 0, 0))
	assert.Equal(t, 3, Pages(len(items), LegendPageSize))
	assert.Equal(t, 1, Pages(0, TablePageSize))
}
