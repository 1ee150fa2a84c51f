package export

import (
	"bytes"
	"context"
	"image/png"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csvviz/internal/logging"
)

const barSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="40" height="20" viewBox="0 0 40 20">` +
	`<rect x="5" y="5" width="10" height="15" fill="#336699"/></svg>`

func TestRaster_BareSVG(t *testing.T) {
	t.Parallel()

	a, ok := Raster(context.Background(), []byte(barSVG), "Sales by Region")
	require.True(t, ok)
	assert.Equal(t, "sales-by-region.png", a.Filename)
	assert.Equal(t, PNGContentType, a.ContentType)

	img, err := png.Decode(bytes.NewReader(a.Data))
	require.NoError(t, err)
	assert.Equal(t, 80, img.Bounds().Dx())
	assert.Equal(t, 40, img.Bounds().Dy())

	// Background corner is white, the bar is not.
	r, g, b, _ := img.At(1, 1).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0xffff, 0xffff}, [3]uint32{r, g, b})
	r, g, b, _ = img.At(20, 30).RGBA()
	assert.NotEqual(t, [3]uint32{0xffff, 0xffff, 0xffff}, [3]uint32{r, g, b})
}

func TestRaster_PrefersWrapperSVG(t *testing.T) {
	t.Parallel()

	scene := `<div><svg width="10" height="10"></svg>` +
		`<div class="recharts-wrapper"><svg width="30" height="15"><g></g></svg></div></div>`
	a, ok := Raster(context.Background(), []byte(scene), "")
	require.True(t, ok)
	assert.Equal(t, "chart.png", a.Filename)

	img, err := png.Decode(bytes.NewReader(a.Data))
	require.NoError(t, err)
	assert.Equal(t, 60, img.Bounds().Dx())
	assert.Equal(t, 30, img.Bounds().Dy())
}

func TestRaster_ViewBoxOnly(t *testing.T) {
	t.Parallel()

	scene := `<svg viewBox="0 0 25 10" width="100%"><rect width="5" height="5"/></svg>`
	a, ok := Raster(context.Background(), []byte(scene), "x")
	require.True(t, ok)
	img, err := png.Decode(bytes.NewReader(a.Data))
	require.NoError(t, err)
	assert.Equal(t, 50, img.Bounds().Dx())
	assert.Equal(t, 20, img.Bounds().Dy())
}

func TestRaster_Unavailable(t *testing.T) {
	old := logging.Logger()
	t.Cleanup(func() { logging.SetLogger(old) })
	h := logging.NewBufferedHandler(slog.LevelWarn)
	logging.SetLogger(slog.New(h))

	cases := map[string]string{
		"no svg":     `<div class="recharts-wrapper"><p>loading</p></div>`,
		"no size":    `<svg><rect/></svg>`,
		"too big":    `<svg width="9000" height="10"><rect/></svg>`,
		"empty":      ``,
		"no content": `<svg width="10" height="10"></svg>`,
		"text only":  `<div class="recharts-wrapper"><svg width="10" height="10"> </svg></div>`,
	}
	for name, scene := range cases {
		a, ok := Raster(context.Background(), []byte(scene), "t")
		assert.False(t, ok, name)
		assert.Empty(t, a.Data, name)
	}
	assert.True(t, h.Contains("WARN export: raster skipped"))
	assert.True(t, h.Contains(ErrRasterUnavailable.Error()))
}

func TestRaster_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := Raster(ctx, []byte(barSVG), "t")
	assert.False(t, ok)
}

func TestPrepare_LeavesSourceUntouched(t *testing.T) {
	t.Parallel()

	svg := chartSVG(mustParse(t, `<svg width="4" height="2"><g></g></svg>`))
	require.NotNil(t, svg)
	out := prepare(svg, 4, 2)

	assert.Equal(t, "g", svg.FirstChild.Data)
	assert.Equal(t, "rect", out.FirstChild.Data)
	assert.Equal(t, "white", attr(out.FirstChild, "fill"))
	assert.Equal(t, "0 0 4 2", attr(out, "viewBox"))
	assert.Empty(t, attr(svg, "viewBox"))
}

func TestSVG(t *testing.T) {
	t.Parallel()

	a := SVG([]byte(barSVG), "Tržby / 2024")
	assert.Equal(t, "trzby-2024.svg", a.Filename)
	assert.Equal(t, SVGContentType, a.ContentType)
	assert.Equal(t, Checksum([]byte(barSVG)), a.Checksum)
	assert.Equal(t, "chart.svg", SVG(nil, "  ").Filename)
}
