package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/net/html"

	"csvviz/internal/logging"
)

// Media types of chart exports.
const (
	PNGContentType = "image/png"
	SVGContentType = "image/svg+xml"
)

// RasterScale is the pixel multiplier applied to the scene's own size.
const RasterScale = 2

// maxRasterSide bounds either dimension of the output image in pixels.
const maxRasterSide = 8192

// ErrRasterUnavailable describes why a scene could not be rasterized. Raster
// logs it and reports ok=false instead of returning it.
var ErrRasterUnavailable = errors.New("chart image unavailable")

// Raster renders the vector chart in scene to a PNG on a white background at
// twice its size. scene may be a bare <svg> document or an HTML fragment; the
// svg inside a "recharts-wrapper" element is preferred, else the first one.
// When no image can be produced a warning is logged and ok is false.
func Raster(ctx context.Context, scene []byte, title string) (a Artifact, ok bool) {
	data, err := rasterize(ctx, scene)
	if err != nil {
		logging.Logger().Warn("export: raster skipped", "title", title, "err", err)
		return Artifact{}, false
	}
	return newArtifact(chartName(title)+".png", PNGContentType, data), true
}

// SVG wraps scene as a download named after title. Callers offer it when
// Raster reports ok=false.
func SVG(scene []byte, title string) Artifact {
	return newArtifact(chartName(title)+".svg", SVGContentType, scene)
}

func chartName(title string) string {
	if name := Slug(title); name != "" {
		return name
	}
	return "chart"
}

func rasterize(ctx context.Context, scene []byte) (out []byte, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: renderer panic: %v", ErrRasterUnavailable, r)
		}
	}()

	doc, err := html.Parse(bytes.NewReader(scene))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRasterUnavailable, err)
	}
	svg := chartSVG(doc)
	if svg == nil {
		return nil, fmt.Errorf("%w: no svg element", ErrRasterUnavailable)
	}
	if !hasElementChild(svg) {
		return nil, fmt.Errorf("%w: svg has no content", ErrRasterUnavailable)
	}

	w, h := svgSize(svg)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: svg has no size", ErrRasterUnavailable)
	}
	pw, ph := int(w*RasterScale), int(h*RasterScale)
	if pw > maxRasterSide || ph > maxRasterSide {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrRasterUnavailable, pw, ph, maxRasterSide)
	}

	prepared := prepare(svg, w, h)
	var src bytes.Buffer
	if err := html.Render(&src, prepared); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRasterUnavailable, err)
	}

	icon, err := oksvg.ReadIconStream(&src, oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRasterUnavailable, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, pw, ph))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	icon.SetTarget(0, 0, float64(pw), float64(ph))
	scanner := rasterx.NewScannerGV(pw, ph, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(pw, ph, scanner), 1)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRasterUnavailable, err)
	}
	return buf.Bytes(), nil
}

func hasElementChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return true
		}
	}
	return false
}

// chartSVG finds the svg inside a recharts-wrapper element, else the first
// svg in the document.
func chartSVG(doc *html.Node) *html.Node {
	if wrap := find(doc, func(n *html.Node) bool {
		return hasClass(n, "recharts-wrapper")
	}); wrap != nil {
		if svg := find(wrap, isSVG); svg != nil {
			return svg
		}
	}
	return find(doc, isSVG)
}

func isSVG(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == "svg"
}

func hasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if m := find(c, match); m != nil {
			return m
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// svgSize reads width and height, falling back to the viewBox for missing or
// relative dimensions.
func svgSize(svg *html.Node) (w, h float64) {
	w, okW := length(attr(svg, "width"))
	h, okH := length(attr(svg, "height"))
	if okW && okH {
		return w, h
	}
	vb := strings.FieldsFunc(attr(svg, "viewBox"), func(r rune) bool {
		return r == ' ' || r == ','
	})
	if len(vb) == 4 {
		vw, err1 := strconv.ParseFloat(vb[2], 64)
		vh, err2 := strconv.ParseFloat(vb[3], 64)
		if err1 == nil && err2 == nil {
			if !okW {
				w = vw
			}
			if !okH {
				h = vh
			}
		}
	}
	return w, h
}

func length(s string) (float64, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "px")
	if s == "" || strings.HasSuffix(s, "%") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return f, true
}

// prepare deep-copies svg, pins its size and viewBox and paints a white
// rectangle behind everything else. The source tree is left untouched.
func prepare(svg *html.Node, w, h float64) *html.Node {
	c := clone(svg)
	ws := strconv.FormatFloat(w, 'f', -1, 64)
	hs := strconv.FormatFloat(h, 'f', -1, 64)
	setAttr(c, "width", ws)
	setAttr(c, "height", hs)
	if attr(c, "viewBox") == "" {
		setAttr(c, "viewBox", "0 0 "+ws+" "+hs)
	}
	if attr(c, "xmlns") == "" {
		setAttr(c, "xmlns", "http://www.w3.org/2000/svg")
	}

	bg := &html.Node{
		Type:      html.ElementNode,
		Data:      "rect",
		Namespace: c.Namespace,
		Attr: []html.Attribute{
			{Key: "x", Val: "0"},
			{Key: "y", Val: "0"},
			{Key: "width", Val: ws},
			{Key: "height", Val: hs},
			{Key: "fill", Val: "white"},
		},
	}
	if c.FirstChild != nil {
		c.InsertBefore(bg, c.FirstChild)
	} else {
		c.AppendChild(bg)
	}
	return c
}

func clone(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.AppendChild(clone(ch))
	}
	return c
}
