package export

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/storymap/pkg/geo"
	"github.com/vanderheijden86/storymap/pkg/mapview"
)

var (
	colorBackdrop  = color.RGBA{0x1e, 0x24, 0x2e, 0xff}
	colorGraticule = color.RGBA{0x33, 0x3b, 0x48, 0xff}
	colorHeaderBG  = color.RGBA{0x2a, 0x31, 0x3d, 0xf0}
	colorText      = color.RGBA{0xec, 0xef, 0xf4, 0xff}
	colorSubtle    = color.RGBA{0xa0, 0xa8, 0xb8, 0xff}
	colorStop      = color.RGBA{0xd8, 0xde, 0xe9, 0xff}
	colorMarker    = color.RGBA{0xeb, 0xcb, 0x8b, 0xff}
	colorCurrent   = color.RGBA{0xbf, 0x61, 0x6a, 0xff}
)

const headerHeight = 84

// snapshotLine is a projected line layer.
type snapshotLine struct {
	X1, Y1, X2, Y2 float64
	Color          string
	Width          float64
	Dash           []float64
}

// snapshotStop is a projected located slide.
type snapshotStop struct {
	Index   int
	X, Y    float64
	Marker  bool
	Current bool
}

type snapshotLayout struct {
	Width, Height int
	Graticule     [][4]float64
	Lines         []snapshotLine
	Stops         []snapshotStop
	Title         string
	Headline      string
	Position      string
	Highlight     string
	Neutral       string
}

func buildSnapshot(sc *Scene) snapshotLayout {
	vp := sc.Viewport()
	l := snapshotLayout{
		Width:     sc.Width,
		Height:    sc.Height,
		Title:     sc.Title(),
		Headline:  sc.Doc.Headline(),
		Position:  fmt.Sprintf("slide %d of %d", sc.Slide+1, sc.Story.Len()),
		Highlight: sc.Profile.HighlightColor,
		Neutral:   sc.Profile.NeutralColor,
	}
	l.Graticule = graticule(vp)

	for _, layer := range sc.Canvas.Layers() {
		src, ok := sc.Canvas.Source(layer.Source)
		if !ok {
			continue
		}
		seq := src.Geometry.Coordinates()
		if seq.Length() < 2 {
			continue
		}
		a, b := seq.GetXY(0), seq.GetXY(seq.Length()-1)
		x1, y1 := vp.Project(geo.LngLat{Lon: a.X, Lat: a.Y})
		x2, y2 := vp.Project(geo.LngLat{Lon: b.X, Lat: b.Y})
		l.Lines = append(l.Lines, snapshotLine{
			X1: x1, Y1: y1, X2: x2, Y2: y2,
			Color: layer.Paint.Color,
			Width: layer.Paint.Width,
			Dash:  layer.Paint.Dash,
		})
	}

	markers := make(map[int]bool)
	for _, m := range sc.Canvas.Markers() {
		markers[m.Slide] = true
	}
	for i, sl := range sc.Story.Slides {
		if !sl.Located() {
			continue
		}
		x, y := vp.Project(sl.Location.LngLat())
		l.Stops = append(l.Stops, snapshotStop{
			Index:   i,
			X:       x,
			Y:       y,
			Marker:  markers[i],
			Current: i == sc.Slide,
		})
	}
	return l
}

// graticule returns meridian and parallel segments spaced for the zoom.
func graticule(vp mapview.Viewport) [][4]float64 {
	step := 30.0
	switch z := vp.Camera.Zoom; {
	case z >= 6:
		step = 1
	case z >= 4:
		step = 5
	case z >= 2:
		step = 10
	}
	var segs [][4]float64
	for lon := -180.0; lon < 180; lon += step {
		x1, y1 := vp.Project(geo.LngLat{Lon: lon, Lat: geo.MaxMercatorLat})
		x2, y2 := vp.Project(geo.LngLat{Lon: lon, Lat: -geo.MaxMercatorLat})
		if x1 >= 0 && x1 < vp.Width {
			segs = append(segs, [4]float64{x1, math.Max(y1, 0), x2, math.Min(y2, vp.Height)})
		}
	}
	for lat := -80.0; lat <= 80; lat += step {
		_, y := vp.Project(geo.LngLat{Lon: vp.Camera.Center.Lon, Lat: lat})
		if y >= 0 && y < vp.Height {
			segs = append(segs, [4]float64{0, y, vp.Width, y})
		}
	}
	return segs
}

// WritePNG renders the scene as a PNG image.
func WritePNG(w io.Writer, sc *Scene) error {
	l := buildSnapshot(sc)
	dc := gg.NewContext(l.Width, l.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorGraticule)
	dc.SetLineWidth(1)
	for _, s := range l.Graticule {
		dc.DrawLine(s[0], s[1], s[2], s[3])
		dc.Stroke()
	}

	for _, ln := range l.Lines {
		dc.SetHexColor(ln.Color)
		dc.SetLineWidth(ln.Width)
		dc.SetDash(scaledDash(ln.Dash, ln.Width)...)
		dc.DrawLine(ln.X1, ln.Y1, ln.X2, ln.Y2)
		dc.Stroke()
	}
	dc.SetDash()

	dc.SetFontFace(basicfont.Face7x13)
	for _, s := range l.Stops {
		drawStop(dc, s)
	}

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(l.Width)-32, headerHeight-16, 10)
	dc.Fill()
	dc.SetColor(colorText)
	dc.DrawStringAnchored(truncate(l.Title, 80), 32, 38, 0, 0.5)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(truncate(l.Headline, 80), 32, 56, 0, 0.5)
	dc.DrawStringAnchored(l.Position, float64(l.Width)-32, 38, 1, 0.5)
	drawLegend(dc, l)

	return dc.EncodePNG(w)
}

func drawStop(dc *gg.Context, s snapshotStop) {
	r := 4.0
	c := colorStop
	if s.Marker {
		r, c = 8, colorMarker
	}
	if s.Current {
		c = colorCurrent
	}
	dc.SetColor(c)
	dc.DrawCircle(s.X, s.Y, r)
	dc.Fill()
	dc.SetColor(colorText)
	dc.DrawStringAnchored(fmt.Sprint(s.Index+1), s.X+r+4, s.Y, 0, 0.5)
}

func drawLegend(dc *gg.Context, l snapshotLayout) {
	x, y := 32.0, float64(l.Height)-40
	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(x-12, y-16, 260, 32, 8)
	dc.Fill()
	dc.SetHexColor(l.Highlight)
	dc.SetLineWidth(3)
	dc.DrawLine(x, y, x+24, y)
	dc.Stroke()
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored("into this slide", x+30, y, 0, 0.5)
	dc.SetHexColor(l.Neutral)
	dc.DrawLine(x+130, y, x+154, y)
	dc.Stroke()
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored("other legs", x+160, y, 0, 0.5)
}

// WriteSVG renders the scene as an SVG document.
func WriteSVG(w io.Writer, sc *Scene) error {
	l := buildSnapshot(sc)
	canvas := svg.New(w)
	canvas.Start(l.Width, l.Height)
	canvas.Rect(0, 0, l.Width, l.Height, "fill:"+css(colorBackdrop))

	canvas.Gid("graticule")
	for _, s := range l.Graticule {
		canvas.Line(int(s[0]), int(s[1]), int(s[2]), int(s[3]), fmt.Sprintf("stroke:%s;stroke-width:1", css(colorGraticule)))
	}
	canvas.Gend()

	canvas.Gid("lines")
	for _, ln := range l.Lines {
		style := fmt.Sprintf("stroke:%s;stroke-width:%g;stroke-linecap:round", ln.Color, ln.Width)
		if dash := scaledDash(ln.Dash, ln.Width); len(dash) > 0 {
			parts := make([]string, len(dash))
			for i, d := range dash {
				parts[i] = fmt.Sprintf("%g", d)
			}
			style += ";stroke-dasharray:" + strings.Join(parts, ",")
		}
		canvas.Line(int(ln.X1), int(ln.Y1), int(ln.X2), int(ln.Y2), style)
	}
	canvas.Gend()

	canvas.Gid("stops")
	for _, s := range l.Stops {
		r := 4
		c := colorStop
		if s.Marker {
			r, c = 8, colorMarker
		}
		if s.Current {
			c = colorCurrent
		}
		x, y := int(s.X), int(s.Y)
		canvas.Circle(x, y, r, "fill:"+css(c))
		canvas.Text(x+r+4, y+4, fmt.Sprint(s.Index+1), fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorText)))
	}
	canvas.Gend()

	canvas.Roundrect(16, 16, l.Width-32, headerHeight-16, 10, 10, "fill:"+css(colorHeaderBG))
	canvas.Text(32, 42, truncate(l.Title, 80), fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	canvas.Text(32, 62, truncate(l.Headline, 80), fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))
	canvas.Text(l.Width-32, 42, l.Position, fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;text-anchor:end", css(colorSubtle)))

	x, y := 32, l.Height-40
	canvas.Roundrect(x-12, y-16, 260, 32, 8, 8, "fill:"+css(colorHeaderBG))
	canvas.Line(x, y, x+24, y, fmt.Sprintf("stroke:%s;stroke-width:3", l.Highlight))
	canvas.Text(x+30, y+4, "into this slide", fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
	canvas.Line(x+130, y, x+154, y, fmt.Sprintf("stroke:%s;stroke-width:3", l.Neutral))
	canvas.Text(x+160, y+4, "other legs", fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))

	canvas.End()
	return nil
}

// scaledDash converts a line-width relative dash pattern to pixels.
func scaledDash(pattern []float64, width float64) []float64 {
	if len(pattern) == 0 {
		return nil
	}
	out := make([]float64, len(pattern))
	for i, d := range pattern {
		out[i] = d * width
	}
	return out
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
