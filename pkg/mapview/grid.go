package mapview

import (
	"math"
	"strings"

	"github.com/vanderheijden86/storymap/pkg/geo"
)

// GridTileSize is the cell width of one zoom-0 world tile in a Grid. Terminal
// cells are about twice as tall as wide, so rows use half this size.
const GridTileSize = 32.0

// CellKind says what a grid cell shows.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellGraticule
	CellLine
	CellMarker
	CellCenter
)

// Cell is one character of a rasterized map.
type Cell struct {
	Rune  rune
	Kind  CellKind
	Color string // line color or marker icon for styling, "" otherwise
}

// Grid is a character-cell rendering of a Canvas.
type Grid struct {
	Width  int
	Height int
	Cells  [][]Cell
}

// Glyphs used by Render.
const (
	GlyphGraticule = '·'
	GlyphLine      = '•'
	GlyphMarker    = '◆'
	GlyphCenter    = '+'
)

// Render rasterizes the canvas camera, line layers and markers into a
// width×height grid. Later items draw over earlier ones: graticule, lines,
// center cross, markers.
func (c *Canvas) Render(width, height int) *Grid {
	g := newGrid(width, height)
	if width <= 0 || height <= 0 {
		return g
	}
	vp := Viewport{
		Width:    float64(width),
		Height:   float64(height) * 2,
		Camera:   c.camera,
		TileSize: GridTileSize,
	}
	g.drawGraticule(vp)
	for _, l := range c.layers {
		src, ok := c.sources[l.Source]
		if !ok {
			continue
		}
		seq := src.Geometry.Coordinates()
		for i := 0; i+1 < seq.Length(); i++ {
			a, b := seq.GetXY(i), seq.GetXY(i+1)
			g.drawLine(vp,
				geo.LngLat{Lon: a.X, Lat: a.Y},
				geo.LngLat{Lon: b.X, Lat: b.Y},
				l.Paint)
		}
	}
	g.set(width/2, height/2, Cell{Rune: GlyphCenter, Kind: CellCenter})
	for _, m := range c.markers {
		x, y := vp.Project(m.At)
		g.set(int(math.Floor(x)), int(math.Floor(y/2)), Cell{Rune: GlyphMarker, Kind: CellMarker, Color: m.Icon})
	}
	return g
}

func newGrid(width, height int) *Grid {
	width, height = max(width, 0), max(height, 0)
	cells := make([][]Cell, height)
	for y := range cells {
		row := make([]Cell, width)
		for x := range row {
			row[x] = Cell{Rune: ' '}
		}
		cells[y] = row
	}
	return &Grid{Width: width, Height: height, Cells: cells}
}

func (g *Grid) set(x, y int, c Cell) {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return
	}
	g.Cells[y][x] = c
}

// At returns the cell at x, y or an empty cell when out of range.
func (g *Grid) At(x, y int) Cell {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return Cell{Rune: ' '}
	}
	return g.Cells[y][x]
}

// Count returns how many cells have kind k.
func (g *Grid) Count(k CellKind) int {
	n := 0
	for _, row := range g.Cells {
		for _, c := range row {
			if c.Kind == k {
				n++
			}
		}
	}
	return n
}

// String renders the grid as plain text, one line per row.
func (g *Grid) String() string {
	var sb strings.Builder
	for y, row := range g.Cells {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for _, c := range row {
			sb.WriteRune(c.Rune)
		}
	}
	return sb.String()
}

func (g *Grid) drawGraticule(vp Viewport) {
	for lon := -180.0; lon < 180; lon += 30 {
		x, _ := vp.Project(geo.LngLat{Lon: lon})
		col := int(math.Floor(x))
		if col < 0 || col >= g.Width {
			continue
		}
		for row := 0; row < g.Height; row++ {
			g.set(col, row, Cell{Rune: GlyphGraticule, Kind: CellGraticule})
		}
	}
	for lat := -60.0; lat <= 60; lat += 30 {
		_, y := vp.Project(geo.LngLat{Lat: lat})
		row := int(math.Floor(y / 2))
		if row < 0 || row >= g.Height {
			continue
		}
		for col := 0; col < g.Width; col++ {
			g.set(col, row, Cell{Rune: GlyphGraticule, Kind: CellGraticule})
		}
	}
}

// drawLine walks the segment with Bresenham's algorithm, honoring the dash
// pattern as on/off cell counts.
func (g *Grid) drawLine(vp Viewport, a, b geo.LngLat, paint LinePaint) {
	ax, ay := vp.Project(a)
	bx, by := vp.Project(b)
	x0, y0 := int(math.Floor(ax)), int(math.Floor(ay/2))
	x1, y1 := int(math.Floor(bx)), int(math.Floor(by/2))

	// keep runaway segments from looping over millions of off-screen cells
	const limit = 1 << 14
	if abs(x1-x0) > limit || abs(y1-y0) > limit {
		return
	}

	dash := dashCells(paint.Dash)
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := sign(x1-x0), sign(y1-y0)
	e := dx + dy
	for step := 0; ; step++ {
		if dash(step) {
			g.set(x0, y0, Cell{Rune: GlyphLine, Kind: CellLine, Color: paint.Color})
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func dashCells(pattern []float64) func(step int) bool {
	var on, period int
	if len(pattern) >= 2 {
		on = max(int(math.Round(pattern[0])), 1)
		period = on + max(int(math.Round(pattern[1])), 0)
	}
	if period == 0 || period == on {
		return func(int) bool { return true }
	}
	return func(step int) bool { return step%period < on }
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
