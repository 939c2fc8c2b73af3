package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/storymap/pkg/mapview"
)

// renderGrid draws a rasterized map. Runs of cells with the same style are
// rendered together; plain output carries no escape codes.
func renderGrid(g *mapview.Grid, t Theme, plain bool) string {
	if g == nil || g.Width == 0 || g.Height == 0 {
		return ""
	}
	if plain {
		return g.String()
	}

	var sb strings.Builder
	for y, row := range g.Cells {
		if y > 0 {
			sb.WriteByte('\n')
		}
		var run strings.Builder
		var runKey string
		var runStyle *lipgloss.Style
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if runStyle == nil {
				sb.WriteString(run.String())
			} else {
				sb.WriteString(runStyle.Render(run.String()))
			}
			run.Reset()
		}
		for _, c := range row {
			st, k := cellStyle(c, t)
			if k != runKey {
				flush()
				runKey, runStyle = k, st
			}
			run.WriteRune(c.Rune)
		}
		flush()
	}
	return sb.String()
}

// cellStyle returns the style for c and a key identifying it.
func cellStyle(c mapview.Cell, t Theme) (*lipgloss.Style, string) {
	var st lipgloss.Style
	switch c.Kind {
	case mapview.CellGraticule:
		st = t.Graticule
		return &st, "g"
	case mapview.CellLine:
		st = t.LineStyle(c.Color)
		return &st, "l" + c.Color
	case mapview.CellMarker:
		st = t.Marker
		return &st, "m"
	case mapview.CellCenter:
		st = t.Center
		return &st, "c"
	default:
		return nil, ""
	}
}
