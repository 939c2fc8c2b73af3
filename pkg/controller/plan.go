package controller

import (
	"fmt"

	"github.com/vanderheijden86/storymap/pkg/geo"
	"github.com/vanderheijden86/storymap/pkg/mapview"
	"github.com/vanderheijden86/storymap/pkg/story"
	"github.com/vanderheijden86/storymap/pkg/tiles"
)

// LineRef records a connecting line and the slide it leads to.
type LineRef struct {
	ID       string     `json:"id"`
	SourceID string     `json:"sourceId"`
	Target   int        `json:"target"`
	From     geo.LngLat `json:"from"`
	To       geo.LngLat `json:"to"`
}

// LineID and LineSourceID name the layer and source of the line leaving
// slide i.
func LineID(i int) string       { return fmt.Sprintf("line-%d", i) }
func LineSourceID(i int) string { return fmt.Sprintf("line-source-%d", i) }

// PlanLines lists the connecting lines for s: one per adjacent pair whose
// first slide asks for a line and where both ends have valid locations.
// Pairs that do not qualify are skipped.
func PlanLines(s *story.Story) []LineRef {
	var refs []LineRef
	for i := 0; i+1 < s.Len(); i++ {
		cur, next := s.Slides[i].Location, s.Slides[i+1].Location
		if !cur.HasLine() || !cur.Valid() || !next.Valid() {
			continue
		}
		refs = append(refs, LineRef{
			ID:       LineID(i),
			SourceID: LineSourceID(i),
			Target:   i + 1,
			From:     cur.LngLat(),
			To:       next.LngLat(),
		})
	}
	return refs
}

// MarkerSpec describes the marker of one slide.
type MarkerSpec struct {
	Slide int
	At    geo.LngLat
	Icon  string
}

// PlanMarkers lists one marker per slide with a valid location and an icon.
func PlanMarkers(s *story.Story) []MarkerSpec {
	var specs []MarkerSpec
	for i := 0; i < s.Len(); i++ {
		if spec, ok := markerFor(s, i); ok {
			specs = append(specs, spec)
		}
	}
	return specs
}

func markerFor(s *story.Story, i int) (MarkerSpec, bool) {
	sl := s.Slides[i]
	icon := sl.Icon()
	if icon == "" {
		return MarkerSpec{}, false
	}
	return MarkerSpec{Slide: i, At: sl.Location.LngLat(), Icon: icon}, true
}

// Marker returns the map marker for spec.
func (m MarkerSpec) Marker() mapview.Marker {
	return mapview.Marker{
		Slide:  m.Slide,
		At:     m.At,
		Icon:   m.Icon,
		Class:  "marker",
		Width:  MarkerSize,
		Height: MarkerSize,
	}
}

// GlobalView is the camera used when no slide has a valid location.
var GlobalView = mapview.Camera{Center: geo.LngLat{Lon: 0, Lat: 0}, Zoom: 1}

// InitialOptions returns the construction options of the map for s.
//
// Archive-backed profiles start at the archive's center at two levels below
// its maximum zoom, within the archive zoom range and without world copies;
// the camera then flies to the first located slide once the controller
// starts. Other profiles start at the first located slide, at its zoom or the
// profile default, or at GlobalView when no slide is located.
func InitialOptions(s *story.Story, p Profile, h *tiles.Header, archive string) mapview.Options {
	if p.TileArchive && h != nil {
		return mapview.Options{
			Style: mapview.Style{Raster: &mapview.RasterSource{
				SourceID: "storymap",
				URL:      tiles.SourceURL(archive),
				LayerID:  "pmtiles-layer",
			}},
			Center:            h.Center,
			Zoom:              float64(h.MaxZoom) - 2,
			MinZoom:           0,
			MaxZoom:           float64(h.MaxZoom),
			RenderWorldCopies: false,
		}
	}

	style := mapview.Style{URL: p.StyleURL}
	if style.URL == "" {
		style.URL = DefaultStyleURL
	}
	opts := mapview.Options{
		Style:             style,
		Center:            GlobalView.Center,
		Zoom:              GlobalView.Zoom,
		MaxZoom:           mapview.DefaultMaxZoom,
		RenderWorldCopies: true,
	}
	if i, ok := s.FirstLocated(); ok {
		loc := s.Slides[i].Location
		opts.Center = loc.LngLat()
		fallback := p.DefaultZoom
		if fallback == 0 {
			fallback = GlobalView.Zoom
		}
		opts.Zoom = loc.ZoomOr(fallback)
	}
	return opts
}
