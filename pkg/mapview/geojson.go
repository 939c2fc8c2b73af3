package mapview

import (
	"fmt"

	"github.com/peterstace/simplefeatures/geom"

	"github.com/vanderheijden86/storymap/pkg/geo"
)

// NewPoint returns a GeoJSON point geometry at p.
func NewPoint(p geo.LngLat) (geom.Geometry, error) {
	pt, err := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: p.Lon, Y: p.Lat}, Type: geom.DimXY})
	if err != nil {
		return geom.Geometry{}, fmt.Errorf("point %v,%v: %w", p.Lon, p.Lat, err)
	}
	return pt.AsGeometry(), nil
}

// FeatureCollection returns the canvas overlays as GeoJSON: one LineString
// feature per line layer (with its paint) followed by one Point feature per
// marker.
func (c *Canvas) FeatureCollection() (geom.GeoJSONFeatureCollection, error) {
	fc := make(geom.GeoJSONFeatureCollection, 0, len(c.layers)+len(c.markers))
	for _, l := range c.layers {
		src, ok := c.sources[l.Source]
		if !ok {
			continue
		}
		fc = append(fc, geom.GeoJSONFeature{
			ID:       l.ID,
			Geometry: src.Geometry.AsGeometry(),
			Properties: map[string]interface{}{
				"kind":   "line",
				"source": l.Source,
				"color":  l.Paint.Color,
				"width":  l.Paint.Width,
				"dash":   l.Paint.Dash,
			},
		})
	}
	for _, m := range c.markers {
		pt, err := NewPoint(m.At)
		if err != nil {
			return nil, fmt.Errorf("marker %d: %w", m.Slide, err)
		}
		fc = append(fc, geom.GeoJSONFeature{
			Geometry: pt,
			Properties: map[string]interface{}{
				"kind":  "marker",
				"slide": m.Slide,
				"icon":  m.Icon,
			},
		})
	}
	return fc, nil
}
