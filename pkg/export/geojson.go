package export

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/peterstace/simplefeatures/geom"

	"github.com/vanderheijden86/storymap/pkg/mapview"
)

// WriteGeoJSON writes the scene's lines and markers, followed by one point
// per located slide, as a FeatureCollection.
func WriteGeoJSON(w io.Writer, sc *Scene) error {
	fc, err := sc.Canvas.FeatureCollection()
	if err != nil {
		return err
	}
	for i, sl := range sc.Story.Slides {
		if !sl.Located() {
			continue
		}
		pt, err := mapview.NewPoint(sl.Location.LngLat())
		if err != nil {
			return fmt.Errorf("slide %d: %w", i, err)
		}
		fc = append(fc, geom.GeoJSONFeature{
			Geometry: pt,
			Properties: map[string]interface{}{
				"kind":     "slide",
				"slide":    i,
				"headline": sl.Text.Headline,
				"zoom":     sl.Location.ZoomOr(0),
				"current":  i == sc.Slide,
			},
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(fc)
}
