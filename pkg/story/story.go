// Package story defines the storymap document: an ordered list of slides, each
// pairing narrative text and media with an optional map location and
// background.
//
// A document looks like:
//
//	{"storymap": {"title": "...", "slides": [
//	    {"text": {"headline": "...", "text": "<p>...</p>"},
//	     "media": {"url": "...", "caption": "..."},
//	     "location": {"lat": 48.85, "lon": 2.35, "zoom": 9, "line": true, "icon": "pin.png"},
//	     "background": {"color": "#222", "url": "bg.jpg", "opacity": 40}}
//	]}}
//
// A Story is immutable once parsed.
package story

import (
	"bytes"

	"github.com/vanderheijden86/storymap/pkg/geo"
)

// Story is a parsed storymap document.
type Story struct {
	Title  string  `json:"title,omitempty"`
	Slides []Slide `json:"slides"`
}

// Slide is one narrative unit.
type Slide struct {
	Text       Text        `json:"text"`
	Media      *Media      `json:"media,omitempty"`
	Location   *Location   `json:"location,omitempty"`
	Background *Background `json:"background,omitempty"`
}

// Text is the headline and body markup of a slide.
type Text struct {
	Headline string `json:"headline"`
	Body     string `json:"text"`
}

// Media references an image or video shown with the slide.
type Media struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
	Credit  string `json:"credit,omitempty"`
}

// Location places a slide on the map.
type Location struct {
	Lat  Number `json:"lat"`
	Lon  Number `json:"lon"`
	Zoom Number `json:"zoom"`
	// Line requests a connecting line from this slide to the next one.
	Line Flag   `json:"line,omitempty"`
	Icon string `json:"icon,omitempty"`
}

// Background styles the story panel while the slide is shown.
type Background struct {
	Color string `json:"color,omitempty"`
	URL   string `json:"url,omitempty"`
	// Opacity is a percentage (0-100) applied to the background image.
	Opacity Number `json:"opacity"`
}

// Flag is true only for a literal JSON true. Any other value, including the
// string "true", reads as false instead of failing the whole document.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(b []byte) error {
	*f = Flag(bytes.Equal(bytes.TrimSpace(b), []byte("true")))
	return nil
}

// Valid reports whether l has both latitude and longitude as finite numbers.
// A nil location is not valid.
func (l *Location) Valid() bool {
	if l == nil {
		return false
	}
	_, okLat := l.Lat.Float()
	_, okLon := l.Lon.Float()
	return okLat && okLon
}

// LngLat returns the parsed coordinate. Callers check Valid first.
func (l *Location) LngLat() geo.LngLat {
	lat, _ := l.Lat.Float()
	lon, _ := l.Lon.Float()
	return geo.LngLat{Lon: lon, Lat: lat}
}

// ZoomOr returns the slide zoom, or fallback when the zoom is absent,
// non-numeric or zero.
func (l *Location) ZoomOr(fallback float64) float64 {
	if l == nil {
		return fallback
	}
	z, ok := l.Zoom.Float()
	if !ok || z == 0 {
		return fallback
	}
	return z
}

// HasLine reports whether the slide asks for a line to its successor.
func (l *Location) HasLine() bool {
	return l != nil && bool(l.Line)
}

// OpacityOr returns the background image opacity in [0, 1] terms: the
// percentage divided by 100, or 1 when unset or not numeric.
func (b *Background) OpacityOr() float64 {
	if b == nil {
		return 1
	}
	pct, ok := b.Opacity.Float()
	if !ok {
		return 1
	}
	return pct / 100
}

// Located reports whether the slide has a valid location.
func (s Slide) Located() bool { return s.Location.Valid() }

// Icon returns the marker icon reference for a located slide, or "".
func (s Slide) Icon() string {
	if !s.Location.Valid() {
		return ""
	}
	return s.Location.Icon
}

// MediaURL returns the media URL or "".
func (s Slide) MediaURL() string {
	if s.Media == nil {
		return ""
	}
	return s.Media.URL
}

// Len returns the number of slides.
func (s *Story) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Slides)
}

// FirstLocated returns the index of the first slide with a valid location.
func (s *Story) FirstLocated() (int, bool) {
	if s == nil {
		return -1, false
	}
	for i := range s.Slides {
		if s.Slides[i].Located() {
			return i, true
		}
	}
	return -1, false
}

// Bounds returns the bounding box of all valid slide locations.
func (s *Story) Bounds() geo.Bounds {
	var b geo.Bounds
	if s == nil {
		return b
	}
	for i := range s.Slides {
		if s.Slides[i].Located() {
			b.Extend(s.Slides[i].Location.LngLat())
		}
	}
	return b
}
