// Package mapview is the in-process map surface driven by the slideshow
// controller: camera, GeoJSON line sources with their line layers, point
// markers and attribution controls.
//
// A Canvas keeps map state only. Drivers render it: the terminal UI rasterizes
// it into a character grid (Grid), the exporters draw it as SVG or PNG through
// a Viewport, and the HTTP server serializes it.
package mapview

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/peterstace/simplefeatures/geom"

	"github.com/vanderheijden86/storymap/pkg/geo"
)

// DefaultMaxZoom is the zoom ceiling when Options.MaxZoom is unset.
const DefaultMaxZoom = 22.0

// Common errors.
var (
	ErrDuplicateSource = errors.New("source already exists")
	ErrDuplicateLayer  = errors.New("layer already exists")
	ErrUnknownSource   = errors.New("source does not exist")
	ErrUnknownLayer    = errors.New("layer does not exist")
)

// RasterSource is an archive-backed raster style with a single layer.
type RasterSource struct {
	SourceID string `json:"sourceId"`
	URL      string `json:"url"`
	LayerID  string `json:"layerId"`
}

// Style selects the basemap: a style document URL or a raster tile source.
type Style struct {
	URL    string        `json:"url,omitempty"`
	Raster *RasterSource `json:"raster,omitempty"`
}

// Options configure a Canvas at construction.
type Options struct {
	Style             Style      `json:"style"`
	Center            geo.LngLat `json:"center"`
	Zoom              float64    `json:"zoom"`
	MinZoom           float64    `json:"minZoom"`
	MaxZoom           float64    `json:"maxZoom"`
	RenderWorldCopies bool       `json:"renderWorldCopies"`
}

// Camera is the map's view position.
type Camera struct {
	Center geo.LngLat `json:"center"`
	Zoom   float64    `json:"zoom"`
}

// FlyTo requests an animated camera move. Essential moves are animated even
// when the viewer prefers reduced motion.
type FlyTo struct {
	Center    geo.LngLat
	Zoom      float64
	Essential bool
}

// LineSource is a GeoJSON source holding one two-point line.
type LineSource struct {
	ID       string
	Geometry geom.LineString
}

// LineLayout mirrors the line layer layout properties.
type LineLayout struct {
	Join string `json:"lineJoin"`
	Cap  string `json:"lineCap"`
}

// LinePaint mirrors the line layer paint properties.
type LinePaint struct {
	Color string    `json:"lineColor"`
	Width float64   `json:"lineWidth"`
	Dash  []float64 `json:"lineDasharray,omitempty"`
}

// LineLayer renders a LineSource.
type LineLayer struct {
	ID     string     `json:"id"`
	Source string     `json:"source"`
	Layout LineLayout `json:"layout"`
	Paint  LinePaint  `json:"paint"`
}

// Marker is a point marker bound to a custom element.
type Marker struct {
	Slide     int        `json:"slide"`
	At        geo.LngLat `json:"at"`
	Icon      string     `json:"icon"`
	Class     string     `json:"class"`
	Width     int        `json:"width"`
	Height    int        `json:"height"`
	Draggable bool       `json:"draggable"`
}

// Attribution is an attribution control.
type Attribution struct {
	Compact   bool `json:"compact"`
	Collapsed bool `json:"collapsed"`
}

// Canvas is a map instance. It is not safe for concurrent use; the owner
// serializes access.
type Canvas struct {
	opts   Options
	camera Camera
	flight *flight
	now    func() time.Time

	sources      map[string]LineSource
	layers       []*LineLayer
	layerIndex   map[string]*LineLayer
	markers      []*Marker
	attributions []Attribution

	loaded    bool
	onLoad    []func()
	flightDur time.Duration
}

// CanvasOption configures a Canvas.
type CanvasOption func(*Canvas)

// WithClock sets the time source used for camera flights.
func WithClock(now func() time.Time) CanvasOption {
	return func(c *Canvas) {
		c.now = now
	}
}

// WithFlightDuration sets how long FlyTo animations last. Zero jumps.
func WithFlightDuration(d time.Duration) CanvasOption {
	return func(c *Canvas) {
		c.flightDur = d
	}
}

// New creates a Canvas positioned at opts.Center and opts.Zoom.
func New(opts Options, options ...CanvasOption) *Canvas {
	if opts.MaxZoom <= 0 {
		opts.MaxZoom = DefaultMaxZoom
	}
	c := &Canvas{
		opts:       opts,
		now:        time.Now,
		sources:    make(map[string]LineSource),
		layerIndex: make(map[string]*LineLayer),
		flightDur:  DefaultFlightDuration,
	}
	for _, o := range options {
		o(c)
	}
	c.camera = Camera{Center: opts.Center, Zoom: c.clampZoom(opts.Zoom)}
	return c
}

// Options returns the construction options.
func (c *Canvas) Options() Options { return c.opts }

// Camera returns the current camera, mid-flight if a flight is running.
func (c *Canvas) Camera() Camera { return c.camera }

// Zoom returns the current zoom.
func (c *Canvas) Zoom() float64 { return c.camera.Zoom }

// Target returns where the camera is heading; the current camera when idle.
func (c *Canvas) Target() Camera {
	if c.flight != nil {
		return c.flight.to
	}
	return c.camera
}

// Jump moves the camera without animation and cancels any flight.
func (c *Canvas) Jump(cam Camera) {
	c.flight = nil
	c.camera = Camera{Center: cam.Center, Zoom: c.clampZoom(cam.Zoom)}
}

func (c *Canvas) clampZoom(z float64) float64 {
	if math.IsNaN(z) {
		return c.opts.MinZoom
	}
	return math.Max(c.opts.MinZoom, math.Min(c.opts.MaxZoom, z))
}

// AddLineSource registers a GeoJSON line between from and to.
func (c *Canvas) AddLineSource(id string, from, to geo.LngLat) error {
	if _, ok := c.sources[id]; ok {
		return fmt.Errorf("add source %q: %w", id, ErrDuplicateSource)
	}
	seq := geom.NewSequence([]float64{from.Lon, from.Lat, to.Lon, to.Lat}, geom.DimXY)
	// Consecutive slides may share a spot; the line still exists.
	ls, err := geom.NewLineString(seq, geom.DisableAllValidations)
	if err != nil {
		return fmt.Errorf("add source %q: %w", id, err)
	}
	c.sources[id] = LineSource{ID: id, Geometry: ls}
	return nil
}

// Source returns a line source by id.
func (c *Canvas) Source(id string) (LineSource, bool) {
	s, ok := c.sources[id]
	return s, ok
}

// AddLineLayer adds a layer drawing an existing source.
func (c *Canvas) AddLineLayer(l LineLayer) error {
	if _, ok := c.layerIndex[l.ID]; ok {
		return fmt.Errorf("add layer %q: %w", l.ID, ErrDuplicateLayer)
	}
	if _, ok := c.sources[l.Source]; !ok {
		return fmt.Errorf("add layer %q: %w: %q", l.ID, ErrUnknownSource, l.Source)
	}
	layer := l
	layer.Paint.Dash = append([]float64(nil), l.Paint.Dash...)
	c.layers = append(c.layers, &layer)
	c.layerIndex[l.ID] = &layer
	return nil
}

// SetLineColor sets the line-color paint property of a layer.
func (c *Canvas) SetLineColor(layerID, color string) error {
	l, ok := c.layerIndex[layerID]
	if !ok {
		return fmt.Errorf("set line color on %q: %w", layerID, ErrUnknownLayer)
	}
	l.Paint.Color = color
	return nil
}

// Layer returns a copy of a layer by id.
func (c *Canvas) Layer(id string) (LineLayer, bool) {
	l, ok := c.layerIndex[id]
	if !ok {
		return LineLayer{}, false
	}
	return *l, true
}

// Layers returns copies of all layers in insertion order.
func (c *Canvas) Layers() []LineLayer {
	out := make([]LineLayer, 0, len(c.layers))
	for _, l := range c.layers {
		out = append(out, *l)
	}
	return out
}

// AddMarker places a marker and returns its handle.
func (c *Canvas) AddMarker(m Marker) *Marker {
	mk := m
	c.markers = append(c.markers, &mk)
	return &mk
}

// Markers returns copies of all markers in insertion order.
func (c *Canvas) Markers() []Marker {
	out := make([]Marker, 0, len(c.markers))
	for _, m := range c.markers {
		out = append(out, *m)
	}
	return out
}

// AddAttribution adds an attribution control.
func (c *Canvas) AddAttribution(a Attribution) {
	c.attributions = append(c.attributions, a)
}

// RemoveAttributions removes every attribution control and returns how many
// were removed.
func (c *Canvas) RemoveAttributions() int {
	n := len(c.attributions)
	c.attributions = nil
	return n
}

// CollapseAttributions folds every compact attribution control.
func (c *Canvas) CollapseAttributions() {
	for i := range c.attributions {
		if c.attributions[i].Compact {
			c.attributions[i].Collapsed = true
		}
	}
}

// Attributions returns the attribution controls.
func (c *Canvas) Attributions() []Attribution {
	return append([]Attribution(nil), c.attributions...)
}

// OnLoad registers fn to run once the map has loaded. If the map already
// loaded, fn runs immediately.
func (c *Canvas) OnLoad(fn func()) {
	if c.loaded {
		fn()
		return
	}
	c.onLoad = append(c.onLoad, fn)
}

// Load signals that style and tiles are ready. Listeners run once; later
// calls do nothing.
func (c *Canvas) Load() {
	if c.loaded {
		return
	}
	c.loaded = true
	listeners := c.onLoad
	c.onLoad = nil
	for _, fn := range listeners {
		fn()
	}
}

// Loaded reports whether Load was called.
func (c *Canvas) Loaded() bool { return c.loaded }
