// Package controller drives a storymap: it keeps the current slide, renders
// it onto a Page and a Map, builds the connecting lines and markers once the
// map has loaded, and sequences animated transitions between slides.
//
// A Controller owns all navigation state. Its methods are safe for concurrent
// use; Page and Map are only touched while the controller lock is held, so
// drivers that read them concurrently go through Sync.
package controller

import (
	"slices"
	"sync"

	"github.com/vanderheijden86/storymap/pkg/debug"
	"github.com/vanderheijden86/storymap/pkg/geo"
	"github.com/vanderheijden86/storymap/pkg/mapview"
	"github.com/vanderheijden86/storymap/pkg/media"
	"github.com/vanderheijden86/storymap/pkg/metrics"
	"github.com/vanderheijden86/storymap/pkg/page"
	"github.com/vanderheijden86/storymap/pkg/story"
)

// Page is the story panel surface the controller renders into.
type Page interface {
	SetHeadline(text string)
	SetBody(markup string)
	ClearMedia()
	AppendMedia(el media.Element)
	AddClass(name string)
	RemoveClass(name string)
	ApplyBackground(bg *story.Background)
	SetButton(b page.Button, s page.ButtonState)
}

// Map is the map surface the controller drives.
type Map interface {
	Zoom() float64
	FlyTo(f mapview.FlyTo)
	AddLineSource(id string, from, to geo.LngLat) error
	AddLineLayer(l mapview.LineLayer) error
	SetLineColor(layerID, color string) error
	AddMarker(m mapview.Marker) *mapview.Marker
	AddAttribution(a mapview.Attribution)
	RemoveAttributions() int
	CollapseAttributions()
	OnLoad(fn func())
}

// Direction is a navigation direction.
type Direction int

const (
	None Direction = iota
	Prev
	Next
)

func (d Direction) String() string {
	switch d {
	case Prev:
		return "prev"
	case Next:
		return "next"
	default:
		return "none"
	}
}

func (d Direction) delta() int {
	switch d {
	case Prev:
		return -1
	case Next:
		return 1
	}
	return 0
}

// Controller is one slideshow session.
type Controller struct {
	mu sync.Mutex

	story   *story.Story
	m       Map
	p       Page
	profile Profile

	index      int
	animating  bool
	transition *Transition

	lines   []LineRef
	markers map[int]*mapview.Marker

	started bool
	built   bool
	closed  bool
	renders int
}

// Option configures a Controller.
type Option func(*Controller)

// WithStartIndex starts the slideshow at slide i, clamped to the story.
func WithStartIndex(i int) Option {
	return func(c *Controller) {
		c.index = clamp(i, 0, c.story.Len()-1)
	}
}

// New creates a controller for a loaded story. The story must have at least
// one slide.
func New(s *story.Story, m Map, p Page, profile Profile, opts ...Option) (*Controller, error) {
	if s.Len() == 0 {
		return nil, story.ErrNoSlides
	}
	c := &Controller{
		story:   s,
		m:       m,
		p:       p,
		profile: profile,
		markers: make(map[int]*mapview.Marker),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Start wires the controller to its map and renders the current slide: it
// installs the attribution control, registers line and marker construction
// for map load, moves archive-backed maps to the first located slide and
// performs the first render. Later calls do nothing.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.closed {
		return
	}
	c.started = true

	if c.profile.DedupAttribution {
		if n := c.m.RemoveAttributions(); n > 0 {
			debug.Log("controller: removed %d attribution controls", n)
		}
		c.m.AddAttribution(mapview.Attribution{Compact: true})
		c.m.CollapseAttributions()
	} else {
		c.m.AddAttribution(mapview.Attribution{Compact: true})
	}

	if c.profile.FlyToFirst {
		if i, ok := c.story.FirstLocated(); ok {
			loc := c.story.Slides[i].Location
			c.m.FlyTo(mapview.FlyTo{
				Center:    loc.LngLat(),
				Zoom:      loc.ZoomOr(c.m.Zoom()),
				Essential: true,
			})
		}
	}

	c.m.OnLoad(c.onMapLoad)
	c.render()
}

// onMapLoad builds lines and markers. It runs with the controller lock held:
// either inside Start, or from a driver that signals load through Sync.
func (c *Controller) onMapLoad() {
	if c.built || c.closed {
		return
	}
	c.built = true
	c.buildLines()
	if !c.profile.LazyMarkers {
		c.buildMarkers()
	}
	c.recolor()
}

func (c *Controller) buildLines() {
	defer metrics.Timer(metrics.LineBuild)()
	for _, ref := range PlanLines(c.story) {
		if err := c.m.AddLineSource(ref.SourceID, ref.From, ref.To); err != nil {
			debug.Log("controller: skipping %s: %v", ref.ID, err)
			continue
		}
		layer := mapview.LineLayer{
			ID:     ref.ID,
			Source: ref.SourceID,
			Layout: mapview.LineLayout{Join: "round", Cap: "round"},
			Paint: mapview.LinePaint{
				Color: c.profile.neutral(),
				Width: c.profile.lineWidth(),
				Dash:  slices.Clone(c.profile.LineDash),
			},
		}
		if err := c.m.AddLineLayer(layer); err != nil {
			debug.Log("controller: skipping %s: %v", ref.ID, err)
			continue
		}
		c.lines = append(c.lines, ref)
	}
	debug.Log("controller: built %d lines", len(c.lines))
}

func (c *Controller) buildMarkers() {
	for _, spec := range PlanMarkers(c.story) {
		c.addMarker(spec)
	}
}

func (c *Controller) addMarker(spec MarkerSpec) {
	if _, ok := c.markers[spec.Slide]; ok {
		return
	}
	c.markers[spec.Slide] = c.m.AddMarker(spec.Marker())
}

// render updates page and map for the current slide: text, media, camera,
// lazy marker, background, line colors, then buttons.
func (c *Controller) render() {
	defer metrics.Timer(metrics.Render)()
	sl := c.story.Slides[c.index]

	c.p.SetHeadline(sl.Text.Headline)
	c.p.SetBody(sl.Text.Body)

	c.p.ClearMedia()
	if el := c.mediaFor(sl); el.Kind != media.None {
		c.p.AppendMedia(el)
	}

	if sl.Located() {
		c.m.FlyTo(mapview.FlyTo{
			Center:    sl.Location.LngLat(),
			Zoom:      sl.Location.ZoomOr(c.m.Zoom()),
			Essential: true,
		})
	}

	if c.profile.LazyMarkers {
		if spec, ok := markerFor(c.story, c.index); ok {
			c.addMarker(spec)
		}
	}

	if c.profile.Background {
		c.p.ApplyBackground(sl.Background)
	}

	c.recolor()
	c.updateButtons()
	c.renders++
}

func (c *Controller) mediaFor(sl story.Slide) media.Element {
	if sl.Media == nil {
		return media.Element{Kind: media.None}
	}
	el := media.Classify(sl.Media.URL, sl.Media.Caption)
	if el.Kind == media.Video {
		el.Height = c.profile.VideoHeight
		el.FrameBorder = c.profile.VideoFrameBorder
	}
	return el
}

func (c *Controller) recolor() {
	for _, l := range c.lines {
		color := c.profile.neutral()
		if l.Target == c.index {
			color = c.profile.highlight()
		}
		if err := c.m.SetLineColor(l.ID, color); err != nil {
			debug.Log("controller: recolor %s: %v", l.ID, err)
		}
	}
}

func (c *Controller) updateButtons() {
	c.p.SetButton(page.Prev, buttonState(c.index == 0))
	c.p.SetButton(page.Next, buttonState(c.index == c.story.Len()-1))
}

func buttonState(disabled bool) page.ButtonState {
	if disabled {
		return page.Disabled
	}
	return page.Enabled
}

// Render re-renders the current slide synchronously. It is dropped while a
// transition runs.
func (c *Controller) Render() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.animating {
		return false
	}
	c.render()
	return true
}

// Navigate moves one slide in direction d. It reports false, without
// rendering, when the move would leave the story, a transition is running,
// or the controller is closed. Animated profiles return the started
// Transition, which the caller drives with Run or Advance; other profiles
// render synchronously and return nil.
func (c *Controller) Navigate(d Direction) (*Transition, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.animating || d == None {
		return nil, false
	}
	target := c.index + d.delta()
	if target < 0 || target >= c.story.Len() {
		return nil, false
	}
	c.index = target
	debug.Log("controller: %s to slide %d", d, target)
	if !c.profile.Animate {
		c.render()
		return nil, true
	}
	return c.begin(d), true
}

// Click presses a navigation button. Disabled buttons do nothing.
func (c *Controller) Click(b page.Button) (*Transition, bool) {
	if b == page.Prev {
		return c.Navigate(Prev)
	}
	return c.Navigate(Next)
}

// HandleKey maps "left" and "right" to navigation for profiles with arrow
// keys. Other keys, and arrows on other profiles, report false.
func (c *Controller) HandleKey(key string) (*Transition, bool) {
	if !c.profile.ArrowKeys {
		return nil, false
	}
	switch key {
	case "left":
		return c.Navigate(Prev)
	case "right":
		return c.Navigate(Next)
	}
	return nil, false
}

// Sync runs fn with the controller lock held. Drivers use it to signal map
// load or to read Page and Map state consistently.
func (c *Controller) Sync(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
}

// Close tears the controller down. A running transition is completed
// synchronously so page and index agree. Navigation afterwards is dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.transition != nil {
		c.transition.cancelLocked()
	}
	c.closed = true
}

// Index returns the current slide index.
func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Len returns the number of slides.
func (c *Controller) Len() int { return c.story.Len() }

// Story returns the story being shown.
func (c *Controller) Story() *story.Story { return c.story }

// Profile returns the controller profile.
func (c *Controller) Profile() Profile { return c.profile }

// Animating reports whether a transition is in progress.
func (c *Controller) Animating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.animating
}

// Transition returns the running transition, or nil.
func (c *Controller) Transition() *Transition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transition
}

// Lines returns the built connecting lines in construction order.
func (c *Controller) Lines() []LineRef {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.lines)
}

// Markers returns the slide indexes that have a marker, ascending.
func (c *Controller) Markers() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := make([]int, 0, len(c.markers))
	for i := range c.markers {
		idx = append(idx, i)
	}
	slices.Sort(idx)
	return idx
}

// Built reports whether lines and markers were constructed.
func (c *Controller) Built() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.built
}

// Renders counts completed slide renders.
func (c *Controller) Renders() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renders
}

// State is a point-in-time view of navigation.
type State struct {
	Index     int    `json:"index"`
	Len       int    `json:"len"`
	Animating bool   `json:"animating"`
	Phase     string `json:"phase,omitempty"`
	Profile   string `json:"profile"`
}

// State returns the navigation state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := State{Index: c.index, Len: c.story.Len(), Animating: c.animating, Profile: c.profile.Name}
	if c.transition != nil {
		st.Phase = c.transition.phase.String()
	}
	return st
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
