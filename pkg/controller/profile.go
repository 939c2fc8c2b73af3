package controller

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Transition classes applied to the content wrapper.
const (
	ClassSlideOutLeft  = "slide-out-left"
	ClassSlideOutRight = "slide-out-right"
	ClassSlideInLeft   = "slide-in-left"
	ClassSlideInRight  = "slide-in-right"
)

// Line paint defaults.
const (
	HighlightColor = "#ff0000"
	NeutralColor   = "#888888"
	LineWidth      = 3.0
)

// DefaultTransitionDelay is the pause between transition phases.
const DefaultTransitionDelay = 500 * time.Millisecond

// DefaultStyleURL is the basemap style of profiles without a tile archive.
const DefaultStyleURL = "https://tiles.openfreemap.org/styles/liberty"

// MarkerSize is the icon edge length of a marker element in pixels.
const MarkerSize = 32

// Profile captures the behavior differences between storymap page variants.
type Profile struct {
	Name string

	// Animate runs navigation through an exit/enter transition.
	Animate         bool
	TransitionDelay time.Duration

	// ArrowKeys binds left/right arrows to navigation.
	ArrowKeys bool

	// Background applies slide backgrounds to the story panel.
	Background bool

	// LazyMarkers creates a slide's marker when it is first shown instead
	// of building every marker at map load.
	LazyMarkers bool

	// DedupAttribution removes existing attribution controls before adding
	// the compact one, and starts it collapsed.
	DedupAttribution bool

	// TileArchive takes the basemap and initial camera from a tile archive
	// header. Profiles without one use StyleURL.
	TileArchive bool
	StyleURL    string

	// FlyToFirst moves the camera to the first located slide once the
	// controller starts, for maps constructed at the archive center.
	FlyToFirst bool

	// DefaultZoom is the initial zoom when the first located slide has no
	// zoom. Zero means the map's own initial zoom.
	DefaultZoom float64

	LineDash       []float64
	LineWidth      float64
	HighlightColor string
	NeutralColor   string

	// Video frame attributes some variants set on embedded players.
	VideoHeight      string
	VideoFrameBorder string
}

// Built-in profiles.
var (
	// Journey is the archive-backed variant with backgrounds and arrow keys.
	Journey = Profile{
		Name:             "journey",
		Animate:          true,
		TransitionDelay:  DefaultTransitionDelay,
		ArrowKeys:        true,
		Background:       true,
		DedupAttribution: true,
		TileArchive:      true,
		FlyToFirst:       true,
		LineDash:         []float64{3, 2},
		LineWidth:        LineWidth,
		HighlightColor:   HighlightColor,
		NeutralColor:     NeutralColor,
	}

	// Classic is the animated variant on a hosted style.
	Classic = Profile{
		Name:            "classic",
		Animate:         true,
		TransitionDelay: DefaultTransitionDelay,
		StyleURL:        DefaultStyleURL,
		DefaultZoom:     2,
		LineDash:        []float64{3, 2},
		LineWidth:       LineWidth,
		HighlightColor:  HighlightColor,
		NeutralColor:    NeutralColor,
	}

	// Example is the minimal variant: no animation and lazily created
	// markers.
	Example = Profile{
		Name:             "example",
		LazyMarkers:      true,
		StyleURL:         DefaultStyleURL,
		DefaultZoom:      2,
		LineDash:         []float64{2, 2},
		LineWidth:        LineWidth,
		HighlightColor:   HighlightColor,
		NeutralColor:     NeutralColor,
		VideoHeight:      "315",
		VideoFrameBorder: "0",
	}
)

var profiles = map[string]Profile{
	Journey.Name: Journey,
	Classic.Name: Classic,
	Example.Name: Example,
}

// aliases accepts the names of the pages the profiles came from.
var aliases = map[string]string{
	"aryas":         Journey.Name,
	"aryas-journey": Journey.Name,
	"obama":         Classic.Name,
}

// LookupProfile returns a copy of the named profile. Names are
// case-insensitive.
func LookupProfile(name string) (Profile, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := aliases[key]; ok {
		key = alias
	}
	p, ok := profiles[key]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q (want one of %s)", name, strings.Join(ProfileNames(), ", "))
	}
	p.LineDash = slices.Clone(p.LineDash)
	return p, nil
}

// ProfileNames lists the built-in profile names, sorted.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func (p Profile) delay() time.Duration {
	if p.TransitionDelay <= 0 {
		return DefaultTransitionDelay
	}
	return p.TransitionDelay
}

func (p Profile) highlight() string {
	if p.HighlightColor == "" {
		return HighlightColor
	}
	return p.HighlightColor
}

func (p Profile) neutral() string {
	if p.NeutralColor == "" {
		return NeutralColor
	}
	return p.NeutralColor
}

func (p Profile) lineWidth() float64 {
	if p.LineWidth <= 0 {
		return LineWidth
	}
	return p.LineWidth
}
