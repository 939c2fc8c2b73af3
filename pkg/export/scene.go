// Package export writes static renditions of a story: SVG and PNG map
// snapshots, GeoJSON overlays, a SQLite database and a Markdown handout.
package export

import (
	"fmt"

	"github.com/vanderheijden86/storymap/pkg/controller"
	"github.com/vanderheijden86/storymap/pkg/mapview"
	"github.com/vanderheijden86/storymap/pkg/page"
	"github.com/vanderheijden86/storymap/pkg/story"
	"github.com/vanderheijden86/storymap/pkg/tiles"
)

// Default snapshot size in pixels.
const (
	DefaultWidth  = 1200
	DefaultHeight = 800
	framePadding  = 64
)

// Scene is a story rendered headlessly at one slide, with the camera fitted
// to every located slide.
type Scene struct {
	Story   *story.Story
	Profile controller.Profile
	Slide   int
	Canvas  *mapview.Canvas
	Doc     *page.Document
	Lines   []controller.LineRef
	Camera  mapview.Camera
	Width   int
	Height  int
}

// SceneOptions configures BuildScene.
type SceneOptions struct {
	Profile controller.Profile
	Slide   int
	Width   int
	Height  int
	Header  *tiles.Header
	Archive string
}

// BuildScene runs a controller against an offline canvas: the map is loaded
// immediately so lines and markers exist, and the requested slide is shown.
func BuildScene(s *story.Story, opts SceneOptions) (*Scene, error) {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Profile.Name == "" {
		opts.Profile = controller.Classic
	}

	mopts := controller.InitialOptions(s, opts.Profile, opts.Header, opts.Archive)
	canvas := mapview.New(mopts, mapview.WithFlightDuration(0))
	doc := page.New()
	c, err := controller.New(s, canvas, doc, opts.Profile, controller.WithStartIndex(opts.Slide))
	if err != nil {
		return nil, fmt.Errorf("building scene: %w", err)
	}
	c.Start()
	c.Sync(canvas.Load)
	defer c.Close()

	cam := mapview.FitBounds(s.Bounds(), float64(opts.Width), float64(opts.Height),
		framePadding, mapview.TileSize, mopts.MaxZoom)
	if s.Bounds().Empty() {
		cam = canvas.Camera()
	}
	return &Scene{
		Story:   s,
		Profile: opts.Profile,
		Slide:   c.Index(),
		Canvas:  canvas,
		Doc:     doc,
		Lines:   c.Lines(),
		Camera:  cam,
		Width:   opts.Width,
		Height:  opts.Height,
	}, nil
}

// Viewport returns the projection of the scene's frame.
func (sc *Scene) Viewport() mapview.Viewport {
	return mapview.NewViewport(float64(sc.Width), float64(sc.Height), sc.Camera)
}

// Title returns the story title, or the first headline when untitled.
func (sc *Scene) Title() string {
	if sc.Story.Title != "" {
		return sc.Story.Title
	}
	return sc.Story.Slides[0].Text.Headline
}
