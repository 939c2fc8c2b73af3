// Package page holds the in-process model of the story panel: headline, body
// markup, media region, transition classes on the content wrapper, the
// background overlay and the two navigation buttons.
//
// Document records what a browser page would show so any driver can present
// it: the terminal UI reads it directly, the HTTP server serves its Snapshot.
package page

import (
	"slices"

	"github.com/vanderheijden86/storymap/pkg/media"
	"github.com/vanderheijden86/storymap/pkg/story"
)

// Button identifies a navigation button.
type Button int

const (
	Prev Button = iota
	Next
)

func (b Button) String() string {
	if b == Prev {
		return "prev"
	}
	return "next"
}

// Cursor values for button states.
const (
	CursorPointer    = "pointer"
	CursorNotAllowed = "not-allowed"
)

// ButtonState is the presentation of a navigation button.
type ButtonState struct {
	Disabled bool    `json:"disabled"`
	Opacity  float64 `json:"opacity"`
	Cursor   string  `json:"cursor"`
}

// Enabled and Disabled are the two button presentations.
var (
	Enabled  = ButtonState{Disabled: false, Opacity: 1, Cursor: CursorPointer}
	Disabled = ButtonState{Disabled: true, Opacity: 0.5, Cursor: CursorNotAllowed}
)

// Overlay is the background image layer beneath the slide content.
type Overlay struct {
	Visible bool    `json:"visible"`
	Image   string  `json:"image,omitempty"`
	Opacity float64 `json:"opacity"`
	ZIndex  int     `json:"zIndex"`
}

// ContainerStyle is the story container's inline style.
type ContainerStyle struct {
	Position        string `json:"position,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	BackgroundImage string `json:"backgroundImage,omitempty"`
}

// ContentStyle is the content wrapper's inline style.
type ContentStyle struct {
	Position string `json:"position,omitempty"`
	ZIndex   int    `json:"zIndex"`
}

// Document is the story panel. It is not safe for concurrent use; the
// controller serializes access.
type Document struct {
	headline  string
	body      string
	media     []media.Element
	classes   []string
	container ContainerStyle
	content   ContentStyle
	overlay   *Overlay
	buttons   [2]ButtonState
	revision  uint64
}

// New returns an empty document with both buttons enabled.
func New() *Document {
	return &Document{buttons: [2]ButtonState{Enabled, Enabled}}
}

func (d *Document) touch() { d.revision++ }

// SetHeadline replaces the headline text.
func (d *Document) SetHeadline(s string) {
	d.headline = s
	d.touch()
}

// SetBody replaces the body markup.
func (d *Document) SetBody(markup string) {
	d.body = markup
	d.touch()
}

// ClearMedia empties the media region.
func (d *Document) ClearMedia() {
	d.media = nil
	d.touch()
}

// AppendMedia adds an element to the media region.
func (d *Document) AppendMedia(el media.Element) {
	d.media = append(d.media, el)
	d.touch()
}

// AddClass adds a class to the content wrapper. Adding twice is a no-op.
func (d *Document) AddClass(name string) {
	if !slices.Contains(d.classes, name) {
		d.classes = append(d.classes, name)
		d.touch()
	}
}

// RemoveClass removes a class from the content wrapper.
func (d *Document) RemoveClass(name string) {
	if i := slices.Index(d.classes, name); i >= 0 {
		d.classes = slices.Delete(d.classes, i, i+1)
		d.touch()
	}
}

// HasClass reports whether the content wrapper carries name.
func (d *Document) HasClass(name string) bool {
	return slices.Contains(d.classes, name)
}

// SetButton sets the presentation of a navigation button.
func (d *Document) SetButton(b Button, s ButtonState) {
	d.buttons[b] = s
	d.touch()
}

// StateOf returns the presentation of a navigation button.
func (d *Document) StateOf(b Button) ButtonState {
	return d.buttons[b]
}

// ApplyBackground styles the container for a slide background. The overlay is
// created on first use beneath the content; the container's own background
// image is always cleared in favor of the overlay.
func (d *Document) ApplyBackground(bg *story.Background) {
	if d.container.Position == "" {
		d.container.Position = "relative"
	}
	if d.overlay == nil {
		d.overlay = &Overlay{Opacity: 1, ZIndex: 0}
	}
	d.content = ContentStyle{Position: "relative", ZIndex: 1}
	d.container.BackgroundImage = ""

	switch {
	case bg == nil:
		d.hideOverlay()
		d.container.BackgroundColor = ""
	default:
		d.container.BackgroundColor = bg.Color
		if bg.URL != "" {
			d.overlay.Visible = true
			d.overlay.Image = bg.URL
			d.overlay.Opacity = bg.OpacityOr()
		} else {
			d.hideOverlay()
		}
	}
	d.touch()
}

func (d *Document) hideOverlay() {
	d.overlay.Visible = false
	d.overlay.Image = ""
}

// Headline returns the headline text.
func (d *Document) Headline() string { return d.headline }

// Body returns the body markup.
func (d *Document) Body() string { return d.body }

// Media returns the media elements.
func (d *Document) Media() []media.Element { return slices.Clone(d.media) }

// Classes returns the content wrapper classes in insertion order.
func (d *Document) Classes() []string { return slices.Clone(d.classes) }

// Overlay returns the background overlay, or nil if none was created.
func (d *Document) Overlay() *Overlay {
	if d.overlay == nil {
		return nil
	}
	o := *d.overlay
	return &o
}

// Container returns the container style.
func (d *Document) Container() ContainerStyle { return d.container }

// Revision increases on every mutation. Drivers use it to skip redraws.
func (d *Document) Revision() uint64 { return d.revision }

// Snapshot is a JSON-ready copy of a Document.
type Snapshot struct {
	Headline  string          `json:"headline"`
	Body      string          `json:"body"`
	Media     []media.Element `json:"media"`
	Classes   []string        `json:"classes"`
	Container ContainerStyle  `json:"container"`
	Content   ContentStyle    `json:"content"`
	Overlay   *Overlay        `json:"overlay,omitempty"`
	Prev      ButtonState     `json:"prev"`
	Next      ButtonState     `json:"next"`
	Revision  uint64          `json:"revision"`
}

// Snapshot copies the document state.
func (d *Document) Snapshot() Snapshot {
	elems := d.Media()
	if elems == nil {
		elems = []media.Element{}
	}
	classes := d.Classes()
	if classes == nil {
		classes = []string{}
	}
	return Snapshot{
		Headline:  d.headline,
		Body:      d.body,
		Media:     elems,
		Classes:   classes,
		Container: d.container,
		Content:   d.content,
		Overlay:   d.Overlay(),
		Prev:      d.buttons[Prev],
		Next:      d.buttons[Next],
		Revision:  d.revision,
	}
}
