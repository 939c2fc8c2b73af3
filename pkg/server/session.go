package server

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vanderheijden86/storymap/pkg/controller"
	"github.com/vanderheijden86/storymap/pkg/loader"
	"github.com/vanderheijden86/storymap/pkg/mapview"
	"github.com/vanderheijden86/storymap/pkg/page"
)

// Session errors.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrAnimating       = errors.New("a transition is running")
	ErrOutOfRange      = errors.New("no slide in that direction")
)

// Session is one viewer: a controller with its own map and page. Page and
// map state are only touched under the controller lock.
type Session struct {
	ID       string
	Created  time.Time
	lastSeen time.Time

	c      *controller.Controller
	canvas *mapview.Canvas
	doc    *page.Document

	ctx    context.Context
	cancel context.CancelFunc
}

// Snapshot is the JSON view of a session.
type Snapshot struct {
	ID      string                `json:"id"`
	State   controller.State      `json:"state"`
	Page    page.Snapshot         `json:"page"`
	Camera  mapview.Camera        `json:"camera"`
	Lines   []mapview.LineLayer   `json:"lines"`
	Markers []mapview.Marker      `json:"markers"`
	Map     mapview.Options       `json:"map"`
	Attrib  []mapview.Attribution `json:"attribution"`
}

func newSession(parent context.Context, b *loader.Bundle, p controller.Profile, start int, now time.Time) (*Session, error) {
	opts := controller.InitialOptions(b.Story, p, b.Header, b.Archive)
	canvas := mapview.New(opts, mapview.WithFlightDuration(0))
	doc := page.New()
	c, err := controller.New(b.Story, canvas, doc, p, controller.WithStartIndex(start))
	if err != nil {
		return nil, err
	}
	c.Start()
	// A headless map has no tiles to wait for.
	c.Sync(canvas.Load)

	ctx, cancel := context.WithCancel(parent)
	return &Session{
		ID:       uuid.NewString(),
		Created:  now,
		lastSeen: now,
		c:        c,
		canvas:   canvas,
		doc:      doc,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Navigate starts a move and runs its transition in the background.
func (s *Session) Navigate(d controller.Direction) (*controller.Transition, error) {
	if s.c.Animating() {
		return nil, ErrAnimating
	}
	t, ok := s.c.Navigate(d)
	if !ok {
		if s.c.Animating() {
			return nil, ErrAnimating
		}
		return nil, ErrOutOfRange
	}
	if t != nil {
		go t.Run(s.ctx)
	}
	return t, nil
}

// Snapshot captures the session state.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{ID: s.ID, State: s.c.State()}
	s.c.Sync(func() {
		snap.Page = s.doc.Snapshot()
		snap.Camera = s.canvas.Target()
		snap.Lines = s.canvas.Layers()
		snap.Markers = s.canvas.Markers()
		snap.Map = s.canvas.Options()
		snap.Attrib = s.canvas.Attributions()
	})
	if snap.Lines == nil {
		snap.Lines = []mapview.LineLayer{}
	}
	if snap.Markers == nil {
		snap.Markers = []mapview.Marker{}
	}
	return snap
}

func (s *Session) close() {
	s.cancel()
	s.c.Close()
}
