// Package ui is the terminal viewer. A Bubble Tea model drives one slideshow
// controller and draws its page next to a character-cell map.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/storymap/pkg/controller"
	"github.com/vanderheijden86/storymap/pkg/debug"
	"github.com/vanderheijden86/storymap/pkg/loader"
	"github.com/vanderheijden86/storymap/pkg/mapview"
	"github.com/vanderheijden86/storymap/pkg/media"
	"github.com/vanderheijden86/storymap/pkg/metrics"
	"github.com/vanderheijden86/storymap/pkg/page"
	"github.com/vanderheijden86/storymap/pkg/watcher"
)

// FlightFrame is the camera animation tick, 16 frames per second.
const FlightFrame = time.Second / 16

// Default dimensions used until the terminal reports its size.
const (
	defaultWidth  = 100
	defaultHeight = 30
)

// ReloadFunc loads the story again after a file change.
type ReloadFunc func(ctx context.Context) (*loader.Bundle, error)

// FileChangedMsg is sent when a watched story file changes on disk.
type FileChangedMsg struct {
	Paths []string
}

// ReloadedMsg carries the result of a reload.
type ReloadedMsg struct {
	Bundle *loader.Bundle
	Err    error
}

// mapLoadedMsg signals that the map is ready for lines and markers.
type mapLoadedMsg struct{}

// transitionTickMsg advances a slide transition by one phase.
type transitionTickMsg struct {
	t *controller.Transition
}

// flightTickMsg steps the camera flight.
type flightTickMsg struct {
	at time.Time
}

// Option configures a Model.
type Option func(*Model)

// WithPlain disables colors and markdown styling.
func WithPlain(plain bool) Option {
	return func(m *Model) { m.plain = plain }
}

// WithWatcher reloads the story through reload whenever w reports a change.
func WithWatcher(w *watcher.Watcher, reload ReloadFunc) Option {
	return func(m *Model) {
		m.watcher = w
		m.reload = reload
	}
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) { m.copyFn = write }
}

// WithFlightDuration sets the camera flight length. Zero makes the camera
// jump.
func WithFlightDuration(d time.Duration) Option {
	return func(m *Model) { m.flightDur = d }
}

// WithStartIndex opens the story at slide i.
func WithStartIndex(i int) Option {
	return func(m *Model) { m.start = i }
}

// Model is the Bubble Tea model for the story viewer.
type Model struct {
	bundle  *loader.Bundle
	profile controller.Profile
	c       *controller.Controller
	canvas  *mapview.Canvas
	doc     *page.Document

	theme   Theme
	keys    keyMap
	help    help.Model
	body    viewport.Model
	spinner spinner.Model
	md      *glamour.TermRenderer
	mdWidth int

	width     int
	height    int
	plain     bool
	start     int
	flightDur time.Duration

	loaded  bool
	flying  bool
	ticking bool
	snap    page.Snapshot
	grid    string
	bodyRev uint64
	bodyW   int

	statusMsg     string
	statusIsError bool

	watcher *watcher.Watcher
	reload  ReloadFunc
	copyFn  func(string) error
}

// NewModel builds the viewer for b and renders the first slide.
func NewModel(b *loader.Bundle, p controller.Profile, opts ...Option) (Model, error) {
	m := Model{
		profile:   p,
		theme:     DefaultTheme(lipgloss.DefaultRenderer()),
		keys:      defaultKeyMap(p.ArrowKeys),
		help:      help.New(),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		width:     defaultWidth,
		height:    defaultHeight,
		flightDur: mapview.DefaultFlightDuration,
		copyFn:    clipboard.WriteAll,
	}
	for _, o := range opts {
		o(&m)
	}
	if err := m.attach(b, m.start); err != nil {
		return Model{}, err
	}
	m.body = viewport.New(1, 1)
	m.refresh()
	m.ticking = m.flying
	return m, nil
}

// attach builds a controller, map and page for b and starts them. A
// previous controller is closed.
func (m *Model) attach(b *loader.Bundle, start int) error {
	opts := controller.InitialOptions(b.Story, m.profile, b.Header, b.Archive)
	canvas := mapview.New(opts, mapview.WithFlightDuration(m.flightDur))
	doc := page.New()
	c, err := controller.New(b.Story, canvas, doc, m.profile, controller.WithStartIndex(start))
	if err != nil {
		return fmt.Errorf("building controller: %w", err)
	}
	if m.c != nil {
		m.c.Close()
	}
	m.bundle, m.c, m.canvas, m.doc = b, c, canvas, doc
	m.bodyRev = 0
	c.Start()
	return nil
}

// WatchCmd waits for the next change reported by w.
func WatchCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		paths, ok := <-w.Changed()
		if !ok {
			return nil
		}
		return FileChangedMsg{Paths: paths}
	}
}

func loadMapCmd() tea.Msg { return mapLoadedMsg{} }

func transitionTick(t *controller.Transition) tea.Cmd {
	return tea.Tick(t.Delay(), func(time.Time) tea.Msg {
		return transitionTickMsg{t: t}
	})
}

func flightTick() tea.Cmd {
	return tea.Tick(FlightFrame, func(at time.Time) tea.Msg {
		return flightTickMsg{at: at}
	})
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{loadMapCmd, m.spinner.Tick}
	if m.watcher != nil {
		cmds = append(cmds, WatchCmd(m.watcher))
	}
	if m.ticking {
		cmds = append(cmds, flightTick())
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.refresh()

	case mapLoadedMsg:
		if !m.loaded {
			m.c.Sync(m.canvas.Load)
			m.loaded = true
			debug.Log("ui: map loaded")
		}
		m.refresh()

	case transitionTickMsg:
		if msg.t.Advance() {
			cmds = append(cmds, transitionTick(msg.t))
		}
		m.refresh()
		cmds = append(cmds, m.flightCmd())

	case flightTickMsg:
		var still bool
		m.c.Sync(func() { still = m.canvas.Step(msg.at) })
		m.refresh()
		if still {
			cmds = append(cmds, flightTick())
		} else {
			m.ticking = false
		}

	case FileChangedMsg:
		debug.Log("ui: story changed: %v", msg.Paths)
		if m.reload != nil {
			reload := m.reload
			cmds = append(cmds, func() tea.Msg {
				b, err := reload(context.Background())
				return ReloadedMsg{Bundle: b, Err: err}
			})
		}
		if m.watcher != nil {
			cmds = append(cmds, WatchCmd(m.watcher))
		}

	case ReloadedMsg:
		m.applyReload(msg)
		cmds = append(cmds, m.flightCmd())

	case spinner.TickMsg:
		if !m.loaded {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.c.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.refresh()
		return m, nil
	case key.Matches(msg, m.keys.Next):
		return m.navigate(m.c.Click(page.Next))
	case key.Matches(msg, m.keys.Prev):
		return m.navigate(m.c.Click(page.Prev))
	case key.Matches(msg, m.keys.ArrowR), key.Matches(msg, m.keys.ArrowL):
		return m.navigate(m.c.HandleKey(msg.String()))
	case key.Matches(msg, m.keys.Copy):
		m.copyMedia()
		return m, nil
	case key.Matches(msg, m.keys.ScrollUp), key.Matches(msg, m.keys.ScrollDn):
		var cmd tea.Cmd
		m.body, cmd = m.body.Update(msg)
		return m, cmd
	}
	return m, nil
}

// navigate applies the result of a controller move. Dropped moves change
// nothing.
func (m Model) navigate(t *controller.Transition, ok bool) (tea.Model, tea.Cmd) {
	if !ok {
		return m, nil
	}
	m.statusMsg = ""
	m.refresh()
	var cmds []tea.Cmd
	if t != nil {
		cmds = append(cmds, transitionTick(t))
	}
	cmds = append(cmds, m.flightCmd())
	return m, tea.Batch(cmds...)
}

// flightCmd starts the flight ticker when the camera is moving and no ticker
// runs yet.
func (m *Model) flightCmd() tea.Cmd {
	if !m.flying || m.ticking {
		return nil
	}
	m.ticking = true
	return flightTick()
}

func (m *Model) applyReload(msg ReloadedMsg) {
	if msg.Err != nil {
		m.setStatus(fmt.Sprintf("reload failed: %v", msg.Err), true)
		return
	}
	start := min(m.c.Index(), msg.Bundle.Story.Len()-1)
	if err := m.attach(msg.Bundle, start); err != nil {
		m.setStatus(fmt.Sprintf("reload failed: %v", err), true)
		return
	}
	if m.loaded {
		m.c.Sync(m.canvas.Load)
	}
	m.setStatus(fmt.Sprintf("reloaded %d slides", msg.Bundle.Story.Len()), false)
	m.refresh()
}

func (m *Model) copyMedia() {
	sl := m.c.Story().Slides[m.c.Index()]
	if sl.Media == nil || sl.Media.URL == "" {
		m.setStatus("no media on this slide", true)
		return
	}
	if err := m.copyFn(sl.Media.URL); err != nil {
		m.setStatus(fmt.Sprintf("clipboard: %v", err), true)
		return
	}
	m.setStatus("📋 Copied "+sl.Media.URL, false)
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.statusMsg = msg
	m.statusIsError = isErr
}

// refresh reads page and map state under the controller lock and redraws
// the cached map and body.
func (m *Model) refresh() {
	defer metrics.Timer(metrics.UIRender)()

	l := m.layout()
	var g *mapview.Grid
	m.c.Sync(func() {
		m.snap = m.doc.Snapshot()
		m.flying = m.canvas.Flying()
		g = m.canvas.Render(l.gridW, l.gridH)
	})
	m.grid = renderGrid(g, m.theme, m.plain)

	bodyH := max(l.slideInnerH-m.slideChromeHeight(), 1)
	if m.snap.Revision != m.bodyRev || m.bodyW != l.slideInnerW {
		m.bodyRev, m.bodyW = m.snap.Revision, l.slideInnerW
		m.body.Width, m.body.Height = l.slideInnerW, bodyH
		m.body.SetContent(m.renderBody(l.slideInnerW))
		m.body.GotoTop()
	} else {
		m.body.Height = bodyH
	}
}

// Index returns the current slide index.
func (m Model) Index() int { return m.c.Index() }

// Headline returns the headline on screen.
func (m Model) Headline() string { return m.snap.Headline }

// Animating reports whether a slide transition is running.
func (m Model) Animating() bool { return m.c.Animating() }

// Status returns the status line text.
func (m Model) Status() string { return m.statusMsg }

// Bundle returns the story being shown.
func (m Model) Bundle() *loader.Bundle { return m.bundle }

// Close releases the controller.
func (m Model) Close() { m.c.Close() }

type layout struct {
	stacked      bool
	slideW       int
	slideH       int
	mapW         int
	mapH         int
	slideInnerW  int
	slideInnerH  int
	gridW, gridH int
}

// layout splits the screen into the slide and map panes. Wide terminals put
// them side by side; narrow ones stack the slide above the map.
func (m Model) layout() layout {
	w, h := max(m.width, 20), max(m.height, 8)
	contentH := max(h-2, 6)
	var l layout
	if w >= 90 {
		l.slideW = w * 2 / 5
		l.mapW = w - l.slideW
		l.slideH, l.mapH = contentH, contentH
	} else {
		l.stacked = true
		l.slideW, l.mapW = w, w
		l.slideH = contentH / 2
		l.mapH = contentH - l.slideH
	}
	// border and horizontal padding
	l.slideInnerW = max(l.slideW-4, 1)
	l.slideInnerH = max(l.slideH-2, 1)
	l.gridW = max(l.mapW-2, 1)
	l.gridH = max(l.mapH-2, 1)
	return l
}

// slideChromeHeight is the number of slide pane lines outside the body:
// headline, blank, media, background, blank, buttons.
func (m Model) slideChromeHeight() int {
	n := 4 + len(m.snap.Media)
	if o := m.snap.Overlay; o != nil && o.Visible {
		n++
	}
	return n
}

func (m *Model) renderBody(width int) string {
	text := page.BodyText(m.snap.Body)
	if text == "" {
		return ""
	}
	if m.plain {
		return lipgloss.NewStyle().Width(width).Render(text)
	}
	if m.md == nil || m.mdWidth != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			debug.Log("ui: markdown renderer: %v", err)
			return lipgloss.NewStyle().Width(width).Render(text)
		}
		m.md, m.mdWidth = r, width
	}
	out, err := m.md.Render(text)
	if err != nil {
		return lipgloss.NewStyle().Width(width).Render(text)
	}
	return strings.Trim(out, "\n")
}

func (m Model) style(st lipgloss.Style, s string) string {
	if m.plain {
		return s
	}
	return st.Render(s)
}

func (m Model) View() string {
	l := m.layout()
	header := m.renderHeader(max(m.width, 20))
	slide := m.renderSlidePane(l)
	mapPane := m.renderMapPane(l)

	var content string
	if l.stacked {
		content = lipgloss.JoinVertical(lipgloss.Left, slide, mapPane)
	} else {
		content = lipgloss.JoinHorizontal(lipgloss.Top, slide, mapPane)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, content, m.renderFooter())
}

func (m Model) renderHeader(width int) string {
	title := "storymap"
	if t := m.c.Story().Title; t != "" {
		title += " · " + t
	}
	right := fmt.Sprintf("%s · %d/%d", m.profile.Name, m.c.Index()+1, m.c.Len())
	line := joinEnds(" "+truncate(title, width/2), right+" ", width)
	if m.plain {
		return line
	}
	return m.theme.Header.Padding(0).Width(width).Render(line)
}

func (m Model) panel(w, h int, background string) lipgloss.Style {
	st := m.theme.Panel(background)
	if m.plain {
		st = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)
	}
	return st.Width(w - 2).Height(h - 2)
}

func (m Model) renderSlidePane(l layout) string {
	w := l.slideInnerW
	var lines []string

	headline := m.style(m.theme.Headline, truncate(m.snap.Headline, w))
	if len(m.snap.Classes) > 0 {
		headline = joinEnds(headline, m.style(m.theme.Caption, strings.Join(m.snap.Classes, " ")), w)
	}
	lines = append(lines, headline, "", m.body.View())

	for _, el := range m.snap.Media {
		lines = append(lines, m.style(m.theme.Caption, truncate(mediaLine(el), w)))
	}
	if o := m.snap.Overlay; o != nil && o.Visible {
		bg := fmt.Sprintf("background %s (opacity %.2g)", o.Image, o.Opacity)
		lines = append(lines, m.style(m.theme.Caption, truncate(bg, w)))
	}

	prev := m.button("‹ prev", m.snap.Prev)
	next := m.button("next ›", m.snap.Next)
	midW := max(w-lipgloss.Width(prev)-lipgloss.Width(next)-2, 1)
	progress := center(RenderProgress(m.c.Index(), m.c.Len(), midW), midW)
	lines = append(lines, "", prev+" "+progress+" "+next)

	return m.panel(l.slideW, l.slideH, m.snap.Container.BackgroundColor).
		Render(strings.Join(lines, "\n"))
}

func (m Model) button(label string, st page.ButtonState) string {
	if st.Disabled {
		return m.style(m.theme.ButtonDisabled, label)
	}
	return m.style(m.theme.ButtonEnabled, label)
}

func mediaLine(el media.Element) string {
	switch el.Kind {
	case media.Video:
		return "▶ video " + el.Src
	case media.Image:
		if el.Alt != "" {
			return "▣ image " + el.Src + " (" + el.Alt + ")"
		}
		return "▣ image " + el.Src
	}
	return ""
}

func (m Model) renderMapPane(l layout) string {
	body := m.grid
	if !m.loaded {
		body = center(m.spinner.View()+" loading map", l.gridW)
	}
	return m.panel(l.mapW, l.mapH, "").Padding(0).Render(body)
}

func (m Model) renderFooter() string {
	if m.statusMsg != "" {
		if m.statusIsError {
			return m.style(m.theme.Error, m.statusMsg)
		}
		return m.style(m.theme.Status, m.statusMsg)
	}
	return m.help.View(m.keys)
}
