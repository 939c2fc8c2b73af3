package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/storymap/pkg/controller"
	"github.com/vanderheijden86/storymap/pkg/loader"
	"github.com/vanderheijden86/storymap/pkg/story"
	"github.com/vanderheijden86/storymap/pkg/testutil"
)

func newTestModel(t *testing.T, s *story.Story, p controller.Profile, opts ...Option) Model {
	t.Helper()
	opts = append([]Option{WithPlain(true), WithFlightDuration(0)}, opts...)
	m, err := NewModel(&loader.Bundle{Source: "mem", Story: s}, p, opts...)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return nm, cmd
}

func press(t *testing.T, m Model, k string) (Model, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch k {
	case "left":
		msg = tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		msg = tea.KeyMsg{Type: tea.KeyRight}
	case "ctrl+c":
		msg = tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	return update(t, m, msg)
}

// advance delivers transition ticks until the running transition ends.
func advance(t *testing.T, m Model) Model {
	t.Helper()
	for i := 0; i < 4; i++ {
		tr := m.c.Transition()
		if tr == nil {
			return m
		}
		m, _ = update(t, m, transitionTickMsg{t: tr})
	}
	t.Fatal("transition did not finish")
	return m
}

func TestNewModel_RendersFirstSlide(t *testing.T) {
	m := newTestModel(t, testutil.Journey(3), controller.Classic)
	if m.Index() != 0 || m.Headline() != "Stop 0" {
		t.Errorf("index %d headline %q", m.Index(), m.Headline())
	}
	if m.c.Built() {
		t.Error("lines should wait for the map to load")
	}

	m, _ = update(t, m, mapLoadedMsg{})
	if !m.c.Built() || len(m.c.Lines()) != 2 {
		t.Errorf("expected 2 lines after map load, built=%v lines=%d", m.c.Built(), len(m.c.Lines()))
	}
}

func TestNewModel_StartIndexClamped(t *testing.T) {
	m := newTestModel(t, testutil.Journey(3), controller.Example, WithStartIndex(10))
	if m.Index() != 2 {
		t.Errorf("expected clamped start 2, got %d", m.Index())
	}
}

func TestNavigate_NonAnimated(t *testing.T) {
	m := newTestModel(t, testutil.Journey(3), controller.Example)
	m, _ = press(t, m, "n")
	if m.Index() != 1 || m.Headline() != "Stop 1" {
		t.Fatalf("after n: index %d headline %q", m.Index(), m.Headline())
	}
	m, _ = press(t, m, "l")
	if m.Index() != 2 {
		t.Errorf("after l: index %d", m.Index())
	}
	m, _ = press(t, m, "n")
	if m.Index() != 2 {
		t.Errorf("next past the end should be dropped, index %d", m.Index())
	}
	m, _ = press(t, m, "h")
	m, _ = press(t, m, "p")
	if m.Index() != 0 || m.Headline() != "Stop 0" {
		t.Errorf("after h p: index %d headline %q", m.Index(), m.Headline())
	}
	m, _ = press(t, m, "p")
	if m.Index() != 0 {
		t.Errorf("prev before the start should be dropped, index %d", m.Index())
	}
}

func TestNavigate_AnimatedTransition(t *testing.T) {
	m := newTestModel(t, testutil.Journey(3), controller.Classic)
	m, cmd := press(t, m, "n")
	if cmd == nil {
		t.Fatal("expected a transition tick command")
	}
	if !m.Animating() {
		t.Fatal("expected a running transition")
	}
	if m.Headline() != "Stop 0" {
		t.Errorf("old slide stays until the exit delay, got %q", m.Headline())
	}
	if !containsClass(m.snap.Classes, controller.ClassSlideOutLeft) {
		t.Errorf("expected exit class, got %v", m.snap.Classes)
	}

	// navigation while animating is dropped
	m, _ = press(t, m, "n")
	if m.Index() != 1 {
		t.Errorf("second press should be dropped, index %d", m.Index())
	}

	m, _ = update(t, m, transitionTickMsg{t: m.c.Transition()})
	if m.Headline() != "Stop 1" || !containsClass(m.snap.Classes, controller.ClassSlideInRight) {
		t.Errorf("enter phase: headline %q classes %v", m.Headline(), m.snap.Classes)
	}
	m = advance(t, m)
	if m.Animating() || len(m.snap.Classes) != 0 {
		t.Errorf("transition should be done, classes %v", m.snap.Classes)
	}
}

func TestArrowKeys_FollowProfile(t *testing.T) {
	m := newTestModel(t, testutil.Journey(3), controller.Classic)
	m, _ = press(t, m, "right")
	if m.Index() != 0 || m.Animating() {
		t.Errorf("classic ignores arrows, index %d", m.Index())
	}

	j := newTestModel(t, testutil.Journey(3), controller.Journey)
	j, _ = press(t, j, "right")
	if j.Index() != 1 || !j.Animating() {
		t.Fatalf("journey should move on right arrow, index %d", j.Index())
	}
	j = advance(t, j)
	j, _ = press(t, j, "left")
	j = advance(t, j)
	if j.Index() != 0 || j.Headline() != "Stop 0" {
		t.Errorf("after left: index %d headline %q", j.Index(), j.Headline())
	}
}

func TestCopyMedia(t *testing.T) {
	withMedia := testutil.Located("Clip", 10, 10, false)
	withMedia.Media = &story.Media{URL: "https://www.youtube.com/watch?v=abc"}
	s := testutil.Stories(withMedia, testutil.Located("Plain", 11, 11, false))

	var copied string
	m := newTestModel(t, s, controller.Example, WithClipboard(func(v string) error {
		copied = v
		return nil
	}))
	m, _ = press(t, m, "y")
	if copied != "https://www.youtube.com/watch?v=abc" {
		t.Errorf("copied %q", copied)
	}
	if m.statusIsError || !strings.Contains(m.Status(), "Copied") {
		t.Errorf("status %q", m.Status())
	}

	m, _ = press(t, m, "n")
	if m.Status() != "" {
		t.Errorf("navigation should clear the status, got %q", m.Status())
	}
	m, _ = press(t, m, "y")
	if !m.statusIsError {
		t.Errorf("expected an error status for a slide without media, got %q", m.Status())
	}
}

func TestCopyMedia_ClipboardError(t *testing.T) {
	sl := testutil.Located("Clip", 10, 10, false)
	sl.Media = &story.Media{URL: "images/a.png"}
	m := newTestModel(t, testutil.Stories(sl), controller.Example, WithClipboard(func(string) error {
		return errors.New("no clipboard")
	}))
	m, _ = press(t, m, "y")
	if !m.statusIsError || !strings.Contains(m.Status(), "no clipboard") {
		t.Errorf("status %q", m.Status())
	}
}

func TestReload_ClampsIndex(t *testing.T) {
	m := newTestModel(t, testutil.Journey(3), controller.Example)
	m, _ = update(t, m, mapLoadedMsg{})
	m, _ = press(t, m, "n")
	m, _ = press(t, m, "n")
	old := m.c

	m, _ = update(t, m, ReloadedMsg{Bundle: &loader.Bundle{Source: "mem", Story: testutil.Journey(2)}})
	if m.c == old {
		t.Fatal("expected a fresh controller")
	}
	if m.Index() != 1 || m.Headline() != "Stop 1" {
		t.Errorf("index %d headline %q", m.Index(), m.Headline())
	}
	if !m.c.Built() || len(m.c.Lines()) != 1 {
		t.Errorf("reloaded map should be built with 1 line, got %d", len(m.c.Lines()))
	}
	if !strings.Contains(m.Status(), "reloaded 2 slides") {
		t.Errorf("status %q", m.Status())
	}
	if _, ok := old.Navigate(controller.Prev); ok {
		t.Error("old controller should be closed")
	}
}

func TestReload_ErrorKeepsStory(t *testing.T) {
	m := newTestModel(t, testutil.Journey(3), controller.Example)
	old := m.c
	m, _ = update(t, m, ReloadedMsg{Err: errors.New("bad json")})
	if m.c != old || m.Bundle().Story.Len() != 3 {
		t.Error("failed reload should keep the current story")
	}
	if !m.statusIsError || !strings.Contains(m.Status(), "bad json") {
		t.Errorf("status %q", m.Status())
	}
}

func TestFileChanged_RunsReload(t *testing.T) {
	calls := 0
	reload := func(ctx context.Context) (*loader.Bundle, error) {
		calls++
		return &loader.Bundle{Source: "mem", Story: testutil.Journey(4)}, nil
	}
	m := newTestModel(t, testutil.Journey(3), controller.Example, WithWatcher(nil, reload))
	m, cmd := update(t, m, FileChangedMsg{Paths: []string{"story.json"}})
	msgs := collect(cmd)
	if calls != 1 || len(msgs) != 1 {
		t.Fatalf("expected one reload, calls=%d msgs=%d", calls, len(msgs))
	}
	m, _ = update(t, m, msgs[0])
	if m.c.Len() != 4 {
		t.Errorf("expected 4 slides after reload, got %d", m.c.Len())
	}
}

func TestFlight_TicksUntilDone(t *testing.T) {
	m := newTestModel(t, testutil.Journey(3), controller.Journey, WithFlightDuration(time.Second))
	if !m.ticking || !m.flying {
		t.Fatal("journey flies to the first slide on start")
	}
	m, cmd := update(t, m, flightTickMsg{at: time.Now()})
	if cmd == nil || !m.ticking {
		t.Error("flight should keep ticking mid-way")
	}
	m, cmd = update(t, m, flightTickMsg{at: time.Now().Add(time.Hour)})
	if cmd != nil || m.ticking || m.flying {
		t.Error("flight should end after its duration")
	}
}

func TestView_Plain(t *testing.T) {
	m := newTestModel(t, testutil.Journey(3), controller.Classic)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})
	m, _ = update(t, m, mapLoadedMsg{})
	v := m.View()
	for _, want := range []string{"Stop 0", "next ›", "‹ prev", "classic · 1/3", "◆"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q:\n%s", want, v)
		}
	}
	if strings.Contains(v, "\x1b[") {
		t.Error("plain view should carry no escape codes")
	}
}

func TestView_LoadingAndNarrow(t *testing.T) {
	m := newTestModel(t, testutil.Journey(2), controller.Example)
	if !strings.Contains(m.View(), "loading map") {
		t.Error("expected the loading indicator before map load")
	}
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 60, Height: 30})
	if l := m.layout(); !l.stacked || l.slideW != 60 {
		t.Errorf("narrow layout = %+v", l)
	}
}

func TestHelpToggle(t *testing.T) {
	m := newTestModel(t, testutil.Journey(2), controller.Journey)
	m, _ = press(t, m, "?")
	if !m.help.ShowAll {
		t.Fatal("expected full help")
	}
	if v := m.View(); !strings.Contains(v, "copy media url") || !strings.Contains(v, "→") {
		t.Errorf("full help should list copy and arrows:\n%s", v)
	}
	m, _ = press(t, m, "?")
	if m.help.ShowAll {
		t.Error("second ? should close help")
	}
}

func TestQuit(t *testing.T) {
	m := newTestModel(t, testutil.Journey(2), controller.Example)
	_, cmd := press(t, m, "q")
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func containsClass(classes []string, c string) bool {
	for _, x := range classes {
		if x == c {
			return true
		}
	}
	return false
}

// collect runs cmd and any batched commands, returning non-nil messages.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}
