package controller

import (
	"context"
	"time"

	"github.com/vanderheijden86/storymap/pkg/debug"
)

// Phase is the stage of a slide transition.
type Phase int

const (
	// PhaseExit: the exit class is on and the old slide is still shown.
	PhaseExit Phase = iota
	// PhaseEnter: the new slide is rendered and the enter class is on.
	PhaseEnter
	// PhaseDone: classes are removed and navigation is accepted again.
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseExit:
		return "exit"
	case PhaseEnter:
		return "enter"
	default:
		return "done"
	}
}

// Transition is an animated move between slides. It is created by Navigate
// in PhaseExit with the navigation flag set, and moves through PhaseEnter to
// PhaseDone, pausing Delay between steps. The flag stays set for the whole
// transition.
//
// A driver either calls Run, which sleeps between phases, or calls Advance
// itself after each Delay (the terminal UI schedules tick messages).
type Transition struct {
	c     *Controller
	dir   Direction
	phase Phase
	done  chan struct{}
}

func (c *Controller) begin(d Direction) *Transition {
	t := &Transition{c: c, dir: d, phase: PhaseExit, done: make(chan struct{})}
	c.animating = true
	c.transition = t
	c.p.AddClass(t.exitClass())
	return t
}

func (t *Transition) exitClass() string {
	if t.dir == Next {
		return ClassSlideOutLeft
	}
	return ClassSlideOutRight
}

func (t *Transition) enterClass() string {
	if t.dir == Next {
		return ClassSlideInRight
	}
	return ClassSlideInLeft
}

// Direction returns the navigation direction.
func (t *Transition) Direction() Direction { return t.dir }

// Delay is the pause before each Advance.
func (t *Transition) Delay() time.Duration { return t.c.profile.delay() }

// Phase returns the current phase.
func (t *Transition) Phase() Phase {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	return t.phase
}

// Done is closed when the transition reaches PhaseDone.
func (t *Transition) Done() <-chan struct{} { return t.done }

// Advance performs the next step and reports whether another step follows.
// From PhaseExit it swaps the exit class for the enter class around a full
// render; from PhaseEnter it removes the enter class and clears the flag.
func (t *Transition) Advance() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	switch t.phase {
	case PhaseExit:
		t.c.p.RemoveClass(t.exitClass())
		t.c.render()
		t.c.p.AddClass(t.enterClass())
		t.phase = PhaseEnter
		return true
	case PhaseEnter:
		t.c.p.RemoveClass(t.enterClass())
		t.finish()
		return false
	default:
		return false
	}
}

// Cancel ends the transition at once. A transition still in PhaseExit
// renders the new slide first, so page and index never disagree.
func (t *Transition) Cancel() {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	t.cancelLocked()
}

func (t *Transition) cancelLocked() {
	switch t.phase {
	case PhaseExit:
		t.c.p.RemoveClass(t.exitClass())
		t.c.render()
	case PhaseEnter:
		t.c.p.RemoveClass(t.enterClass())
	default:
		return
	}
	debug.Log("controller: transition %s cancelled", t.dir)
	t.finish()
}

func (t *Transition) finish() {
	t.phase = PhaseDone
	t.c.animating = false
	if t.c.transition == t {
		t.c.transition = nil
	}
	close(t.done)
}

// Run drives the transition to completion, waiting Delay before each step.
// If ctx ends first the transition is cancelled and ctx.Err is returned.
func (t *Transition) Run(ctx context.Context) error {
	timer := time.NewTimer(t.Delay())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			t.Cancel()
			return ctx.Err()
		case <-t.done:
			return nil
		case <-timer.C:
			if !t.Advance() {
				return nil
			}
			timer.Reset(t.Delay())
		}
	}
}

// Wait blocks until the transition is done or ctx ends.
func (t *Transition) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
