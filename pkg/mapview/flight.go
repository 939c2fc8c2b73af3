package mapview

import (
	"math"
	"time"

	"github.com/vanderheijden86/storymap/pkg/geo"
)

// DefaultFlightDuration is how long a FlyTo animation lasts.
const DefaultFlightDuration = 1200 * time.Millisecond

type flight struct {
	from  Camera
	to    Camera
	start time.Time
	dur   time.Duration
}

// FlyTo starts an eased camera move. The target zoom is clamped to the zoom
// range. With a zero flight duration the camera jumps.
func (c *Canvas) FlyTo(f FlyTo) {
	to := Camera{Center: f.Center, Zoom: c.clampZoom(f.Zoom)}
	if c.flightDur <= 0 {
		c.Jump(to)
		return
	}
	c.flight = &flight{from: c.camera, to: to, start: c.now(), dur: c.flightDur}
}

// Flying reports whether a camera flight is in progress.
func (c *Canvas) Flying() bool { return c.flight != nil }

// Step advances the camera flight to now and reports whether the flight is
// still running.
func (c *Canvas) Step(now time.Time) bool {
	f := c.flight
	if f == nil {
		return false
	}
	t := float64(now.Sub(f.start)) / float64(f.dur)
	if t >= 1 {
		c.camera = f.to
		c.flight = nil
		return false
	}
	if t < 0 {
		t = 0
	}
	c.camera = interpolate(f.from, f.to, easeInOut(t))
	return true
}

// Finish completes a running flight immediately.
func (c *Canvas) Finish() {
	if c.flight != nil {
		c.camera = c.flight.to
		c.flight = nil
	}
}

func easeInOut(t float64) float64 {
	return t * t * (3 - 2*t)
}

// interpolate moves in normalized Mercator space so a flight follows the same
// path a slippy map would draw.
func interpolate(a, b Camera, t float64) Camera {
	au, av := a.Center.Unit()
	bu, bv := b.Center.Unit()
	// take the short way around the antimeridian
	if d := bu - au; d > 0.5 {
		bu--
	} else if d < -0.5 {
		bu++
	}
	u := au + (bu-au)*t
	v := av + (bv-av)*t
	u -= math.Floor(u)
	return Camera{
		Center: geo.FromUnit(u, v),
		Zoom:   a.Zoom + (b.Zoom-a.Zoom)*t,
	}
}
