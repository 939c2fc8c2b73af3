package mapview

import (
	"math"

	"github.com/vanderheijden86/storymap/pkg/geo"
)

// TileSize is the pixel width of one zoom-0 world tile for image output.
const TileSize = 512.0

// Viewport projects geographic coordinates onto a width×height pixel plane
// centered on a camera.
type Viewport struct {
	Width    float64
	Height   float64
	Camera   Camera
	TileSize float64
}

// NewViewport returns a viewport with the standard tile size.
func NewViewport(width, height float64, cam Camera) Viewport {
	return Viewport{Width: width, Height: height, Camera: cam, TileSize: TileSize}
}

func (v Viewport) worldSize() float64 {
	ts := v.TileSize
	if ts <= 0 {
		ts = TileSize
	}
	return ts * math.Exp2(v.Camera.Zoom)
}

// Project returns the pixel position of p. Points off screen yield positions
// outside [0, Width)×[0, Height).
func (v Viewport) Project(p geo.LngLat) (x, y float64) {
	world := v.worldSize()
	cu, cv := v.Camera.Center.Unit()
	pu, pv := p.Unit()
	du := pu - cu
	// nearest world copy
	du -= math.Round(du)
	return v.Width/2 + du*world, v.Height/2 + (pv-cv)*world
}

// Unproject is the inverse of Project.
func (v Viewport) Unproject(x, y float64) geo.LngLat {
	world := v.worldSize()
	cu, cv := v.Camera.Center.Unit()
	u := cu + (x-v.Width/2)/world
	w := cv + (y-v.Height/2)/world
	u -= math.Floor(u)
	return geo.FromUnit(u, math.Max(0, math.Min(1, w)))
}

// Contains reports whether the pixel position lies on the plane.
func (v Viewport) Contains(x, y float64) bool {
	return x >= 0 && y >= 0 && x < v.Width && y < v.Height
}

// FitBounds returns the camera that shows b inside a width×height plane with
// padding pixels on every side, capped at maxZoom.
func FitBounds(b geo.Bounds, width, height, padding, tileSize, maxZoom float64) Camera {
	if b.Empty() {
		return Camera{Center: geo.LngLat{}, Zoom: 1}
	}
	if tileSize <= 0 {
		tileSize = TileSize
	}
	minU, maxV := b.Min.Unit()
	maxU, minV := b.Max.Unit()
	spanU := math.Max(maxU-minU, 1e-9)
	spanV := math.Max(maxV-minV, 1e-9)
	availW := math.Max(width-2*padding, 1)
	availH := math.Max(height-2*padding, 1)
	zoom := math.Min(math.Log2(availW/(spanU*tileSize)), math.Log2(availH/(spanV*tileSize)))
	zoom = math.Max(0, math.Min(maxZoom, zoom))
	center := geo.FromUnit((minU+maxU)/2, (minV+maxV)/2)
	return Camera{Center: center, Zoom: zoom}
}
