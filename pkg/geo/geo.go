// Package geo holds geographic primitives shared by the story model, the map
// canvas and the exporters.
//
// Coordinates are WGS84 longitude/latitude (EPSG:4326). Projection to Web
// Mercator (EPSG:3857) goes through github.com/wroge/wgs84 so every renderer
// places points identically.
package geo

import (
	"math"
	"sync"

	"github.com/wroge/wgs84"
)

// MaxMercatorLat is the latitude limit of the Web Mercator square.
const MaxMercatorLat = 85.05112878

// EarthRadius is the WGS84 semi-major axis in meters.
const EarthRadius = 6378137.0

// MercatorExtent is half the width of the Web Mercator square in meters.
const MercatorExtent = math.Pi * EarthRadius

// LngLat is a longitude/latitude pair in degrees.
type LngLat struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

var (
	toMercatorOnce sync.Once
	toMercator     func(a, b, c float64) (float64, float64, float64)
)

func mercatorTransform() func(a, b, c float64) (float64, float64, float64) {
	toMercatorOnce.Do(func() {
		toMercator = wgs84.EPSG().Transform(4326, 3857)
	})
	return toMercator
}

// Mercator projects p to EPSG:3857 meters. Latitude is clamped to the
// Mercator square so polar points stay finite.
func (p LngLat) Mercator() (x, y float64) {
	lat := math.Max(-MaxMercatorLat, math.Min(MaxMercatorLat, p.Lat))
	x, y, _ = mercatorTransform()(p.Lon, lat, 0)
	return x, y
}

// Unit returns p in normalized world coordinates: x and y in [0, 1] with the
// origin at the north-west corner, the layout used by slippy-map tiles.
func (p LngLat) Unit() (u, v float64) {
	x, y := p.Mercator()
	return x/(2*MercatorExtent) + 0.5, 0.5 - y/(2*MercatorExtent)
}

// FromUnit is the inverse of Unit.
func FromUnit(u, v float64) LngLat {
	lon := (u - 0.5) * 360
	n := math.Pi * (1 - 2*v)
	lat := math.Atan(math.Sinh(n)) * 180 / math.Pi
	return LngLat{Lon: lon, Lat: lat}
}

// Bounds is a longitude/latitude bounding box.
type Bounds struct {
	Min   LngLat
	Max   LngLat
	valid bool
}

// Extend grows b to include p.
func (b *Bounds) Extend(p LngLat) {
	if !b.valid {
		b.Min, b.Max, b.valid = p, p, true
		return
	}
	b.Min.Lon = math.Min(b.Min.Lon, p.Lon)
	b.Min.Lat = math.Min(b.Min.Lat, p.Lat)
	b.Max.Lon = math.Max(b.Max.Lon, p.Lon)
	b.Max.Lat = math.Max(b.Max.Lat, p.Lat)
}

// Empty reports whether no point was added.
func (b Bounds) Empty() bool { return !b.valid }
