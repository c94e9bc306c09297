package models

import (
	"fmt"
	"math"

	"github.com/mmcloughlin/geohash"
)

const (
	// EarthRadiusNM радиус Земли в морских милях
	EarthRadiusNM = 3440.065
	// KMPerNM километров в морской миле
	KMPerNM = 1.852
)

// Point представляет географическую точку в градусах
type Point struct {
	Lat float64 `json:"lat" msgpack:"lat"`
	Lng float64 `json:"lng" msgpack:"lng"`
}

// Validate проверяет корректность координат.
// Движок симуляции не вызывает проверку, она нужна только на входе API.
func (p Point) Validate() error {
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("invalid latitude: %f", p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("invalid longitude: %f", p.Lng)
	}
	return nil
}

// Geohash возвращает geohash для точки с заданной точностью
func (p Point) Geohash(precision int) string {
	return geohash.EncodeWithPrecision(p.Lat, p.Lng, uint(precision))
}

// IsInBounds проверяет, находится ли точка в границах
func (p Point) IsInBounds(sw, ne Point) bool {
	return p.Lat >= sw.Lat && p.Lat <= ne.Lat &&
		p.Lng >= sw.Lng && p.Lng <= ne.Lng
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }

func toDegrees(rad float64) float64 { return rad * 180 / math.Pi }

// DistanceNM computes the great-circle distance between two points in
// nautical miles using the haversine formula.
func DistanceNM(p1, p2 Point) float64 {
	lat1 := toRadians(p1.Lat)
	lat2 := toRadians(p2.Lat)
	dLat := lat2 - lat1
	dLng := toRadians(p2.Lng - p1.Lng)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusNM * c
}

// LerpPoint interpolates latitude and longitude independently. t is not
// clamped; callers clamp to [0,1] when overshoot is unwanted.
func LerpPoint(p1, p2 Point, t float64) Point {
	return Point{
		Lat: p1.Lat*(1-t) + p2.Lat*t,
		Lng: p1.Lng*(1-t) + p2.Lng*t,
	}
}

// Bearing returns the initial bearing from p1 to p2 in degrees [0,360).
// Identical points yield 0.
func Bearing(p1, p2 Point) float64 {
	if p1 == p2 {
		return 0
	}

	lat1 := toRadians(p1.Lat)
	lat2 := toRadians(p2.Lat)
	dLng := toRadians(p2.Lng - p1.Lng)

	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)

	brng := math.Mod(toDegrees(math.Atan2(y, x))+360, 360)
	if brng >= 360 {
		brng = 0
	}
	return brng
}

// Bounds представляет географические границы
type Bounds struct {
	Southwest Point `json:"sw"`
	Northeast Point `json:"ne"`
}

// Validate проверяет корректность границ
func (b Bounds) Validate() error {
	if err := b.Southwest.Validate(); err != nil {
		return fmt.Errorf("southwest: %w", err)
	}
	if err := b.Northeast.Validate(); err != nil {
		return fmt.Errorf("northeast: %w", err)
	}
	if b.Southwest.Lat > b.Northeast.Lat {
		return fmt.Errorf("southwest latitude must be less than northeast latitude")
	}
	if b.Southwest.Lng > b.Northeast.Lng {
		return fmt.Errorf("southwest longitude must be less than northeast longitude")
	}
	return nil
}

// Contains проверяет, содержится ли точка в границах
func (b Bounds) Contains(point Point) bool {
	return point.IsInBounds(b.Southwest, b.Northeast)
}

// Center возвращает центральную точку границ
func (b Bounds) Center() Point {
	return Point{
		Lat: (b.Southwest.Lat + b.Northeast.Lat) / 2,
		Lng: (b.Southwest.Lng + b.Northeast.Lng) / 2,
	}
}
