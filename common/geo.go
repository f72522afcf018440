package common

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// EarthRadius is the mean earth radius in meters, the same one orb/geo uses.
const EarthRadius = orb.EarthRadius

// DistanceHaversine returns the great-circle distance in meters between a and b.
func DistanceHaversine(a, b orb.Point) float64 {
	return geo.DistanceHaversine(a, b)
}

// Bearing returns the initial bearing from a to b, normalized to [0, 360).
func Bearing(a, b orb.Point) float64 {
	return NormalizeBearing(geo.Bearing(a, b))
}

// NormalizeBearing wraps any angle in degrees into [0, 360).
func NormalizeBearing(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	// Tiny negative inputs round up to exactly 360.
	if deg >= 360 {
		deg = 0
	}
	return deg
}

// BearingDelta returns the absolute smallest angle between two bearings, in [0, 180].
func BearingDelta(a, b float64) float64 {
	d := math.Abs(NormalizeBearing(a) - NormalizeBearing(b))
	if d > 180 {
		d = 360 - d
	}
	return d
}

// BlendBearing returns the circular weighted average of two bearings,
// w being the weight of a.
func BlendBearing(a, b, w float64) float64 {
	ar, br := a*math.Pi/180, b*math.Pi/180
	x := w*math.Cos(ar) + (1-w)*math.Cos(br)
	y := w*math.Sin(ar) + (1-w)*math.Sin(br)
	if x == 0 && y == 0 {
		return NormalizeBearing(a)
	}
	return NormalizeBearing(math.Atan2(y, x) * 180 / math.Pi)
}

// Destination projects a point distance meters away from p along bearing degrees.
func Destination(p orb.Point, bearing, distance float64) orb.Point {
	return geo.PointAtBearingAndDistance(p, bearing, distance)
}

// Speed returns the implied speed in m/s covering distance meters in seconds.
// Non-positive durations yield +Inf for any non-zero distance, and 0 otherwise.
func Speed(distance, seconds float64) float64 {
	if seconds <= 0 {
		if distance == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return distance / seconds
}

// Blend returns the linear interpolation of a toward b, w being the weight of a.
func Blend(a, b orb.Point, w float64) orb.Point {
	return orb.Point{
		a.Lon()*w + b.Lon()*(1-w),
		a.Lat()*w + b.Lat()*(1-w),
	}
}

// Centroid returns the arithmetic mean of the given points.
func Centroid(pts ...orb.Point) orb.Point {
	if len(pts) == 0 {
		return orb.Point{}
	}
	var lon, lat float64
	for _, p := range pts {
		lon += p.Lon()
		lat += p.Lat()
	}
	n := float64(len(pts))
	return orb.Point{lon / n, lat / n}
}

// Magnitude returns the euclidean norm of a 3-axis vector.
func Magnitude(v [3]float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}
