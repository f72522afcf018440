package fuse

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/rotblauer/fieldcat/common"
	"github.com/rotblauer/fieldcat/types/motion"
)

// correct applies context-specific adjustments to a measurement
// before it enters the filter.
func (f *Filter) correct(p orb.Point, acc, speed float64, ctx motion.Context) orb.Point {
	hist := f.history.Get()
	pts := make([]orb.Point, len(hist))
	for i, h := range hist {
		pts[i] = h.Point()
	}

	switch ctx {
	case motion.ContextStationary:
		return f.correctStationary(p, acc, pts)
	case motion.ContextIndoor:
		return f.correctIndoor(p, pts)
	case motion.ContextVehicle:
		return f.correctVehicle(p, speed, pts)
	}
	return p
}

// correctStationary anchors jitter to the recent average.
func (f *Filter) correctStationary(p orb.Point, acc float64, hist []orb.Point) orb.Point {
	if len(hist) == 0 || acc >= f.cfg.StationaryBlendMaxAccuracy {
		return p
	}
	return common.Blend(p, common.Centroid(hist...), f.cfg.StationaryBlendWeight)
}

// correctIndoor pulls a point that breaks an established heading
// toward the extrapolated trend.
func (f *Filter) correctIndoor(p orb.Point, hist []orb.Point) orb.Point {
	if len(hist) < 3 {
		return p
	}
	a, b, c := hist[len(hist)-3], hist[len(hist)-2], hist[len(hist)-1]
	b1, b2 := common.Bearing(a, b), common.Bearing(b, c)
	if common.BearingDelta(b1, b2) >= f.cfg.IndoorTrendMaxDelta {
		return p
	}
	dist := common.DistanceHaversine(c, p)
	if dist == 0 {
		return p
	}
	if common.BearingDelta(common.Bearing(c, p), b2) <= f.cfg.IndoorInconsistentDelta {
		return p
	}
	trend := common.Destination(c, b2, dist)
	return common.Blend(trend, p, f.cfg.IndoorTrendPull)
}

// correctVehicle halves implausibly sharp turns at speed.
func (f *Filter) correctVehicle(p orb.Point, speed float64, hist []orb.Point) orb.Point {
	if len(hist) < 2 || speed <= f.cfg.VehicleTurnMinSpeed {
		return p
	}
	a, b := hist[len(hist)-2], hist[len(hist)-1]
	dist := common.DistanceHaversine(b, p)
	if dist == 0 || a.Equal(b) {
		return p
	}
	prev, next := common.Bearing(a, b), common.Bearing(b, p)
	if common.BearingDelta(prev, next) <= f.cfg.VehicleTurnDelta {
		return p
	}
	damped := common.NormalizeBearing(prev + signedDelta(prev, next)/2)
	return common.Blend(common.Destination(b, damped, dist), p, f.cfg.VehicleTurnBlend)
}

// signedDelta returns the smallest signed rotation from a to b, in (-180, 180].
func signedDelta(a, b float64) float64 {
	d := math.Mod(b-a+540, 360) - 180
	if d == -180 {
		return 180
	}
	return d
}
