package predict

import (
	"log/slog"
	"math"
	"time"

	rkalman "github.com/regnull/kalman"
	"github.com/rotblauer/fieldcat/common"
	"github.com/rotblauer/fieldcat/types/fix"
)

// speedEstimator estimates speed for fixes which don't report one.
type speedEstimator struct {
	filter   *rkalman.GeoFilter
	last     time.Time
	reset    time.Duration
	observed int
}

func newRKalmanFilter(latitude, speed, acceleration float64) *rkalman.GeoFilter {
	filter, err := rkalman.NewGeoFilter(&rkalman.GeoProcessNoise{
		// Measurements happen close together, so the earth's curvature is ignored.
		BaseLat: latitude,
		// Expected movement, meters per second.
		DistancePerSecond: speed,
		// Expected change in speed, meters per second squared.
		SpeedPerSecond: acceleration,
	})
	if err != nil {
		slog.Error("Failed to initialize Kalman filter", "error", err)
		return nil
	}
	return filter
}

func (e *speedEstimator) observe(f fix.RawFix) {
	span := f.Timestamp.Sub(e.last)
	if e.filter == nil || span > e.reset || span < 0 {
		e.filter = newRKalmanFilter(f.Latitude, math.Max(f.SpeedOr(0), common.SpeedOfWalkingMax), 0.1)
		e.last = f.Timestamp
		e.observed = 0
		return
	}
	if span == 0 {
		return
	}
	err := e.filter.Observe(span.Seconds(), &rkalman.GeoObserved{
		Lat:                f.Latitude,
		Lng:                f.Longitude,
		Altitude:           derefOr(f.Altitude, 0),
		Speed:              f.SpeedOr(0),
		SpeedAccuracy:      0.2,
		Direction:          f.CourseOr(0),
		DirectionAccuracy:  0,
		HorizontalAccuracy: f.AccuracyOr(20),
		VerticalAccuracy:   2.0,
	})
	if err != nil {
		slog.Error("Kalman.Observe failed", "error", err)
		return
	}
	e.last = f.Timestamp
	e.observed++
}

// speed returns the filter's speed estimate, and false if there is none.
func (e *speedEstimator) speed() (float64, bool) {
	if e.filter == nil || e.observed == 0 {
		return 0, false
	}
	est := e.filter.Estimate()
	if est == nil || math.IsNaN(est.Speed) || math.IsInf(est.Speed, 0) {
		return 0, false
	}
	return math.Abs(est.Speed), true
}

func derefOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
