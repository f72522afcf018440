/*
Package predict dead-reckons short-horizon positions and checks new fixes
against the device's own sense of motion.
*/
package predict

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/rotblauer/fieldcat/common"
	"github.com/rotblauer/fieldcat/params"
	"github.com/rotblauer/fieldcat/types/fix"
	"github.com/rotblauer/fieldcat/types/motion"
)

type Predictor struct {
	cfg params.PredictorConfig

	mu             sync.Mutex
	lastFix        *fix.RawFix
	lastPrediction time.Time
	lastSpeed      float64
	lastBearing    float64
	hasLast        bool
	estimator      *speedEstimator

	logger *slog.Logger
}

func NewPredictor(cfg params.PredictorConfig) *Predictor {
	return &Predictor{
		cfg:       cfg,
		estimator: &speedEstimator{reset: cfg.ResetInterval},
		logger:    slog.With("d", "predict"),
	}
}

// Predict observes f and returns the position expected one horizon ahead,
// or nil when the device is too slow, has no known bearing, or was predicted
// for less than MinInterval ago.
func (p *Predictor) Predict(f fix.RawFix, ctx motion.Context) (predicted *fix.RawFix) {
	p.mu.Lock()
	defer p.mu.Unlock()

	last := p.lastFix
	defer func() {
		p.lastFix = &f
		if r := recover(); r != nil {
			p.logger.Error("Prediction failed", "error", r)
			predicted = nil
		}
	}()

	p.estimator.observe(f)

	speed, ok := p.speedOf(f, last)
	if !ok || speed < p.cfg.MinSpeed {
		return nil
	}
	bearing, ok := bearingOf(f, last)
	if !ok {
		return nil
	}
	if !p.lastPrediction.IsZero() && f.Timestamp.Sub(p.lastPrediction) < p.cfg.MinInterval {
		return nil
	}

	if p.hasLast {
		if ctx == motion.ContextVehicle && math.Abs(speed-p.lastSpeed) > p.cfg.VehicleSpeedDelta {
			speed = p.cfg.SpeedBlend*speed + (1-p.cfg.SpeedBlend)*p.lastSpeed
		}
		if common.BearingDelta(bearing, p.lastBearing) < p.cfg.BearingDelta {
			bearing = common.BlendBearing(bearing, p.lastBearing, p.cfg.BearingBlend)
		}
	}
	p.lastSpeed, p.lastBearing, p.hasLast = speed, bearing, true
	p.lastPrediction = f.Timestamp

	horizon := p.cfg.HorizonDefault
	if ctx == motion.ContextVehicle {
		horizon = p.cfg.HorizonVehicle
	}
	out := f.WithPoint(common.Destination(f.Point(), bearing, speed*horizon.Seconds()))
	out.Timestamp = f.Timestamp.Add(horizon)
	out.Speed = fix.Float(speed)
	out.Course = fix.Float(bearing)
	out.Provider = fix.ProviderPredicted
	if f.Accuracy != nil {
		out.Accuracy = fix.Float(*f.Accuracy * p.cfg.AccuracyFactor)
	}
	return &out
}

func (p *Predictor) speedOf(f fix.RawFix, last *fix.RawFix) (float64, bool) {
	if f.HasSpeed() {
		return f.SpeedOr(0), true
	}
	if s, ok := p.estimator.speed(); ok {
		return s, true
	}
	if last == nil {
		return 0, false
	}
	dt := f.Timestamp.Sub(last.Timestamp).Seconds()
	if dt <= 0 {
		return 0, false
	}
	return common.Speed(common.DistanceHaversine(last.Point(), f.Point()), dt), true
}

func bearingOf(f fix.RawFix, last *fix.RawFix) (float64, bool) {
	if f.HasCourse() {
		return f.CourseOr(0), true
	}
	if last == nil || last.Point().Equal(f.Point()) {
		return 0, false
	}
	return common.Bearing(last.Point(), f.Point()), true
}

// MotionMismatch reports whether the sensors and GPS disagree about
// whether the device is moving, comparing f to the last observed fix.
// It is false when either side is unknown.
func (p *Predictor) MotionMismatch(f fix.RawFix, ctx motion.Context, sensorMoving, sensorKnown bool) bool {
	p.mu.Lock()
	last := p.lastFix
	p.mu.Unlock()

	if !sensorKnown || last == nil {
		return false
	}
	dt := f.Timestamp.Sub(last.Timestamp).Seconds()
	if dt <= 0 {
		return false
	}
	threshold := p.cfg.MotionSpeed
	if ctx == motion.ContextIndoor {
		threshold *= p.cfg.IndoorFactor
	}
	gpsMoving := common.Speed(common.DistanceHaversine(last.Point(), f.Point()), dt) > threshold
	return gpsMoving != sensorMoving
}

// IsConsistentWithMotion is MotionMismatch gated on fix quality:
// noisy fixes are always considered consistent.
func (p *Predictor) IsConsistentWithMotion(f fix.RawFix, ctx motion.Context, sensorMoving, sensorKnown bool) bool {
	if f.AccuracyOr(math.Inf(1)) >= p.cfg.MaxMismatchAccuracy {
		return true
	}
	return !p.MotionMismatch(f, ctx, sensorMoving, sensorKnown)
}
