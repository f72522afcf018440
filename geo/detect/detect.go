package detect

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rotblauer/fieldcat/common"
	"github.com/rotblauer/fieldcat/params"
	"github.com/rotblauer/fieldcat/types/fix"
	"github.com/rotblauer/fieldcat/types/motion"
)

// Vector is a 3-axis sensor reading.
type Vector [3]float64

// Radio is a summary of a local radio network scan.
type Radio struct {
	Count        int
	AvgSignalDBM float64
}

// Environment carries platform state the indoor estimate leans on.
// A nil Radio means no scan is available.
type Environment struct {
	GPSDisabled bool
	Radio       *Radio
}

// Detector classifies the device's motion context from accelerometer and
// gyroscope windows, recent positions, and radio density.
// It is safe for concurrent use; sensor samples may arrive from any goroutine.
type Detector struct {
	cfg params.ContextDetectorConfig

	accel     *common.RingBuffer[float64]
	gyro      *common.RingBuffer[float64]
	positions *common.RingBuffer[fix.RawFix]
	history   *common.RingBuffer[motion.Context]

	mu         sync.Mutex
	current    motion.Context
	indoor     int
	lastUpdate time.Time
	lastAccel  Vector
	env        Environment

	logger *slog.Logger
}

func NewDetector(cfg params.ContextDetectorConfig) *Detector {
	return &Detector{
		cfg:       cfg,
		accel:     common.NewRingBuffer[float64](cfg.AccelWindow),
		gyro:      common.NewRingBuffer[float64](cfg.GyroWindow),
		positions: common.NewRingBuffer[fix.RawFix](cfg.PositionWindow),
		history:   common.NewRingBuffer[motion.Context](10),
		indoor:    cfg.Indoor.Base,
		logger:    slog.With("d", "detect"),
	}
}

// AddAccel records an accelerometer reading including gravity.
func (d *Detector) AddAccel(v Vector) {
	d.accel.Add(gravityCompensated(v))
	d.mu.Lock()
	d.lastAccel = v
	d.mu.Unlock()
}

// AddGyro records a rotation-rate reading in rad/s.
func (d *Detector) AddGyro(v Vector) {
	d.gyro.Add(common.Magnitude(v))
}

func (d *Detector) SetEnvironment(env Environment) {
	d.mu.Lock()
	d.env = env
	d.mu.Unlock()
}

// Current returns the last classified context.
func (d *Detector) Current() motion.Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// IndoorConfidence returns the last computed indoor confidence, in [0, 100].
func (d *Detector) IndoorConfidence() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.indoor
}

// History returns recently classified contexts, oldest first.
func (d *Detector) History() []motion.Context {
	return d.history.Get()
}

// LastAccel returns the most recent raw accelerometer sample.
func (d *Detector) LastAccel() Vector {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastAccel
}

// SensorMoving reports whether the accelerometer window says the device is moving.
// known is false when no accelerometer samples have arrived.
func (d *Detector) SensorMoving() (moving, known bool) {
	samples := d.accel.Get()
	if len(samples) == 0 {
		return false, false
	}
	mean, _ := common.MeanStd(samples)
	return mean >= d.cfg.StationaryAccelMean, true
}

// Update records the position of f and reclassifies the context, at most once
// per UpdateInterval as measured by fix timestamps. Between updates, and on any
// computation fault, the previous context is returned unchanged.
func (d *Detector) Update(f fix.RawFix) motion.Context {
	d.positions.Add(f)

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.lastUpdate.IsZero() && f.Timestamp.Sub(d.lastUpdate) < d.cfg.UpdateInterval {
		return d.current
	}

	next, indoor, err := d.classify(f)
	if err != nil {
		d.logger.Warn("Context classification failed, keeping previous", "context", d.current, "error", err)
		return d.current
	}
	if next != d.current {
		d.logger.Debug("Context changed", "from", d.current, "to", next, "indoor", indoor)
	}
	d.current = next
	d.indoor = indoor
	d.lastUpdate = f.Timestamp
	d.history.Add(next)
	return next
}

func (d *Detector) classify(f fix.RawFix) (ctx motion.Context, indoor int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered: %v", r)
		}
	}()

	ctx = d.classifySensors()
	ctx = d.crossCheckGPS(ctx)

	indoor = d.indoorConfidence(f)
	if indoor > d.cfg.Indoor.Threshold {
		ctx = motion.ContextIndoor
	}
	return ctx, indoor, nil
}

func (d *Detector) classifySensors() motion.Context {
	accel := d.accel.Get()
	gyro := d.gyro.Get()
	gyroMean, _ := common.MeanStd(gyro)

	if len(accel) == 0 {
		switch {
		case len(gyro) == 0:
			return motion.ContextUnknown
		case gyroMean < d.cfg.GyroLow:
			return motion.ContextStationary
		case gyroMean > d.cfg.GyroHigh:
			return motion.ContextVehicle
		}
		return motion.ContextUnknown
	}

	mean, std := common.MeanStd(accel)
	ctx := motion.ContextWalking
	switch {
	case mean < d.cfg.StationaryAccelMean:
		ctx = motion.ContextStationary
	case mean < d.cfg.WalkingAccelMean && std < d.cfg.LowVarianceStd:
		ctx = motion.ContextWalking
	case mean > d.cfg.VehicleAccelMean || std > d.cfg.HighVarianceStd:
		ctx = motion.ContextVehicle
	}
	if len(gyro) == 0 || ctx != motion.ContextWalking {
		return ctx
	}

	// Rotation refines a walking guess: sustained spin is a vehicle,
	// near-zero spin with little acceleration is a device at rest.
	switch {
	case gyroMean > d.cfg.GyroHigh:
		return motion.ContextVehicle
	case gyroMean < d.cfg.GyroLow && mean < d.cfg.CalmAccelMean:
		return motion.ContextStationary
	}
	return ctx
}

func (d *Detector) crossCheckGPS(sensor motion.Context) motion.Context {
	pts := d.positions.Get()
	if len(pts) < 2 {
		return sensor
	}
	a, b := pts[0], pts[len(pts)-1]
	dt := b.Timestamp.Sub(a.Timestamp).Seconds()
	if dt <= 0 {
		return sensor
	}
	speed := common.Speed(common.DistanceHaversine(a.Point(), b.Point()), dt)
	return motion.InferFromSpeed(speed,
		d.cfg.StationarySpeed, d.cfg.WalkingSpeed, d.cfg.VehicleSpeed, sensor)
}

func (d *Detector) indoorConfidence(f fix.RawFix) int {
	w := d.cfg.Indoor
	score := w.Base

	if f.Accuracy != nil && *f.Accuracy > 0 {
		switch acc := *f.Accuracy; {
		case acc > w.PoorAccuracy:
			score += w.PoorAccuracyPoints
		case acc < w.GoodAccuracy:
			score += w.GoodAccuracyPoints
		}
	}
	if d.env.GPSDisabled {
		score += w.GPSDisabledPoints
	}
	if r := d.env.Radio; r != nil {
		switch {
		case r.Count > w.RadiosMany:
			score += w.RadiosManyPoints
		case r.Count > w.RadiosSome:
			score += w.RadiosSomePoints
		case r.Count < w.RadiosFew:
			score += w.RadiosFewPoints
		}
		if r.Count > 0 && r.AvgSignalDBM <= w.WeakSignalDBM {
			score += w.WeakSignalPoints
		}
	}
	return common.Clamp(score, 0, 100)
}

func gravityCompensated(v Vector) float64 {
	m := common.Magnitude(v) - common.Gravity
	if m < 0 {
		return -m
	}
	return m
}
