/*
Package fuse smooths raw fixes with a context-adaptive Kalman filter
and merges simultaneous fixes from different providers.
*/
package fuse

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/paulmach/orb"
	"github.com/rotblauer/fieldcat/common"
	"github.com/rotblauer/fieldcat/params"
	"github.com/rotblauer/fieldcat/types/fix"
	"github.com/rotblauer/fieldcat/types/motion"
)

var ErrNoFixes = errors.New("no fixes to merge")

// StreakSource reports consecutive accuracy improvements and worsenings.
type StreakSource interface {
	Streaks() (improving, worsening int)
}

// State is a snapshot of the filter.
// Latitude and longitude are filtered independently with shared noise terms.
type State struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	Error            float64 `json:"error"`
	ProcessNoise     float64 `json:"processNoise"`
	MeasurementNoise float64 `json:"measurementNoise"`
	Gain             float64 `json:"gain"`
	Initialized      bool    `json:"initialized"`
}

type Filter struct {
	cfg     params.FusionConfig
	streaks StreakSource

	mu      sync.Mutex
	state   State
	history *common.RingBuffer[fix.RawFix]

	logger *slog.Logger
}

// NewFilter returns an uninitialized filter. streaks may be nil.
func NewFilter(cfg params.FusionConfig, streaks StreakSource) *Filter {
	return &Filter{
		cfg:     cfg,
		streaks: streaks,
		history: common.NewRingBuffer[fix.RawFix](cfg.HistorySize),
		logger:  slog.With("d", "fuse"),
	}
}

func (f *Filter) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// History returns the last accepted outputs, oldest first.
func (f *Filter) History() []fix.RawFix {
	return f.history.Get()
}

func (f *Filter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = State{}
	f.history.Reset()
}

// Process runs one filter step for raw in the given context.
// The first fix initializes the filter and is returned unchanged.
// A computation fault returns the previous output.
func (f *Filter) Process(raw fix.RawFix, ctx motion.Context) (out fix.RawFix) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.state.Initialized {
		f.state = State{
			Latitude:    raw.Latitude,
			Longitude:   raw.Longitude,
			Error:       f.cfg.InitialError,
			Initialized: true,
		}
		f.history.Add(raw)
		return raw
	}

	saved := f.state
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("Filter step failed, returning last output", "error", r)
			f.state = saved
			out, _ = f.history.Last()
		}
	}()

	out, err := f.step(raw, ctx)
	if err != nil {
		f.logger.Warn("Filter step rejected", "error", err)
		f.state = saved
		last, _ := f.history.Last()
		return last
	}
	f.history.Add(out)
	return out
}

func (f *Filter) step(raw fix.RawFix, ctx motion.Context) (fix.RawFix, error) {
	acc := raw.AccuracyOr(f.cfg.DefaultAccuracy)
	speed := f.speedOf(raw)

	r := math.Max(acc, f.cfg.MinAccuracy)
	if ctx == motion.ContextVehicle && speed > f.cfg.VehicleFastSpeed {
		r *= f.cfg.VehicleNoiseFactor
	}
	if ctx == motion.ContextIndoor {
		r *= f.cfg.IndoorNoiseFactor
	}
	q := f.processNoise(ctx)
	if f.streaks != nil {
		if _, worsening := f.streaks.Streaks(); worsening >= f.cfg.StreakThreshold {
			q *= f.cfg.StreakProcessFactor
			r *= f.cfg.StreakMeasurementFactor
		}
	}

	measured := f.correct(raw.Point(), acc, speed, ctx)

	s := &f.state
	s.ProcessNoise = q
	s.MeasurementNoise = r
	s.Error += q
	s.Gain = s.Error / (s.Error + r)
	s.Latitude += s.Gain * (measured.Lat() - s.Latitude)
	s.Longitude += s.Gain * (measured.Lon() - s.Longitude)
	s.Error *= 1 - s.Gain

	if math.IsNaN(s.Latitude) || math.IsNaN(s.Longitude) || math.IsInf(s.Error, 0) {
		return fix.RawFix{}, fmt.Errorf("non-finite estimate (gain=%v)", s.Gain)
	}

	out := raw.WithPoint(orb.Point{s.Longitude, s.Latitude})
	out.Accuracy = fix.Float(math.Max(acc*(1-s.Gain/2), f.cfg.MinAccuracy))
	out.Provider = fix.ProviderFused
	return out, nil
}

func (f *Filter) processNoise(ctx motion.Context) float64 {
	switch ctx {
	case motion.ContextStationary:
		return f.cfg.ProcessNoiseStationary
	case motion.ContextWalking:
		return f.cfg.ProcessNoiseWalking
	case motion.ContextVehicle:
		return f.cfg.ProcessNoiseVehicle
	case motion.ContextIndoor:
		return f.cfg.ProcessNoiseIndoor
	}
	return f.cfg.ProcessNoiseDefault
}

// speedOf prefers the reported speed, falling back to the speed implied
// by the last accepted output.
func (f *Filter) speedOf(raw fix.RawFix) float64 {
	if raw.HasSpeed() {
		return raw.SpeedOr(0)
	}
	last, ok := f.history.Last()
	if !ok {
		return 0
	}
	dt := raw.Timestamp.Sub(last.Timestamp).Seconds()
	if dt <= 0 {
		return 0
	}
	return common.Speed(common.DistanceHaversine(last.Point(), raw.Point()), dt)
}
