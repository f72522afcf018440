package detect

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/rotblauer/fieldcat/common"
	"github.com/rotblauer/fieldcat/params"
	"github.com/rotblauer/fieldcat/types/fix"
	"github.com/rotblauer/fieldcat/types/motion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func at(sec int, lat, lon, acc float64) fix.RawFix {
	return fix.RawFix{
		Latitude:  lat,
		Longitude: lon,
		Accuracy:  fix.Float(acc),
		Timestamp: t0.Add(time.Duration(sec) * time.Second),
	}
}

func TestDetector_StationaryStream(t *testing.T) {
	defer common.SlogResetLevel(slog.LevelWarn)()
	d := NewDetector(params.DefaultContextDetectorConfig())

	// ~0.5m of jitter, one fix per second.
	jitter := []float64{0, 0.000003, -0.000002, 0.000004, -0.000001, 0.000002, 0}
	var got motion.Context
	for i, j := range jitter {
		got = d.Update(at(i, 44.98+j, -93.25-j, 5))
	}
	assert.Equal(t, motion.ContextStationary, got)
	assert.LessOrEqual(t, len(d.History()), 3)
}

func TestDetector_RateLimited(t *testing.T) {
	d := NewDetector(params.DefaultContextDetectorConfig())
	for i := 0; i < 5; i++ {
		d.AddAccel(Vector{0, 0, common.Gravity})
	}
	require.Equal(t, motion.ContextStationary, d.Update(at(0, 1, 1, 5)))

	// Violent shaking arrives, but the window hasn't elapsed.
	for i := 0; i < 5; i++ {
		d.AddAccel(Vector{3, 3, common.Gravity + 3})
	}
	assert.Equal(t, motion.ContextStationary, d.Update(at(1, 1, 1, 5)))
	assert.Equal(t, motion.ContextStationary, d.Update(at(2, 1, 1, 5)))

	// Positions are all identical, so GPS still says stationary.
	assert.Equal(t, motion.ContextStationary, d.Update(at(3, 1, 1, 5)))
}

func TestDetector_SensorClassification(t *testing.T) {
	cases := []struct {
		name  string
		accel []float64 // gravity-compensated magnitudes
		gyro  []float64
		want  motion.Context
	}{
		{"none", nil, nil, motion.ContextUnknown},
		{"still", []float64{0.1, 0.05, 0.1, 0.2, 0.1}, nil, motion.ContextStationary},
		{"walk", []float64{1.0, 1.2, 0.9, 1.1, 1.0}, nil, motion.ContextWalking},
		{"drive", []float64{2.5, 1.8, 3.0, 2.0, 2.2}, nil, motion.ContextVehicle},
		{"ambiguousSpin", []float64{0.2, 1.0, 0.4, 1.0, 0.5}, []float64{1.5, 1.5}, motion.ContextVehicle},
		{"ambiguousCalm", []float64{0.2, 1.0, 0.4, 1.0, 0.5}, []float64{0.01, 0.01}, motion.ContextStationary},
		{"ambiguous", []float64{0.2, 1.0, 0.4, 1.0, 0.5}, nil, motion.ContextWalking},
		{"walkSpinning", []float64{0.2, 1.0, 0.4, 1.0, 0.5}, []float64{3, 3, 3, 3, 3}, motion.ContextVehicle},
		{"walkModerateGyro", []float64{1.0, 1.2, 0.9, 1.1, 1.0}, []float64{0.5, 0.5}, motion.ContextWalking},
		{"briskCalmGyro", []float64{1.2, 1.3, 1.1, 1.2, 1.2}, []float64{0.01, 0.01}, motion.ContextWalking},
		{"stillSpinning", []float64{0.1, 0.05, 0.1, 0.2, 0.1}, []float64{3, 3}, motion.ContextStationary},
		{"gyroOnly", nil, []float64{2, 2}, motion.ContextVehicle},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d := NewDetector(params.DefaultContextDetectorConfig())
			for _, a := range c.accel {
				d.AddAccel(Vector{0, 0, common.Gravity + a})
			}
			for _, g := range c.gyro {
				d.AddGyro(Vector{g, 0, 0})
			}
			assert.Equal(t, c.want, d.Update(at(0, 1, 1, 15)))
		})
	}
}

func TestDetector_GPSCrossCheck(t *testing.T) {
	d := NewDetector(params.DefaultContextDetectorConfig())
	// Walking-ish accelerometer, but ~20 m/s of GPS travel.
	for i := 0; i < 5; i++ {
		d.AddAccel(Vector{0, 0, common.Gravity + 1.0})
	}
	p := orbStep(1, 1, 0)
	d.Update(at(0, p[1], p[0], 5))
	p = orbStep(1, 1, 40)
	d.positions.Add(at(2, p[1], p[0], 5))
	p = orbStep(1, 1, 80)
	assert.Equal(t, motion.ContextVehicle, d.Update(at(4, p[1], p[0], 5)))
}

func orbStep(lat, lon, meters float64) [2]float64 {
	p := common.Destination([2]float64{lon, lat}, 90, meters)
	return [2]float64{p.Lon(), p.Lat()}
}

func TestDetector_IndoorConfidence(t *testing.T) {
	cases := []struct {
		name string
		acc  float64
		env  Environment
		want int
	}{
		{"base", 20, Environment{}, 50},
		{"goodGPS", 5, Environment{}, 30},
		{"poorGPS", 45, Environment{}, 65},
		{"poorGPSDisabled", 45, Environment{GPSDisabled: true}, 75},
		{"manyWeakRadios", 45, Environment{Radio: &Radio{Count: 12, AvgSignalDBM: -80}}, 95},
		{"someRadios", 20, Environment{Radio: &Radio{Count: 5, AvgSignalDBM: -60}}, 60},
		{"fewRadios", 5, Environment{Radio: &Radio{Count: 1, AvgSignalDBM: -60}}, 15},
		{"clamped", 45, Environment{GPSDisabled: true, Radio: &Radio{Count: 20, AvgSignalDBM: -90}}, 100},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d := NewDetector(params.DefaultContextDetectorConfig())
			d.SetEnvironment(c.env)
			ctx := d.Update(at(0, 1, 1, c.acc))
			assert.Equal(t, c.want, d.IndoorConfidence())
			if c.want > 70 {
				assert.Equal(t, motion.ContextIndoor, ctx)
			} else {
				assert.NotEqual(t, motion.ContextIndoor, ctx)
			}
		})
	}
}

func TestFeed_BoundedAndRun(t *testing.T) {
	d := NewDetector(params.DefaultContextDetectorConfig())
	feed := NewFeed(2)
	assert.True(t, feed.Offer(Sample{Kind: SampleAccel, Vector: Vector{0, 0, common.Gravity}}))
	assert.True(t, feed.Offer(Sample{Kind: SampleGyro, Vector: Vector{0.01, 0, 0}}))
	assert.False(t, feed.Offer(Sample{Kind: SampleAccel}))
	assert.Equal(t, uint64(1), feed.Dropped())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- d.Run(ctx, feed) }()
	require.Eventually(t, func() bool { return feed.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	moving, known := d.SensorMoving()
	assert.True(t, known)
	assert.False(t, moving)
	assert.Equal(t, Vector{0, 0, common.Gravity}, d.LastAccel())
}

func TestDetector_Drain(t *testing.T) {
	d := NewDetector(params.DefaultContextDetectorConfig())
	feed := NewFeed(8)
	feed.Offer(Sample{Kind: SampleEnvironment, Env: Environment{GPSDisabled: true}})
	feed.Offer(Sample{Kind: SampleAccel, Vector: Vector{0, 0, common.Gravity + 2}})
	assert.Equal(t, 2, d.Drain(feed))
	_, known := d.SensorMoving()
	assert.True(t, known)
	d.Update(at(0, 1, 1, 20))
	assert.Equal(t, 60, d.IndoorConfidence())
}
