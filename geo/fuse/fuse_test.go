package fuse

import (
	"math/rand"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/rotblauer/fieldcat/common"
	"github.com/rotblauer/fieldcat/params"
	"github.com/rotblauer/fieldcat/types/fix"
	"github.com/rotblauer/fieldcat/types/motion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func fixAt(sec int, p orb.Point, acc float64) fix.RawFix {
	return fix.RawFix{
		Latitude:  p.Lat(),
		Longitude: p.Lon(),
		Accuracy:  fix.Float(acc),
		Timestamp: t0.Add(time.Duration(sec) * time.Second),
	}
}

type fixedStreaks struct{ improving, worsening int }

func (s fixedStreaks) Streaks() (int, int) { return s.improving, s.worsening }

func TestFilter_FirstFixUnchanged(t *testing.T) {
	f := NewFilter(params.DefaultFusionConfig(), nil)
	in := fixAt(0, orb.Point{-93.25, 44.98}, 12)
	out := f.Process(in, motion.ContextWalking)
	assert.Equal(t, in, out)
	st := f.State()
	assert.True(t, st.Initialized)
	assert.Equal(t, 1.0, st.Error)
}

func TestFilter_AccuracyBounds(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	contexts := motion.AllContexts
	for trial := 0; trial < 20; trial++ {
		f := NewFilter(params.DefaultFusionConfig(), nil)
		acc := 1 + rnd.Float64()*80
		p := orb.Point{-93.25, 44.98}
		for i := 0; i < 50; i++ {
			p = common.Destination(p, rnd.Float64()*360, rnd.Float64()*30)
			ctx := contexts[rnd.Intn(len(contexts))]
			in := fixAt(i, p, acc)
			in.Speed = fix.Float(rnd.Float64() * 30)
			out := f.Process(in, ctx)
			got := out.AccuracyOr(-1)
			require.LessOrEqual(t, got, acc, "trial %d step %d", trial, i)
			require.GreaterOrEqual(t, got, 1.0, "trial %d step %d", trial, i)
		}
	}
}

func TestFilter_KalmanStep(t *testing.T) {
	cfg := params.DefaultFusionConfig()
	f := NewFilter(cfg, nil)
	f.Process(fixAt(0, orb.Point{0, 0}, 9), motion.ContextUnknown)
	out := f.Process(fixAt(1, orb.Point{0.001, 0.001}, 9), motion.ContextUnknown)

	// error = 1 + 0.01; gain = 1.01 / (1.01 + 9)
	gain := 1.01 / 10.01
	st := f.State()
	assert.InDelta(t, gain, st.Gain, 1e-12)
	assert.InDelta(t, 0.001*gain, out.Latitude, 1e-12)
	assert.InDelta(t, 1.01*(1-gain), st.Error, 1e-12)
	assert.InDelta(t, 9*(1-gain/2), out.AccuracyOr(0), 1e-12)
	assert.Equal(t, fix.ProviderFused, out.Provider)
}

func TestFilter_NoiseAdaptation(t *testing.T) {
	cfg := params.DefaultFusionConfig()
	cases := []struct {
		name    string
		ctx     motion.Context
		speed   float64
		streaks StreakSource
		wantQ   float64
		wantR   float64
	}{
		{"walking", motion.ContextWalking, 1, nil, 0.01, 10},
		{"stationary", motion.ContextStationary, 0, nil, 0.001, 10},
		{"vehicleSlow", motion.ContextVehicle, 8, nil, 0.1, 10},
		{"vehicleFast", motion.ContextVehicle, 20, nil, 0.1, 7},
		{"indoor", motion.ContextIndoor, 0, nil, 0.005, 15},
		{"unknown", motion.ContextUnknown, 0, nil, 0.01, 10},
		{"worsening", motion.ContextWalking, 1, fixedStreaks{0, 3}, 0.008, 12},
		{"improving", motion.ContextWalking, 1, fixedStreaks{5, 0}, 0.01, 10},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := NewFilter(cfg, c.streaks)
			f.Process(fixAt(0, orb.Point{0, 0}, 10), c.ctx)
			in := fixAt(1, orb.Point{0, 0}, 10)
			in.Speed = fix.Float(c.speed)
			f.Process(in, c.ctx)
			st := f.State()
			assert.InDelta(t, c.wantQ, st.ProcessNoise, 1e-12)
			assert.InDelta(t, c.wantR, st.MeasurementNoise, 1e-12)
		})
	}
}

func TestFilter_MissingAccuracyUsesDefault(t *testing.T) {
	cfg := params.DefaultFusionConfig()
	f := NewFilter(cfg, nil)
	f.Process(fixAt(0, orb.Point{0, 0}, 5), motion.ContextWalking)
	in := fixAt(1, orb.Point{0, 0}, 0)
	in.Accuracy = nil
	out := f.Process(in, motion.ContextWalking)
	assert.InDelta(t, cfg.DefaultAccuracy, f.State().MeasurementNoise, 1e-12)
	assert.Less(t, out.AccuracyOr(0), cfg.DefaultAccuracy)
}

func TestCorrectStationary(t *testing.T) {
	f := NewFilter(params.DefaultFusionConfig(), nil)
	hist := []orb.Point{{0, 0}, {0, 0}, {0, 0}}
	got := f.correctStationary(orb.Point{0.001, 0}, 5, hist)
	assert.InDelta(t, 0.0003, got.Lon(), 1e-12)

	// Poor accuracy is left alone.
	got = f.correctStationary(orb.Point{0.001, 0}, 40, hist)
	assert.Equal(t, orb.Point{0.001, 0}, got)
}

func TestCorrectIndoor(t *testing.T) {
	f := NewFilter(params.DefaultFusionConfig(), nil)
	a := orb.Point{0, 0}
	b := common.Destination(a, 90, 5)
	c := common.Destination(b, 90, 5)
	hist := []orb.Point{a, b, c}

	// Continuing the trend is untouched.
	ahead := common.Destination(c, 95, 5)
	assert.Equal(t, ahead, f.correctIndoor(ahead, hist))

	// A jump sideways is pulled 60% toward the trend.
	side := common.Destination(c, 0, 5)
	got := f.correctIndoor(side, hist)
	trend := common.Destination(c, 90, 5)
	assert.Less(t, common.DistanceHaversine(got, trend), common.DistanceHaversine(side, trend))
	assert.InDelta(t, 0.4*common.DistanceHaversine(side, trend), common.DistanceHaversine(got, trend), 0.01)

	// No established trend, no correction.
	zig := []orb.Point{a, common.Destination(a, 0, 5), common.Destination(a, 90, 10)}
	assert.Equal(t, side, f.correctIndoor(side, zig))
}

func TestCorrectVehicle(t *testing.T) {
	f := NewFilter(params.DefaultFusionConfig(), nil)
	a := orb.Point{0, 0}
	b := common.Destination(a, 0, 20)
	hist := []orb.Point{a, b}

	turn := common.Destination(b, 90, 20)
	got := f.correctVehicle(turn, 20, hist)
	assert.NotEqual(t, turn, got)
	// Halfway between the raw point and the 45-degree damped one.
	damped := common.Destination(b, 45, 20)
	assert.InDelta(t, 0, common.DistanceHaversine(got, common.Blend(damped, turn, 0.5)), 1e-3)

	// Too slow to bother.
	assert.Equal(t, turn, f.correctVehicle(turn, 10, hist))
	// Gentle turn.
	gentle := common.Destination(b, 30, 20)
	assert.Equal(t, gentle, f.correctVehicle(gentle, 20, hist))
}

func TestSignedDelta(t *testing.T) {
	assert.Equal(t, 90.0, signedDelta(0, 90))
	assert.Equal(t, -90.0, signedDelta(0, 270))
	assert.Equal(t, 20.0, signedDelta(350, 10))
	assert.Equal(t, 180.0, signedDelta(0, 180))
}

func TestMerge(t *testing.T) {
	cfg := params.DefaultFusionConfig()
	f := NewFilter(cfg, nil)

	_, err := f.Merge(nil, motion.ContextUnknown)
	assert.ErrorIs(t, err, ErrNoFixes)

	gps := fixAt(0, orb.Point{0, 0}, 5)
	gps.Provider = fix.ProviderGPS
	net := fixAt(1, orb.Point{0.01, 0.01}, 20)
	net.Provider = fix.ProviderNetwork

	out, err := f.Merge([]fix.RawFix{gps, net}, motion.ContextWalking)
	require.NoError(t, err)
	// weights 0.2 and 0.05
	assert.InDelta(t, 0.01*0.05/0.25, out.Latitude, 1e-12)
	assert.InDelta(t, 4.0, out.AccuracyOr(0), 1e-12)
	assert.Equal(t, net.Timestamp, out.Timestamp)
	assert.Equal(t, fix.ProviderFused, out.Provider)

	indoor, err := f.Merge([]fix.RawFix{gps, net}, motion.ContextIndoor)
	require.NoError(t, err)
	// network weight boosted to 0.075
	assert.InDelta(t, 0.01*0.075/0.275, indoor.Latitude, 1e-12)
	assert.Greater(t, indoor.Latitude, out.Latitude)
}

func TestProcessAll(t *testing.T) {
	f := NewFilter(params.DefaultFusionConfig(), nil)
	out, err := f.ProcessAll([]fix.RawFix{fixAt(0, orb.Point{1, 1}, 10)}, motion.ContextUnknown)
	require.NoError(t, err)
	assert.Equal(t, 1.0, out.Latitude)
	assert.Len(t, f.History(), 1)
	f.Reset()
	assert.False(t, f.State().Initialized)
	assert.Empty(t, f.History())
}
