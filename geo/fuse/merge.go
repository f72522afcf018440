package fuse

import (
	"math"

	"github.com/rotblauer/fieldcat/types/fix"
	"github.com/rotblauer/fieldcat/types/motion"
	"gonum.org/v1/gonum/stat"
)

// Merge combines simultaneous fixes into one, weighting each by inverse accuracy.
// Non-gps sources get extra weight while indoors, where satellites struggle.
// The merged accuracy is the inverse of the summed inverse accuracies.
func (f *Filter) Merge(fixes []fix.RawFix, ctx motion.Context) (fix.RawFix, error) {
	switch len(fixes) {
	case 0:
		return fix.RawFix{}, ErrNoFixes
	case 1:
		return fixes[0], nil
	}

	lats := make([]float64, len(fixes))
	lons := make([]float64, len(fixes))
	weights := make([]float64, len(fixes))
	inv := 0.0
	best := 0
	for i, fx := range fixes {
		acc := math.Max(fx.AccuracyOr(f.cfg.DefaultAccuracy), f.cfg.MinAccuracy)
		inv += 1 / acc
		w := 1 / acc
		if ctx == motion.ContextIndoor && !fx.Provider.IsPrimary() {
			w *= f.cfg.IndoorNetworkWeight
		}
		lats[i], lons[i], weights[i] = fx.Latitude, fx.Longitude, w
		if w > weights[best] {
			best = i
		}
	}

	out := fixes[best]
	out.Latitude = stat.Mean(lats, weights)
	out.Longitude = stat.Mean(lons, weights)
	out.Accuracy = fix.Float(1 / inv)
	out.Provider = fix.ProviderFused
	for _, fx := range fixes {
		if fx.Timestamp.After(out.Timestamp) {
			out.Timestamp = fx.Timestamp
		}
	}
	return out, nil
}

// ProcessAll merges simultaneous fixes and runs one filter step on the result.
func (f *Filter) ProcessAll(fixes []fix.RawFix, ctx motion.Context) (fix.RawFix, error) {
	merged, err := f.Merge(fixes, ctx)
	if err != nil {
		return fix.RawFix{}, err
	}
	return f.Process(merged, ctx), nil
}
