package fix

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Provider names the source of a fix.
type Provider string

const (
	ProviderGPS       Provider = "gps"
	ProviderNetwork   Provider = "network"
	ProviderFused     Provider = "fused"
	ProviderPredicted Provider = "predicted"
)

// IsPrimary reports whether the provider is satellite positioning.
// An empty provider is assumed to be gps.
func (p Provider) IsPrimary() bool {
	return p == "" || p == ProviderGPS
}

var ErrInvalidFix = errors.New("invalid fix")

// RawFix is a single timestamped position reading.
// Optional measurements are nil when the platform did not report them.
type RawFix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Altitude  *float64  `json:"altitude,omitempty"`
	Speed     *float64  `json:"speed,omitempty"`
	Course    *float64  `json:"course,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Provider  Provider  `json:"provider,omitempty"`
}

// Float returns a pointer to f, for filling optional fields.
func Float(f float64) *float64 {
	return &f
}

func (f RawFix) Point() orb.Point {
	return orb.Point{f.Longitude, f.Latitude}
}

// WithPoint returns a copy of f located at p.
func (f RawFix) WithPoint(p orb.Point) RawFix {
	f.Longitude = p.Lon()
	f.Latitude = p.Lat()
	return f
}

// AccuracyOr returns the reported accuracy, or def when absent or not positive.
func (f RawFix) AccuracyOr(def float64) float64 {
	if f.Accuracy == nil || *f.Accuracy <= 0 || math.IsNaN(*f.Accuracy) {
		return def
	}
	return *f.Accuracy
}

// SpeedOr returns the reported speed, or def when absent or negative.
// Platforms report -1 for an unknown speed.
func (f RawFix) SpeedOr(def float64) float64 {
	if f.Speed == nil || *f.Speed < 0 || math.IsNaN(*f.Speed) {
		return def
	}
	return *f.Speed
}

// CourseOr returns the reported course in [0, 360), or def when absent or negative.
func (f RawFix) CourseOr(def float64) float64 {
	if f.Course == nil || *f.Course < 0 || math.IsNaN(*f.Course) {
		return def
	}
	return math.Mod(*f.Course, 360)
}

func (f RawFix) HasSpeed() bool {
	return f.Speed != nil && *f.Speed >= 0
}

func (f RawFix) HasCourse() bool {
	return f.Course != nil && *f.Course >= 0
}

// Validate checks coordinate ranges and the presence of a timestamp.
func (f RawFix) Validate() error {
	if math.IsNaN(f.Latitude) || f.Latitude < -90 || f.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v", ErrInvalidFix, f.Latitude)
	}
	if math.IsNaN(f.Longitude) || f.Longitude < -180 || f.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v", ErrInvalidFix, f.Longitude)
	}
	if f.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidFix)
	}
	return nil
}

// Feature renders the fix as a GeoJSON point feature.
func (f RawFix) Feature() *geojson.Feature {
	feat := geojson.NewFeature(f.Point())
	feat.Properties["Time"] = f.Timestamp.UTC().Format(time.RFC3339Nano)
	feat.Properties["UnixTime"] = f.Timestamp.Unix()
	if f.Provider != "" {
		feat.Properties["Provider"] = string(f.Provider)
	}
	if f.Accuracy != nil {
		feat.Properties["Accuracy"] = *f.Accuracy
	}
	if f.Altitude != nil {
		feat.Properties["Elevation"] = *f.Altitude
	}
	if f.Speed != nil {
		feat.Properties["Speed"] = *f.Speed
	}
	if f.Course != nil {
		feat.Properties["Heading"] = *f.Course
	}
	return feat
}
