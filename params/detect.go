package params

import "time"

// ContextDetectorConfig holds the thresholds the context detector classifies with.
// Accelerations are in m/s^2 with gravity removed, rotation in rad/s, speeds in m/s.
type ContextDetectorConfig struct {
	AccelWindow    int
	GyroWindow     int
	PositionWindow int

	// UpdateInterval rate-limits context changes.
	UpdateInterval time.Duration

	StationaryAccelMean float64
	WalkingAccelMean    float64
	VehicleAccelMean    float64
	LowVarianceStd      float64
	HighVarianceStd     float64

	GyroHigh float64
	GyroLow  float64
	// CalmAccelMean bounds the acceleration mean under which low rotation
	// turns a walking classification into stationary.
	CalmAccelMean float64

	StationarySpeed float64
	WalkingSpeed    float64
	VehicleSpeed    float64

	Indoor IndoorWeights

	// FeedBuffer is the capacity of the sensor sample channel.
	FeedBuffer int
}

// IndoorWeights adjusts an indoor confidence score in [0, 100].
type IndoorWeights struct {
	Base      int
	Threshold int

	PoorAccuracy       float64
	PoorAccuracyPoints int
	GoodAccuracy       float64
	GoodAccuracyPoints int
	GPSDisabledPoints  int

	RadiosMany       int
	RadiosManyPoints int
	RadiosSome       int
	RadiosSomePoints int
	RadiosFew        int
	RadiosFewPoints  int

	WeakSignalDBM    float64
	WeakSignalPoints int
}

func DefaultContextDetectorConfig() ContextDetectorConfig {
	return ContextDetectorConfig{
		AccelWindow:    5,
		GyroWindow:     5,
		PositionWindow: 3,
		UpdateInterval: 3 * time.Second,

		StationaryAccelMean: 0.3,
		WalkingAccelMean:    1.5,
		VehicleAccelMean:    1.0,
		LowVarianceStd:      0.5,
		HighVarianceStd:     1.0,

		GyroHigh:      1.0,
		GyroLow:       0.05,
		CalmAccelMean: 1.0,

		StationarySpeed: 0.5,
		WalkingSpeed:    2.0,
		VehicleSpeed:    5.0,

		Indoor: IndoorWeights{
			Base:      50,
			Threshold: 70,

			PoorAccuracy:       30,
			PoorAccuracyPoints: 15,
			GoodAccuracy:       10,
			GoodAccuracyPoints: -20,
			GPSDisabledPoints:  10,

			RadiosMany:       8,
			RadiosManyPoints: 20,
			RadiosSome:       4,
			RadiosSomePoints: 10,
			RadiosFew:        2,
			RadiosFewPoints:  -15,

			WeakSignalDBM:    -75,
			WeakSignalPoints: 10,
		},

		FeedBuffer: 64,
	}
}
