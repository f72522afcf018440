package params

import "time"

type PredictorConfig struct {
	MinSpeed    float64
	MinInterval time.Duration

	VehicleSpeedDelta float64
	SpeedBlend        float64
	BearingDelta      float64
	BearingBlend      float64

	HorizonVehicle time.Duration
	HorizonDefault time.Duration

	AccuracyFactor float64

	// ResetInterval restarts the speed estimator after a gap this long.
	ResetInterval time.Duration

	// MotionSpeed is the implied speed beyond which a fix counts as moved.
	MotionSpeed float64
	// IndoorFactor scales the motion thresholds while indoors.
	IndoorFactor float64
	// MaxMismatchAccuracy gates mismatch reports to good fixes only.
	MaxMismatchAccuracy float64
}

func DefaultPredictorConfig() PredictorConfig {
	return PredictorConfig{
		MinSpeed:    1.0,
		MinInterval: time.Second,

		VehicleSpeedDelta: 5,
		SpeedBlend:        0.7,
		BearingDelta:      15,
		BearingBlend:      0.8,

		HorizonVehicle: 2 * time.Second,
		HorizonDefault: time.Second,

		AccuracyFactor: 1.5,
		ResetInterval:  5 * time.Minute,

		MotionSpeed:         0.5,
		IndoorFactor:        2,
		MaxMismatchAccuracy: 20,
	}
}
