package params

// FusionConfig parameterizes the position filter.
type FusionConfig struct {
	InitialError float64

	// MinAccuracy floors both measurement noise and output accuracy, in meters.
	MinAccuracy float64
	// DefaultAccuracy stands in for fixes reporting no accuracy.
	DefaultAccuracy float64

	VehicleFastSpeed   float64
	VehicleNoiseFactor float64
	IndoorNoiseFactor  float64

	ProcessNoiseStationary float64
	ProcessNoiseWalking    float64
	ProcessNoiseVehicle    float64
	ProcessNoiseIndoor     float64
	ProcessNoiseDefault    float64

	// StreakThreshold consecutive worsenings damp the filter by
	// StreakProcessFactor and StreakMeasurementFactor.
	StreakThreshold         int
	StreakProcessFactor     float64
	StreakMeasurementFactor float64

	HistorySize int

	StationaryBlendMaxAccuracy float64
	StationaryBlendWeight      float64

	IndoorTrendMaxDelta     float64
	IndoorInconsistentDelta float64
	IndoorTrendPull         float64
	VehicleTurnDelta        float64
	VehicleTurnMinSpeed     float64
	VehicleTurnBlend        float64

	// IndoorNetworkWeight boosts non-gps sources while indoors when merging.
	IndoorNetworkWeight float64
}

func DefaultFusionConfig() FusionConfig {
	return FusionConfig{
		InitialError:    1.0,
		MinAccuracy:     1.0,
		DefaultAccuracy: 20.0,

		VehicleFastSpeed:   10,
		VehicleNoiseFactor: 0.7,
		IndoorNoiseFactor:  1.5,

		ProcessNoiseStationary: 0.001,
		ProcessNoiseWalking:    0.01,
		ProcessNoiseVehicle:    0.1,
		ProcessNoiseIndoor:     0.005,
		ProcessNoiseDefault:    0.01,

		StreakThreshold:         3,
		StreakProcessFactor:     0.8,
		StreakMeasurementFactor: 1.2,

		HistorySize: 3,

		StationaryBlendMaxAccuracy: 30,
		StationaryBlendWeight:      0.3,

		IndoorTrendMaxDelta:     30,
		IndoorInconsistentDelta: 45,
		IndoorTrendPull:         0.6,
		VehicleTurnDelta:        45,
		VehicleTurnMinSpeed:     15,
		VehicleTurnBlend:        0.5,

		IndoorNetworkWeight: 1.5,
	}
}
