package params

// Config aggregates every pipeline component's configuration.
type Config struct {
	DataDir  string
	DeviceID string

	Detector  ContextDetectorConfig
	Fusion    FusionConfig
	Predictor PredictorConfig
	Trust     TrustPolicy
	Telemetry TelemetryConfig
	Delivery  DeliveryConfig
}

func DefaultConfig() *Config {
	return &Config{
		DataDir:   DefaultDatadirRoot,
		Detector:  DefaultContextDetectorConfig(),
		Fusion:    DefaultFusionConfig(),
		Predictor: DefaultPredictorConfig(),
		Trust:     DefaultTrustPolicy(),
		Telemetry: DefaultTelemetryConfig(),
		Delivery:  DefaultDeliveryConfig(),
	}
}
