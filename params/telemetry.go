package params

type TelemetryConfig struct {
	// RingSize bounds the in-memory metric window.
	RingSize int
	// Disabled skips the durable log entirely.
	Disabled bool
}

func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		RingSize: 50,
	}
}
