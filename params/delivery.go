package params

import "time"

type DeliveryConfig struct {
	// Transport is one of "http", "nats", "mqtt".
	Transport string
	// BackendURL is the http base URL, nats server URL, or mqtt broker URL.
	BackendURL string
	// Subject is the nats subject or mqtt topic fixes are published to.
	Subject string
	// Stream is the JetStream stream name.
	Stream string
	// Token is sent as X-Fieldcat-Token on http requests when set.
	Token string

	// PendingDriver is one of "bolt", "sqlite".
	PendingDriver string

	Timeout          time.Duration
	ServerErrorPause time.Duration

	AnnounceAttempts int
	AnnounceBackoff  time.Duration
}

func DefaultDeliveryConfig() DeliveryConfig {
	return DeliveryConfig{
		Transport:        "http",
		BackendURL:       "http://localhost:8080",
		Subject:          "fieldcat.locations",
		Stream:           "FIELDCAT",
		PendingDriver:    "bolt",
		Timeout:          30 * time.Second,
		ServerErrorPause: 3 * time.Second,
		AnnounceAttempts: 3,
		AnnounceBackoff:  2 * time.Second,
	}
}
