package params

type WebDaemonConfig struct {
	ListenerConfig
	DataDir string
	// AckCacheSize bounds the (device, timestamp) pairs remembered by the sink.
	AckCacheSize int
	// SinkRingSize is how many received features the sink keeps for inspection.
	SinkRingSize int
}

func DefaultWebListenerConfig() ListenerConfig {
	return ListenerConfig{
		Network: "tcp",
		Address: "localhost:3000",
	}
}

func DefaultWebDaemonConfig() *WebDaemonConfig {
	return &WebDaemonConfig{
		DataDir:        DefaultDatadirRoot,
		ListenerConfig: DefaultWebListenerConfig(),
		AckCacheSize:   10_000,
		SinkRingSize:   100,
	}
}

func DefaultTestWebDaemonConfig() *WebDaemonConfig {
	return &WebDaemonConfig{
		ListenerConfig: ListenerConfig{
			Network: "tcp",
			Address: "localhost:3333",
		},
		AckCacheSize: 100,
		SinkRingSize: 10,
	}
}
