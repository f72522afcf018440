package params

import "os"

// InfluxConfig addresses an InfluxDB v2 bucket for telemetry export.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// DefaultInfluxConfig reads INFLUXDB_URL, INFLUXDB_TOKEN, INFLUXDB_ORG
// and INFLUXDB_BUCKET from the environment.
func DefaultInfluxConfig() InfluxConfig {
	return InfluxConfig{
		URL:    os.Getenv("INFLUXDB_URL"),
		Token:  os.Getenv("INFLUXDB_TOKEN"),
		Org:    os.Getenv("INFLUXDB_ORG"),
		Bucket: os.Getenv("INFLUXDB_BUCKET"),
	}
}
