package influxdb

import (
	"errors"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rotblauer/fieldcat/conceptual"
	"github.com/rotblauer/fieldcat/params"
	"github.com/rotblauer/fieldcat/telemetry"
)

var ErrNotConfigured = errors.New("influxdb not configured")

// Point maps one pipeline metric to an InfluxDB point.
func Point(deviceID conceptual.DeviceID, m telemetry.Metric) *write.Point {
	p := influxdb2.NewPointWithMeasurement("fieldcat_pass").
		SetTime(m.Timestamp).
		AddTag("device", deviceID.String()).
		AddTag("context", m.Context.String()).
		AddField("original_accuracy", m.OriginalAccuracy).
		AddField("final_accuracy", m.FinalAccuracy).
		AddField("improvement", m.Improvement).
		AddField("processing_ms", m.ProcessingTimeMs)
	if m.WasSuspicious {
		p.AddField("suspicious", 1)
		p.AddField("reason", m.Reason)
	} else {
		p.AddField("suspicious", 0)
	}
	return p
}

// ExportMetrics posts metrics to an InfluxDB Write API.
// Because it accepts a slice, use batches. The Write API will buffer and flush.
// The last error encountered is returned.
func ExportMetrics(cfg params.InfluxConfig, deviceID conceptual.DeviceID, metrics []telemetry.Metric) error {
	if cfg.URL == "" || cfg.Bucket == "" {
		return ErrNotConfigured
	}
	opts := influxdb2.DefaultOptions()
	opts.SetPrecision(time.Millisecond)
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)
	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)

	// Errors must be read before any writes; the chan is unbuffered
	// and must be drained or the writer will block.
	errorsCh := writeAPI.Errors()
	var err error
	wait := sync.WaitGroup{}
	wait.Add(1)
	go func() {
		defer wait.Done()
		for e := range errorsCh {
			if e != nil {
				err = e
			}
		}
	}()

	for _, m := range metrics {
		writeAPI.WritePoint(Point(deviceID, m))
	}
	writeAPI.Flush()
	client.Close()
	wait.Wait()
	return err
}
