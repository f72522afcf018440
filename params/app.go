package params

import (
	"log/slog"
	"time"

	"github.com/mitchellh/go-homedir"
)

var DefaultDatadirRoot = func() string {
	dir, err := homedir.Expand("~/.fieldcat")
	if err != nil {
		slog.Warn("Failed to expand home dir, using working directory", "error", err)
		return ".fieldcat"
	}
	return dir
}()

var (
	AppDBName        = "app.db"
	AppBucket        = []byte("app")
	AppDeviceIDKey   = []byte("device_id")
	TelemetryDBName  = "telemetry.db"
	TelemetryBucket  = []byte("metrics")
	PendingDBName    = "pending.db"
	PendingBucket    = []byte("pending")
	PendingSQLiteDSN = "pending.sqlite"
)

var (
	CacheLastKnownTTL = 7 * 24 * time.Hour
	CacheDedupeSize   = 1_000
)

// DefaultStdinMeterInterval is how often stdin read rates are logged.
var DefaultStdinMeterInterval = 5 * time.Second
