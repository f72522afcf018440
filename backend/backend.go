/*
Package backend delivers enriched fixes to the remote collection service.

Three transports are supported: plain HTTP (the default), NATS JetStream
and MQTT. Every transport maps a transport failure to ErrUnreachable so
that callers can fall back to the pending queue without inspecting
transport-specific errors.
*/
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/rotblauer/fieldcat/catdb/pending"
	"github.com/rotblauer/fieldcat/conceptual"
	"github.com/rotblauer/fieldcat/params"
)

var ErrUnreachable = errors.New("backend unreachable")

var logger = slog.With("d", "backend")

// StatusError is a non-success response from the backend.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend status %d", e.Code)
	}
	return fmt.Sprintf("backend status %d: %s", e.Code, e.Body)
}

// IsServerError reports whether err carries a 5xx backend response.
func IsServerError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code >= 500
}

// Sender delivers pending records to the backend.
type Sender interface {
	// Reachable probes the backend, returning nil when it answers.
	Reachable(ctx context.Context) error
	// Send delivers one record. A nil error is the backend's acknowledgment.
	Send(ctx context.Context, rec *pending.Record) error
	Close() error
}

// NewSender returns the sender for cfg.Transport.
func NewSender(cfg params.DeliveryConfig, deviceID conceptual.DeviceID) (Sender, error) {
	switch cfg.Transport {
	case "", "http":
		return NewHTTPClient(cfg), nil
	case "nats":
		return DialNATS(cfg)
	case "mqtt":
		return DialMQTT(cfg, deviceID)
	}
	return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
}

// MessageID identifies a record for idempotent delivery.
// The backend deduplicates on (deviceId, timestamp).
func MessageID(rec *pending.Record) string {
	return rec.DeviceID.String() + "-" + strconv.FormatInt(rec.Location.Timestamp.UnixMilli(), 10)
}
