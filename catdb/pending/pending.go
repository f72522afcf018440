/*
Package pending is the durable queue of enriched fixes awaiting delivery.

Records are never mutated: they are inserted when delivery fails and
deleted once the backend acknowledges them. Scans return records in
insertion order, oldest first.
*/
package pending

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotblauer/fieldcat/conceptual"
	"github.com/rotblauer/fieldcat/types/fix"
)

var (
	ErrClosed   = errors.New("pending store closed")
	ErrNotFound = errors.New("pending record not found")
)

// Record is one undelivered fix with everything needed to deliver it later.
type Record struct {
	ID              int64 `json:"id" yaml:"id"`
	fix.FusedResult `yaml:",inline"`
	DeviceID        conceptual.DeviceID `json:"deviceId" yaml:"deviceId"`
	RouteID         conceptual.RouteID  `json:"routeId,omitempty" yaml:"routeId,omitempty"`
	BatteryLevel    *float64            `json:"batteryLevel,omitempty" yaml:"batteryLevel,omitempty"`
	// Payload is an opaque attachment passed through to the backend.
	Payload   []byte    `json:"payload,omitempty" yaml:"-"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

// Store is a durable FIFO of records keyed by an auto-incrementing id.
// Implementations serialize all operations.
type Store interface {
	// Insert persists r, assigning and returning its id.
	Insert(ctx context.Context, r *Record) (int64, error)
	// Delete removes the record with id, or returns ErrNotFound.
	Delete(ctx context.Context, id int64) error
	// List returns up to limit records oldest first; limit <= 0 means all.
	List(ctx context.Context, limit int) ([]Record, error)
	// Len returns the number of pending records.
	Len(ctx context.Context) (int, error)
	Close() error
}

// Open returns the store for driver ("bolt" or "sqlite") at path.
func Open(driver, path string) (Store, error) {
	switch driver {
	case "", "bolt":
		return OpenBolt(path)
	case "sqlite", "sqlite3":
		return OpenSQLite(path)
	}
	return nil, fmt.Errorf("unknown pending driver %q", driver)
}
