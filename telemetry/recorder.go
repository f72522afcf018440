/*
Package telemetry records per-fix performance metrics to a durable
append-only log and keeps a rolling window for statistics and
for the fusion filter's noise adaptation.
*/
package telemetry

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rotblauer/fieldcat/common"
	"github.com/rotblauer/fieldcat/params"
	"go.etcd.io/bbolt"
)

var ErrDisabled = errors.New("telemetry log disabled")

type Recorder struct {
	cfg  params.TelemetryConfig
	db   *bbolt.DB
	ring *common.RingBuffer[Metric]

	mu        sync.Mutex
	improving int
	worsening int
	lastFinal float64
	hasLast   bool

	logger *slog.Logger
}

// Open returns a recorder logging to the bbolt file at path.
// It never fails: if the log cannot be opened the recorder keeps
// its in-memory window and streaks, and durable recording stays
// disabled for the life of the recorder.
func Open(path string, cfg params.TelemetryConfig) *Recorder {
	r := NewMemoryRecorder(cfg)
	if cfg.Disabled || path == "" {
		return r
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err == nil {
		err = db.Update(func(tx *bbolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(params.TelemetryBucket)
			return err
		})
		if err != nil {
			db.Close()
		}
	}
	if err != nil {
		r.logger.Error("Failed to open telemetry log, recording disabled", "path", path, "error", err)
		return r
	}
	r.db = db
	return r
}

// NewMemoryRecorder returns a recorder with no durable log.
func NewMemoryRecorder(cfg params.TelemetryConfig) *Recorder {
	return &Recorder{
		cfg:    cfg,
		ring:   common.NewRingBuffer[Metric](cfg.RingSize),
		logger: slog.With("d", "telemetry"),
	}
}

// Enabled reports whether the durable log is open.
func (r *Recorder) Enabled() bool {
	return r.db != nil
}

// Record adds m to the window, updates the accuracy streaks,
// and appends m to the durable log.
func (r *Recorder) Record(m Metric) error {
	r.ring.Add(m)
	r.updateStreaks(m.FinalAccuracy)

	if r.db == nil {
		return ErrDisabled
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	err = r.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(params.TelemetryBucket)
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		return bucket.Put(metricKey(m.Timestamp, seq), b)
	})
	if err != nil {
		r.logger.Warn("Failed to append metric", "error", err)
		return fmt.Errorf("append metric: %w", err)
	}
	return nil
}

// updateStreaks compares final accuracy with the previous fix's.
// A smaller accuracy radius is an improvement.
func (r *Recorder) updateStreaks(final float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hasLast {
		r.lastFinal, r.hasLast = final, true
		return
	}
	delta := r.lastFinal - final
	r.lastFinal = final
	switch {
	case delta > 0:
		r.improving++
		r.worsening = 0
	case delta < 0:
		r.worsening++
		r.improving = 0
	}
}

// Streaks returns the current consecutive improvement and worsening counts.
func (r *Recorder) Streaks() (improving, worsening int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.improving, r.worsening
}

// Recent returns the in-memory window, oldest first.
func (r *Recorder) Recent() []Metric {
	return r.ring.Get()
}

// Statistics summarizes the in-memory window.
func (r *Recorder) Statistics() map[string]float64 {
	return Summarize(r.ring.Get())
}

// Scan walks the durable log in timestamp order until fn returns false.
func (r *Recorder) Scan(fn func(Metric) bool) error {
	if r.db == nil {
		return ErrDisabled
	}
	return r.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(params.TelemetryBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			m := Metric{}
			if err := json.Unmarshal(v, &m); err != nil {
				return fmt.Errorf("metric %x: %w", k, err)
			}
			if !fn(m) {
				return nil
			}
		}
		return nil
	})
}

func (r *Recorder) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// metricKey orders entries by timestamp, the sequence breaking ties.
func metricKey(t time.Time, seq uint64) []byte {
	k := make([]byte, 16)
	binary.BigEndian.PutUint64(k[:8], uint64(t.UnixNano()))
	binary.BigEndian.PutUint64(k[8:], seq)
	return k
}
