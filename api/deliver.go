package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rotblauer/fieldcat/backend"
	"github.com/rotblauer/fieldcat/catdb/pending"
	"github.com/rotblauer/fieldcat/conceptual"
	"github.com/rotblauer/fieldcat/events"
	"github.com/rotblauer/fieldcat/metrics"
	"github.com/rotblauer/fieldcat/types/fix"
)

// Outcome is the result of one live delivery attempt.
type Outcome int

const (
	// OutcomeDelivered means the backend acknowledged the fix.
	OutcomeDelivered Outcome = iota
	// OutcomeQueued means the fix was persisted for a later drain.
	OutcomeQueued
	// OutcomeDropped means the fix could be neither delivered nor persisted.
	OutcomeDropped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeQueued:
		return "queued"
	case OutcomeDropped:
		return "dropped"
	}
	return "unknown"
}

var ErrNoDelivery = errors.New("delivery not configured")

// DrainReport summarizes one drain of the pending queue.
type DrainReport struct {
	Attempted int `json:"attempted" yaml:"attempted"`
	Delivered int `json:"delivered" yaml:"delivered"`
	Failed    int `json:"failed" yaml:"failed"`
	Remaining int `json:"remaining" yaml:"remaining"`
}

// SendLocationToServer delivers res, first draining older pending records.
// Any failure persists res in the pending queue; the returned error is
// non-nil only when res was dropped.
func (a *Agent) SendLocationToServer(ctx context.Context, res fix.FusedResult, routeID conceptual.RouteID, payload []byte) (Outcome, error) {
	if a.Sender == nil || a.Pending == nil {
		return OutcomeDropped, ErrNoDelivery
	}
	rec := &pending.Record{
		FusedResult: res,
		DeviceID:    a.DeviceID,
		RouteID:     routeID,
		Payload:     payload,
		CreatedAt:   time.Now().UTC(),
	}
	if a.Battery != nil {
		if level, ok := a.Battery.BatteryLevel(); ok {
			rec.BatteryLevel = &level
		}
	}

	a.deliverMu.Lock()
	defer a.deliverMu.Unlock()
	defer a.refreshPendingGauge(ctx)

	if err := a.reachable(ctx); err != nil {
		return a.enqueue(ctx, rec, err)
	}
	if _, err := a.drain(ctx); err != nil {
		return a.enqueue(ctx, rec, err)
	}
	if err := a.send(ctx, rec); err != nil {
		return a.enqueue(ctx, rec, err)
	}
	metrics.DeliveryTotal.WithLabelValues(OutcomeDelivered.String()).Inc()
	events.DeliveredFeed.Send(*rec)
	return OutcomeDelivered, nil
}

// reachable and send bound each backend call by Delivery.Timeout on its own,
// so a long drain does not eat into the live send's deadline.
func (a *Agent) reachable(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.config.Delivery.Timeout)
	defer cancel()
	return a.Sender.Reachable(ctx)
}

func (a *Agent) send(ctx context.Context, rec *pending.Record) error {
	ctx, cancel := context.WithTimeout(ctx, a.config.Delivery.Timeout)
	defer cancel()
	return a.Sender.Send(ctx, rec)
}

func (a *Agent) enqueue(ctx context.Context, rec *pending.Record, cause error) (Outcome, error) {
	// The caller's deadline may be what failed; persisting must not depend on it.
	id, err := a.Pending.Insert(context.WithoutCancel(ctx), rec)
	if err != nil {
		a.logger.Error("Failed to persist undelivered fix", "cause", cause, "error", err)
		metrics.DeliveryTotal.WithLabelValues(OutcomeDropped.String()).Inc()
		return OutcomeDropped, fmt.Errorf("persist pending: %w", err)
	}
	a.logger.Info("Queued fix for later delivery", "id", id, "cause", cause)
	metrics.DeliveryTotal.WithLabelValues(OutcomeQueued.String()).Inc()
	return OutcomeQueued, nil
}

// Drain delivers pending records oldest first.
// It is a no-op when the backend is unreachable or the queue is empty.
func (a *Agent) Drain(ctx context.Context) (DrainReport, error) {
	if a.Sender == nil || a.Pending == nil {
		return DrainReport{}, ErrNoDelivery
	}
	a.deliverMu.Lock()
	defer a.deliverMu.Unlock()
	defer a.refreshPendingGauge(ctx)

	if err := a.reachable(ctx); err != nil {
		return DrainReport{}, err
	}
	return a.drain(ctx)
}

// drain sends every pending record in insertion order, deleting each once
// acknowledged. A server error pauses and moves on to the next record;
// any other send failure aborts the drain. Callers hold deliverMu.
func (a *Agent) drain(ctx context.Context) (DrainReport, error) {
	report := DrainReport{}
	records, err := a.Pending.List(ctx, 0)
	if err != nil {
		return report, fmt.Errorf("list pending: %w", err)
	}
	if len(records) == 0 {
		return report, nil
	}
	started := time.Now()
	a.logger.Info("Draining pending fixes", "count", humanize.Comma(int64(len(records))))

	for i := range records {
		rec := records[i]
		report.Attempted++
		err := a.send(ctx, &rec)
		switch {
		case err == nil:
			report.Delivered++
			metrics.DrainedTotal.Inc()
			events.DeliveredFeed.Send(rec)
			if err := a.Pending.Delete(context.WithoutCancel(ctx), rec.ID); err != nil {
				// Acknowledged but still stored: it will be sent again.
				a.logger.Error("Failed to delete delivered record", "id", rec.ID, "error", err)
			}
		case backend.IsServerError(err):
			report.Failed++
			a.logger.Warn("Backend error, pausing drain", "id", rec.ID, "pause", a.config.Delivery.ServerErrorPause, "error", err)
			select {
			case <-ctx.Done():
				report.Remaining = len(records) - report.Delivered
				return report, ctx.Err()
			case <-time.After(a.config.Delivery.ServerErrorPause):
			}
		case errors.Is(err, backend.ErrUnreachable):
			report.Remaining = len(records) - report.Delivered
			a.logger.Warn("Drain aborted", "delivered", report.Delivered, "remaining", report.Remaining, "error", err)
			return report, err
		default:
			// Rejected by the backend; kept for inspection.
			report.Failed++
			a.logger.Warn("Backend rejected pending record", "id", rec.ID, "error", err)
		}
	}
	report.Remaining = len(records) - report.Delivered
	a.logger.Info("Drained pending fixes", "delivered", report.Delivered, "failed", report.Failed,
		"remaining", report.Remaining, "took", time.Since(started).Round(time.Millisecond))
	return report, nil
}

func (a *Agent) refreshPendingGauge(ctx context.Context) {
	if a.Pending == nil {
		return
	}
	n, err := a.Pending.Len(context.WithoutCancel(ctx))
	if err != nil {
		return
	}
	metrics.PendingRecords.Set(float64(n))
}

// PendingRecords lists the pending queue, oldest first.
func (a *Agent) PendingRecords(ctx context.Context, limit int) ([]pending.Record, error) {
	if a.Pending == nil {
		return nil, ErrNoDelivery
	}
	return a.Pending.List(ctx, limit)
}
