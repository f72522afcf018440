package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/rotblauer/fieldcat/app"
	"github.com/rotblauer/fieldcat/backend"
	"github.com/rotblauer/fieldcat/catdb/cache"
	"github.com/rotblauer/fieldcat/catdb/pending"
	"github.com/rotblauer/fieldcat/conceptual"
	"github.com/rotblauer/fieldcat/events"
	"github.com/rotblauer/fieldcat/geo/detect"
	"github.com/rotblauer/fieldcat/geo/fuse"
	"github.com/rotblauer/fieldcat/geo/predict"
	"github.com/rotblauer/fieldcat/geo/trust"
	"github.com/rotblauer/fieldcat/metrics"
	"github.com/rotblauer/fieldcat/params"
	"github.com/rotblauer/fieldcat/telemetry"
	"github.com/rotblauer/fieldcat/types/fix"
)

// Agent is the location pipeline of one device.
// It owns the single detector, filter and predictor of the process;
// passes are serialized, as are all pending-queue operations.
type Agent struct {
	DeviceID conceptual.DeviceID

	Detector  *detect.Detector
	Feed      *detect.Feed
	Filter    *fuse.Filter
	Predictor *predict.Predictor
	Trust     *trust.Assessor
	Telemetry *telemetry.Recorder
	Pending   pending.Store
	Sender    backend.Sender
	Battery   BatteryProvider

	config *params.Config
	device *app.Device
	dedupe func(fix.RawFix) bool

	passMu    sync.Mutex
	deliverMu sync.Mutex
	dropped   uint64

	logger *slog.Logger
}

// Options supplies the collaborators of an Agent.
// A nil Telemetry gets an in-memory recorder; nil Signals, Battery
// and Sender leave those features off.
type Options struct {
	Signals   trust.DeviceSignals
	Battery   BatteryProvider
	Telemetry *telemetry.Recorder
	Pending   pending.Store
	Sender    backend.Sender
}

func NewAgent(config *params.Config, deviceID conceptual.DeviceID, opts Options) *Agent {
	rec := opts.Telemetry
	if rec == nil {
		rec = telemetry.NewMemoryRecorder(config.Telemetry)
	}
	return &Agent{
		DeviceID:  deviceID,
		Detector:  detect.NewDetector(config.Detector),
		Feed:      detect.NewFeed(config.Detector.FeedBuffer),
		Filter:    fuse.NewFilter(config.Fusion, rec),
		Predictor: predict.NewPredictor(config.Predictor),
		Trust:     trust.NewAssessor(config.Trust, opts.Signals),
		Telemetry: rec,
		Pending:   opts.Pending,
		Sender:    opts.Sender,
		Battery:   opts.Battery,
		config:    config,
		dedupe:    cache.NewDedupePassLRUFunc(params.CacheDedupeSize),
		logger:    slog.With("d", "agent", "device", deviceID.String()),
	}
}

// Open builds an agent on the durable stores under config.DataDir
// and the configured delivery transport.
func Open(config *params.Config, opts Options) (*Agent, error) {
	device, err := app.LoadDevice(config.DataDir, conceptual.DeviceID(config.DeviceID))
	if err != nil {
		return nil, err
	}
	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.Open(filepath.Join(config.DataDir, params.TelemetryDBName), config.Telemetry)
	}
	if opts.Pending == nil {
		opts.Pending, err = pending.Open(config.Delivery.PendingDriver, PendingStorePath(config))
		if err != nil {
			opts.Telemetry.Close()
			return nil, fmt.Errorf("open pending queue: %w", err)
		}
	}
	if opts.Sender == nil {
		opts.Sender, err = backend.NewSender(config.Delivery, device.ID)
		if err != nil {
			opts.Telemetry.Close()
			opts.Pending.Close()
			return nil, err
		}
	}
	a := NewAgent(config, device.ID, opts)
	a.device = device
	if _, err := device.RestoreLastResult(); err == nil {
		a.logger.Info("Restored last known result")
	}
	a.refreshPendingGauge(context.Background())
	return a, nil
}

// PendingStorePath is where the configured pending driver keeps its file.
func PendingStorePath(config *params.Config) string {
	name := params.PendingDBName
	if config.Delivery.PendingDriver == "sqlite" || config.Delivery.PendingDriver == "sqlite3" {
		name = params.PendingSQLiteDSN
	}
	return filepath.Join(config.DataDir, name)
}

// Close persists the last known result and closes the stores and transport.
func (a *Agent) Close() error {
	var errs []error
	if a.device != nil {
		if err := a.device.PersistLastResult(); err != nil && !errors.Is(err, app.ErrNoLastResult) {
			errs = append(errs, err)
		}
	}
	if a.Telemetry != nil {
		errs = append(errs, a.Telemetry.Close())
	}
	if a.Pending != nil {
		errs = append(errs, a.Pending.Close())
	}
	if a.Sender != nil {
		errs = append(errs, a.Sender.Close())
	}
	return errors.Join(errs...)
}

// Config returns the agent's configuration.
func (a *Agent) Config() *params.Config {
	return a.config
}

// RunSensors consumes the sensor feed until ctx is done.
func (a *Agent) RunSensors(ctx context.Context) error {
	return a.Detector.Run(ctx, a.Feed)
}

// Reading is the input of one pipeline pass.
type Reading struct {
	Fix fix.RawFix
	// Extra are simultaneous fixes from other providers, fused with Fix.
	Extra []fix.RawFix
	// Signals, when set, are the device security signals reported with Fix.
	Signals trust.DeviceSignals
}

// GetFusedLocation runs one pipeline pass over raw and any simultaneous fixes.
func (a *Agent) GetFusedLocation(ctx context.Context, raw fix.RawFix, extra ...fix.RawFix) (fix.FusedResult, error) {
	return a.Process(ctx, Reading{Fix: raw, Extra: extra})
}

// Process runs one pipeline pass: context, fusion, prediction, trust, telemetry.
// It fails only on an invalid fix or a done ctx; component faults degrade
// to their last good values.
func (a *Agent) Process(ctx context.Context, r Reading) (fix.FusedResult, error) {
	if err := ctx.Err(); err != nil {
		return fix.FusedResult{}, err
	}
	if err := r.Fix.Validate(); err != nil {
		return fix.FusedResult{}, err
	}

	a.passMu.Lock()
	defer a.passMu.Unlock()
	started := time.Now()

	a.Detector.Drain(a.Feed)
	mctx := a.Detector.Update(r.Fix)

	var fused fix.RawFix
	if len(r.Extra) == 0 {
		fused = a.Filter.Process(r.Fix, mctx)
	} else {
		all := append([]fix.RawFix{r.Fix}, r.Extra...)
		merged, err := a.Filter.ProcessAll(all, mctx)
		if err != nil {
			a.logger.Warn("Failed to fuse simultaneous fixes, using primary", "count", len(all), "error", err)
			merged = a.Filter.Process(r.Fix, mctx)
		}
		fused = merged
	}

	sensorMoving, sensorKnown := a.Detector.SensorMoving()
	moving := mctx.IsActive()
	if sensorKnown {
		moving = moving || sensorMoving
	}
	mismatch := a.Predictor.MotionMismatch(fused, mctx, sensorMoving, sensorKnown)
	predicted := a.Predictor.Predict(fused, mctx)

	assessment := a.Trust.Assess(trust.Input{
		Fix:            r.Fix,
		Moving:         moving,
		MotionMismatch: mismatch,
		Signals:        r.Signals,
	})

	res := fix.FusedResult{
		Location:  fused,
		IsMoving:  moving,
		Context:   mctx,
		Trust:     assessment,
		Predicted: predicted,
	}

	m := telemetry.Metric{
		Timestamp:        r.Fix.Timestamp,
		OriginalAccuracy: r.Fix.AccuracyOr(a.config.Fusion.DefaultAccuracy),
		FinalAccuracy:    fused.AccuracyOr(a.config.Fusion.DefaultAccuracy),
		ProcessingTimeMs: float64(time.Since(started).Microseconds()) / 1000,
		Context:          mctx,
		WasSuspicious:    assessment.IsSuspicious,
		Reason:           assessment.Audit(),
	}
	m.Improvement = m.OriginalAccuracy - m.FinalAccuracy
	if err := a.Telemetry.Record(m); err != nil && !errors.Is(err, telemetry.ErrDisabled) {
		a.logger.Warn("Failed to record telemetry", "error", err)
	}
	metrics.ObservePass(m)
	if dropped := a.Feed.Dropped(); dropped > a.dropped {
		metrics.SensorSamplesDropped.Add(float64(dropped - a.dropped))
		a.dropped = dropped
	}

	cache.SetLastKnownTTL(a.DeviceID, res)
	events.FusedResultFeed.Send(res)

	a.logger.Debug("Pass complete", "context", mctx, "moving", moving,
		"accuracy", m.FinalAccuracy, "improvement", m.Improvement, "score", assessment.Score)
	return res, nil
}

// Last returns the most recent result of this agent, if any.
func (a *Agent) Last() (fix.FusedResult, bool) {
	return cache.GetLastKnown(a.DeviceID)
}

// Statistics returns telemetry statistics over the in-memory window.
func (a *Agent) Statistics() map[string]float64 {
	return a.Telemetry.Statistics()
}

// Ingest runs a pass and a delivery attempt for each fix, oldest first,
// skipping exact duplicates of recently seen fixes.
func (a *Agent) Ingest(ctx context.Context, fixes []fix.RawFix, routeID conceptual.RouteID) ([]fix.FusedResult, error) {
	out := make([]fix.FusedResult, 0, len(fixes))
	for _, f := range fixes {
		if !a.dedupe(f) {
			a.logger.Debug("Skipping duplicate fix", "time", f.Timestamp)
			continue
		}
		res, err := a.GetFusedLocation(ctx, f)
		if err != nil {
			if errors.Is(err, fix.ErrInvalidFix) {
				a.logger.Warn("Skipping invalid fix", "error", err)
				continue
			}
			return out, err
		}
		out = append(out, res)
		if a.Sender == nil || a.Pending == nil {
			continue
		}
		if _, err := a.SendLocationToServer(ctx, res, routeID, nil); err != nil {
			a.logger.Error("Delivery failed", "error", err)
		}
	}
	return out, nil
}
