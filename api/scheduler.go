package api

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rotblauer/fieldcat/conceptual"
	"github.com/rotblauer/fieldcat/types/fix"
)

// Job is one periodic trigger: a pass over Reading and a delivery attempt.
type Job struct {
	ID      string
	Reading Reading
	RouteID conceptual.RouteID
	Payload []byte
}

// JobResult is reported for every job the scheduler runs.
type JobResult struct {
	Job     Job
	Result  fix.FusedResult
	Outcome Outcome
	Err     error
}

// Scheduler runs jobs one at a time through a single-slot queue.
// A job triggered while another is waiting replaces it; the older one is dropped.
type Scheduler struct {
	agent   *Agent
	slot    chan Job
	mu      sync.Mutex
	dropped atomic.Uint64
	// OnResult, if set, is called after each job from the Run goroutine.
	OnResult func(JobResult)
	logger   *slog.Logger
}

func NewScheduler(agent *Agent) *Scheduler {
	return &Scheduler{
		agent:  agent,
		slot:   make(chan Job, 1),
		logger: slog.With("d", "scheduler"),
	}
}

// Trigger queues job without blocking, reporting whether a waiting job was replaced.
func (s *Scheduler) Trigger(job Job) (replaced bool) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case s.slot <- job:
		return false
	default:
	}
	select {
	case old := <-s.slot:
		s.dropped.Add(1)
		s.logger.Warn("Dropping stale trigger", "dropped", old.ID, "time", old.Reading.Fix.Timestamp)
		replaced = true
	default:
	}
	// Only producers fill the slot, and they hold mu.
	s.slot <- job
	return replaced
}

// Dropped returns the number of jobs replaced before they ran.
func (s *Scheduler) Dropped() uint64 {
	return s.dropped.Load()
}

// Run consumes jobs until ctx is done. A job still waiting at that point is
// run before Run returns, detached from ctx, so it is delivered or persisted.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.flush(context.WithoutCancel(ctx))
			return ctx.Err()
		case job := <-s.slot:
			if ctx.Err() != nil {
				// Both cases were ready; the job still gets its pass.
				s.run(context.WithoutCancel(ctx), job)
				continue
			}
			s.run(ctx, job)
		}
	}
}

func (s *Scheduler) flush(ctx context.Context) {
	s.mu.Lock()
	var job Job
	var ok bool
	select {
	case job, ok = <-s.slot:
	default:
	}
	s.mu.Unlock()
	if ok {
		s.logger.Info("Flushing waiting trigger", "job", job.ID)
		s.run(ctx, job)
	}
}

func (s *Scheduler) run(ctx context.Context, job Job) {
	out := JobResult{Job: job, Outcome: OutcomeDropped}
	out.Result, out.Err = s.agent.Process(ctx, job.Reading)
	if out.Err == nil {
		out.Outcome, out.Err = s.agent.SendLocationToServer(ctx, out.Result, job.RouteID, job.Payload)
	}
	if out.Err != nil {
		s.logger.Error("Job failed", "job", job.ID, "outcome", out.Outcome, "error", out.Err)
	}
	if s.OnResult != nil {
		s.OnResult(out)
	}
}
