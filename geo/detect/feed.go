package detect

import (
	"context"
	"sync/atomic"
)

type SampleKind int

const (
	SampleAccel SampleKind = iota
	SampleGyro
	SampleEnvironment
)

// Sample is one platform sensor callback payload.
type Sample struct {
	Kind   SampleKind
	Vector Vector
	Env    Environment
}

// Feed is a bounded channel from platform sensor callbacks to the detector.
// Producers never block; samples offered to a full feed are dropped.
type Feed struct {
	ch      chan Sample
	dropped atomic.Uint64
}

func NewFeed(size int) *Feed {
	if size < 1 {
		size = 1
	}
	return &Feed{ch: make(chan Sample, size)}
}

// Offer enqueues s, returning false if the feed was full.
func (f *Feed) Offer(s Sample) bool {
	select {
	case f.ch <- s:
		return true
	default:
		f.dropped.Add(1)
		return false
	}
}

// Dropped returns the count of samples discarded on a full feed.
func (f *Feed) Dropped() uint64 {
	return f.dropped.Load()
}

func (f *Feed) Len() int {
	return len(f.ch)
}

// Run is the single consumer of feed, applying samples to the detector
// until ctx is done.
func (d *Detector) Run(ctx context.Context, feed *Feed) error {
	for {
		select {
		case <-ctx.Done():
			if feed.Dropped() > 0 {
				d.logger.Info("Sensor feed stopped", "dropped", feed.Dropped())
			}
			return ctx.Err()
		case s := <-feed.ch:
			d.apply(s)
		}
	}
}

// Drain applies every sample currently buffered in feed without blocking.
func (d *Detector) Drain(feed *Feed) int {
	n := 0
	for {
		select {
		case s := <-feed.ch:
			d.apply(s)
			n++
		default:
			return n
		}
	}
}

func (d *Detector) apply(s Sample) {
	switch s.Kind {
	case SampleAccel:
		d.AddAccel(s.Vector)
	case SampleGyro:
		d.AddGyro(s.Vector)
	case SampleEnvironment:
		d.SetEnvironment(s.Env)
	}
}
