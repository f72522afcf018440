package stream

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/rotblauer/fieldcat/common"
)

// tickScanMeter logs read throughput of a fix stream on a ticker.
type tickScanMeter struct {
	mu         sync.Mutex
	label      time.Time // time of the last fix read
	interval   time.Duration
	started    time.Time
	ticker     *time.Ticker
	done       chan struct{}
	countMeter metrics.Meter
	sizeMeter  metrics.Meter
}

func newTickScanMeter(interval time.Duration) *tickScanMeter {
	// Meters are no-ops unless the package is globally enabled.
	metrics.Enabled = true

	rl := &tickScanMeter{
		interval:   interval,
		started:    time.Now(),
		ticker:     time.NewTicker(interval),
		done:       make(chan struct{}),
		countMeter: metrics.NewMeter(),
		sizeMeter:  metrics.NewMeter(),
	}
	go rl.run()
	return rl
}

func (rl *tickScanMeter) mark(label time.Time, data []byte) {
	rl.mu.Lock()
	rl.label = label
	rl.mu.Unlock()
	rl.countMeter.Mark(1)
	rl.sizeMeter.Mark(int64(len(data)))
}

func (rl *tickScanMeter) run() {
	for {
		select {
		case <-rl.done:
			return
		case <-rl.ticker.C:
			rl.log()
		}
	}
}

func (rl *tickScanMeter) count() int64 {
	return rl.countMeter.Snapshot().Count()
}

func (rl *tickScanMeter) log() {
	countSnap := rl.countMeter.Snapshot()
	sizeSnap := rl.sizeMeter.Snapshot()
	rl.mu.Lock()
	last := rl.label
	rl.mu.Unlock()

	slog.Info("Read fixes", "n", humanize.Comma(countSnap.Count()),
		"read.last", last.Format(time.DateTime),
		"fps", common.DecimalToFixed(countSnap.Rate1(), 0),
		"bps", humanize.Bytes(uint64(sizeSnap.Rate1())),
		"total.bytes", humanize.Bytes(uint64(sizeSnap.Count())),
		"running", time.Since(rl.started).Round(time.Second))
}

func (rl *tickScanMeter) stop() {
	if rl == nil || rl.ticker == nil {
		return
	}
	rl.ticker.Stop()
	close(rl.done)
	rl.log()
	rl.countMeter.Stop()
	rl.sizeMeter.Stop()
}
