package telemetry

import (
	"time"

	"github.com/rotblauer/fieldcat/common"
	"github.com/rotblauer/fieldcat/types/motion"
)

// Metric is the performance record of one pipeline pass.
type Metric struct {
	Timestamp        time.Time      `json:"timestamp" yaml:"timestamp"`
	OriginalAccuracy float64        `json:"originalAccuracy" yaml:"originalAccuracy"`
	FinalAccuracy    float64        `json:"finalAccuracy" yaml:"finalAccuracy"`
	Improvement      float64        `json:"improvement" yaml:"improvement"`
	ProcessingTimeMs float64        `json:"processingTimeMs" yaml:"processingTimeMs"`
	Context          motion.Context `json:"movementContext" yaml:"movementContext"`
	WasSuspicious    bool           `json:"wasSuspicious" yaml:"wasSuspicious"`
	Reason           string         `json:"reason,omitempty" yaml:"reason,omitempty"`
}

const (
	StatCount             = "count"
	StatMeanImprovement   = "mean_improvement"
	StatMedianImprovement = "median_improvement"
	StatMeanProcessingMs  = "mean_processing_ms"
	StatImprovedPct       = "improved_pct"
	StatSuspiciousPct     = "suspicious_pct"
)

// Summarize computes statistics over ms, overall and per motion context.
// Per-context keys are prefixed with the context name, eg. "Walking.mean_improvement".
func Summarize(ms []Metric) map[string]float64 {
	out := summarize("", ms)
	byContext := map[motion.Context][]Metric{}
	for _, m := range ms {
		byContext[m.Context] = append(byContext[m.Context], m)
	}
	for _, c := range motion.AllContexts {
		if group, ok := byContext[c]; ok {
			for k, v := range summarize(c.String()+".", group) {
				out[k] = v
			}
		}
	}
	return out
}

func summarize(prefix string, ms []Metric) map[string]float64 {
	improvements := make([]float64, 0, len(ms))
	processing := make([]float64, 0, len(ms))
	improved, suspicious := 0, 0
	for _, m := range ms {
		improvements = append(improvements, m.Improvement)
		processing = append(processing, m.ProcessingTimeMs)
		if m.Improvement > 0 {
			improved++
		}
		if m.WasSuspicious {
			suspicious++
		}
	}
	return map[string]float64{
		prefix + StatCount:             float64(len(ms)),
		prefix + StatMeanImprovement:   common.Mean(improvements),
		prefix + StatMedianImprovement: common.Median(improvements),
		prefix + StatMeanProcessingMs:  common.Mean(processing),
		prefix + StatImprovedPct:       common.Percent(improved, len(ms)),
		prefix + StatSuspiciousPct:     common.Percent(suspicious, len(ms)),
	}
}
