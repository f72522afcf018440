/*
Package trust scores fixes for spoofing and tampering.

Device signals and behavioral anomalies earn points from a policy table;
any single noisy signal stays under the decision threshold on its own.
*/
package trust

import (
	"fmt"
	"log/slog"
	"math"
	"net"
	"strings"

	"github.com/rotblauer/fieldcat/common"
	"github.com/rotblauer/fieldcat/params"
	"github.com/rotblauer/fieldcat/types/fix"
)

// Input is what a single assessment looks at.
type Input struct {
	Fix fix.RawFix
	// Moving is whether the device is physically moving.
	Moving bool
	// MotionMismatch is whether GPS and sensors disagree about movement.
	MotionMismatch bool
	// Signals overrides the assessor's device signals for this fix.
	Signals DeviceSignals
}

type Assessor struct {
	policy     params.TrustPolicy
	signals    DeviceSignals
	interfaces InterfaceLister
	history    *common.RingBuffer[fix.RawFix]
	logger     *slog.Logger
}

// NewAssessor returns an assessor using net.Interfaces for VPN adapter detection.
// signals may be nil.
func NewAssessor(policy params.TrustPolicy, signals DeviceSignals) *Assessor {
	return &Assessor{
		policy:     policy,
		signals:    signals,
		interfaces: net.Interfaces,
		history:    common.NewRingBuffer[fix.RawFix](2),
		logger:     slog.With("d", "trust"),
	}
}

// WithInterfaces replaces the interface lister.
func (a *Assessor) WithInterfaces(list InterfaceLister) *Assessor {
	a.interfaces = list
	return a
}

type scorecard struct {
	score   int
	high    bool
	reasons []string
}

func (s *scorecard) add(points int, high bool, reason string) {
	s.score += points
	s.high = s.high || high
	s.reasons = append(s.reasons, fmt.Sprintf("%s (+%d)", reason, points))
}

// Assess scores in.Fix against device signals and the recent track.
func (a *Assessor) Assess(in Input) fix.TrustAssessment {
	hist := a.history.Get()
	defer a.history.Add(in.Fix)

	signals := in.Signals
	if signals == nil {
		signals = a.signals
	}
	p := a.policy
	card := &scorecard{}

	if signals != nil {
		if a.check("mock_flag", signals.MockLocationFlag) {
			card.add(p.MockFlagPoints, true, "mock location flag")
		}
		if a.check("mock_provider", signals.MockProviderActive) {
			card.add(p.MockProviderPoints, true, "mock location provider active")
		}
		a.scorePackages(card, signals)
	}

	var found anomalies
	a.guard("behavioral", func() error {
		found = a.behavioral(in.Fix, hist)
		return nil
	})
	if len(found.found) > 0 {
		points := p.AnomalyStationaryPoint
		if in.Moving {
			points = p.AnomalyMovingPoints
		}
		card.add(points, false, "behavioral anomaly: "+strings.Join(found.found, ", "))
		if found.impossibleSpeed {
			card.add(p.ImpossibleSpeedPoints, false, fmt.Sprintf("speed beyond %.0f m/s", p.MaxSpeed))
		}
	}

	if in.MotionMismatch {
		points := p.MismatchPoints
		if in.Fix.AccuracyOr(math.Inf(1)) > p.MismatchNoisyAccuracy {
			points = p.MismatchNoisyPoints
		}
		card.add(points, false, "gps and sensor motion disagree")
	}

	if in.Fix.Accuracy != nil {
		if acc := *in.Fix.Accuracy; acc < 1 || common.IsIntegral(acc) {
			card.add(p.PerfectAccuracyPoints, false, fmt.Sprintf("suspiciously perfect accuracy %v", acc))
		}
	}

	threshold := p.Threshold
	if card.high {
		threshold = p.HighConfidenceThreshold
	}
	out := fix.TrustAssessment{
		Score:        card.score,
		IsSuspicious: card.score >= threshold,
		Reasons:      card.reasons,
	}

	if vpn := a.vpn(signals); vpn != "" {
		out.IsSuspicious = true
		out.Reasons = append(out.Reasons, "vpn active: "+vpn)
	}
	if out.IsSuspicious {
		a.logger.Warn("Suspicious fix", "score", out.Score, "audit", out.Audit())
	}
	return out
}

func (a *Assessor) scorePackages(card *scorecard, signals DeviceSignals) {
	var installed, running []string
	ok := a.guard("packages", func() (err error) {
		installed, running, err = signals.Packages()
		return err
	})
	if !ok {
		return
	}
	if hits := matchPackages(running, a.policy.SpoofingPackages); len(hits) > 0 {
		card.add(a.policy.SpoofAppRunningPoints, false, "spoofing app running: "+strings.Join(hits, ","))
		return
	}
	if hits := matchPackages(installed, a.policy.SpoofingPackages); len(hits) > 0 {
		card.add(a.policy.SpoofAppIdlePoints, false, "spoofing app installed: "+strings.Join(hits, ","))
	}
}

func (a *Assessor) vpn(signals DeviceSignals) string {
	if signals != nil && a.check("vpn_transport", signals.VPNTransport) {
		return "transport"
	}
	var name string
	a.guard("vpn_interface", func() (err error) {
		if a.interfaces == nil {
			return nil
		}
		name, err = vpnInterface(a.interfaces, a.policy.VPNInterfacePrefixes)
		return err
	})
	return name
}

// check runs a boolean signal, treating errors and panics as false.
func (a *Assessor) check(name string, fn func() (bool, error)) bool {
	var hit bool
	if !a.guard(name, func() (err error) {
		hit, err = fn()
		return err
	}) {
		return false
	}
	return hit
}

// guard runs fn, logging and swallowing errors and panics.
func (a *Assessor) guard(name string, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("Trust signal panicked", "signal", name, "error", r)
			ok = false
		}
	}()
	if err := fn(); err != nil {
		a.logger.Debug("Trust signal failed", "signal", name, "error", err)
		return false
	}
	return true
}
