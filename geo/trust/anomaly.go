package trust

import (
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/rotblauer/fieldcat/common"
	"github.com/rotblauer/fieldcat/types/fix"
	"github.com/shopspring/decimal"
)

// anomalies holds the behavioral sub-checks which tripped for one fix.
type anomalies struct {
	impossibleSpeed bool
	found           []string
}

func (a *anomalies) add(s string) {
	a.found = append(a.found, s)
}

func (a *Assessor) behavioral(f fix.RawFix, hist []fix.RawFix) anomalies {
	out := anomalies{}
	if len(hist) > 0 {
		prev := hist[len(hist)-1]
		dt := f.Timestamp.Sub(prev.Timestamp).Seconds()
		dist := common.DistanceHaversine(prev.Point(), f.Point())
		if dt > 0 && common.Speed(dist, dt) > a.policy.MaxSpeed {
			out.impossibleSpeed = true
			out.add("impossible speed")
		}
		if f.Timestamp.Before(prev.Timestamp) {
			out.add("timestamp went backwards")
		}
	}
	if a.roundedCoordinates(f) {
		out.add("rounded coordinates")
	}
	if len(hist) >= 2 {
		p0, p1, p2 := hist[len(hist)-2].Point(), hist[len(hist)-1].Point(), f.Point()
		if a.colinear(p0, p1, p2) {
			out.add("perfectly straight track")
		}
		if a.regular(p0, p1, p2) {
			out.add("mechanically regular spacing")
		}
	}
	return out
}

// roundedCoordinates trips on coordinates with a long run of zeros in their
// fraction, or on both coordinates carrying too few decimal places.
func (a *Assessor) roundedCoordinates(f fix.RawFix) bool {
	lat := decimal.NewFromFloat(f.Latitude)
	lon := decimal.NewFromFloat(f.Longitude)
	zeros := strings.Repeat("0", a.policy.ZeroRun)
	if strings.Contains(fraction(lat), zeros) || strings.Contains(fraction(lon), zeros) {
		return true
	}
	return places(lat) <= a.policy.MinDecimals && places(lon) <= a.policy.MinDecimals
}

func fraction(d decimal.Decimal) string {
	s := d.String()
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return ""
}

func places(d decimal.Decimal) int32 {
	if e := d.Exponent(); e < 0 {
		return -e
	}
	return 0
}

func (a *Assessor) colinear(p0, p1, p2 orb.Point) bool {
	if common.DistanceHaversine(p0, p1) <= a.policy.ColinearMinDist ||
		common.DistanceHaversine(p1, p2) <= a.policy.ColinearMinDist {
		return false
	}
	dx1, dy1 := p1.Lon()-p0.Lon(), p1.Lat()-p0.Lat()
	dx2, dy2 := p2.Lon()-p1.Lon(), p2.Lat()-p1.Lat()
	if dx1 == 0 || dx2 == 0 {
		return dx1 == dx2
	}
	return math.Abs(dy1/dx1-dy2/dx2) < a.policy.ColinearEpsilon
}

func (a *Assessor) regular(p0, p1, p2 orb.Point) bool {
	d1 := common.DistanceHaversine(p0, p1)
	d2 := common.DistanceHaversine(p1, p2)
	if d1 <= a.policy.RegularMinDist || d2 <= a.policy.RegularMinDist {
		return false
	}
	return math.Abs(d1-d2)/math.Max(d1, d2) <= a.policy.RegularRatio
}
