package fix

import (
	"strings"

	"github.com/paulmach/orb/geojson"
	"github.com/rotblauer/fieldcat/types/motion"
)

// TrustAssessment is the spoofing verdict for one fix.
type TrustAssessment struct {
	IsSuspicious bool     `json:"isSuspicious" yaml:"isSuspicious"`
	Reasons      []string `json:"reasons,omitempty" yaml:"reasons,omitempty"`
	Score        int      `json:"suspicionScore" yaml:"suspicionScore"`
}

// Audit joins the reasons into a single human-readable line.
func (t TrustAssessment) Audit() string {
	return strings.Join(t.Reasons, "; ")
}

// FusedResult is the enriched output of one pipeline pass.
type FusedResult struct {
	Location  RawFix          `json:"fusedLocation" yaml:"fusedLocation"`
	IsMoving  bool            `json:"isMoving" yaml:"isMoving"`
	Context   motion.Context  `json:"movementContext" yaml:"movementContext"`
	Trust     TrustAssessment `json:"trust" yaml:"trust"`
	Predicted *RawFix         `json:"predicted,omitempty" yaml:"predicted,omitempty"`
}

// Feature renders the result as a GeoJSON feature carrying
// the enrichment in its properties.
func (r FusedResult) Feature() *geojson.Feature {
	feat := r.Location.Feature()
	feat.Properties["IsMoving"] = r.IsMoving
	feat.Properties["Context"] = r.Context.String()
	feat.Properties["Suspicious"] = r.Trust.IsSuspicious
	feat.Properties["SuspicionScore"] = r.Trust.Score
	if len(r.Trust.Reasons) > 0 {
		feat.Properties["Audit"] = r.Trust.Audit()
	}
	if r.Predicted != nil {
		feat.Properties["PredictedLon"] = r.Predicted.Longitude
		feat.Properties["PredictedLat"] = r.Predicted.Latitude
	}
	return feat
}
