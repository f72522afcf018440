package backend

import (
	"encoding/base64"

	"github.com/paulmach/orb/geojson"
	"github.com/rotblauer/fieldcat/catdb/pending"
)

// Feature renders a record as the GeoJSON feature posted to the backend.
func Feature(rec *pending.Record) *geojson.Feature {
	feat := rec.FusedResult.Feature()
	feat.Properties["DeviceID"] = rec.DeviceID.String()
	if !rec.RouteID.Empty() {
		feat.Properties["RouteID"] = rec.RouteID.String()
	}
	if rec.BatteryLevel != nil {
		feat.Properties["BatteryLevel"] = *rec.BatteryLevel
	}
	if len(rec.Payload) > 0 {
		// Opaque bytes, always standard base64 regardless of content.
		feat.Properties["Payload"] = base64.StdEncoding.EncodeToString(rec.Payload)
	}
	return feat
}

// Encode marshals the record's feature.
func Encode(rec *pending.Record) ([]byte, error) {
	return Feature(rec).MarshalJSON()
}
