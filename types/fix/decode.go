package fix

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

var ErrDecodeFix = errors.New("could not decode as fix or geojson feature or feature collection")

// ScanJSONMessages reads a stream of JSON messages from an io.Reader,
// and calls onEach for each decoded message.
// If the stream is encoded as a JSON array, onEach is called for each element in the array.
// A GeoJSON FeatureCollection is a single object, and will be treated as such;
// use DecodeFixObject to handle the 'features' within.
func ScanJSONMessages(body io.Reader, onEach func(message json.RawMessage) error) error {
	buf := bufio.NewReader(body)
	peek, err := buf.Peek(1)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewBuffer(peek))
	t, err := dec.Token()
	if err != nil {
		return err
	}
	dec = json.NewDecoder(buf)
	if t == json.Delim('[') {
		if _, err := dec.Token(); err != nil {
			return err
		}
	}
	for dec.More() {
		var msg json.RawMessage
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("decode err: %T %w", err, err)
		}
		if err := onEach(msg); err != nil {
			return err
		}
	}
	return nil
}

// DecodeFixObject decodes a single JSON object into one or more fixes.
// Accepted shapes are a flat fix object, a GeoJSON Feature with a Point geometry,
// and a FeatureCollection of those, which calls onEach per feature.
func DecodeFixObject(msg json.RawMessage, onEach func(f RawFix) error) error {
	parsed := gjson.ParseBytes(msg)
	if !parsed.IsObject() {
		return fmt.Errorf("%w: want object, got %s", ErrDecodeFix, parsed.Type)
	}

	switch parsed.Get("type").String() {
	case "FeatureCollection":
		feats := parsed.Get("features")
		if !feats.Exists() {
			return errors.New("no 'features' attribute present in feature collection")
		}
		for _, f := range feats.Array() {
			if err := DecodeFixObject([]byte(f.Raw), onEach); err != nil {
				return err
			}
		}
		return nil
	case "Feature":
		f, err := decodeFeature(parsed)
		if err != nil {
			return err
		}
		return onEach(f)
	}

	f, err := decodeFlat(parsed)
	if err != nil {
		return err
	}
	return onEach(f)
}

// DecodeFixes is a convenience wrapper collecting every fix in data.
func DecodeFixes(data []byte) ([]RawFix, error) {
	var out []RawFix
	err := ScanJSONMessages(bytes.NewReader(data), func(msg json.RawMessage) error {
		return DecodeFixObject(msg, func(f RawFix) error {
			out = append(out, f)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrDecodeFix
	}
	return out, nil
}

func decodeFlat(obj gjson.Result) (RawFix, error) {
	lat := first(obj, "latitude", "lat")
	lon := first(obj, "longitude", "lon", "lng", "long")
	if !lat.Exists() || !lon.Exists() {
		return RawFix{}, fmt.Errorf("%w: missing latitude or longitude", ErrDecodeFix)
	}
	f := RawFix{
		Latitude:  lat.Float(),
		Longitude: lon.Float(),
		Accuracy:  optional(first(obj, "accuracy", "horizontalAccuracy")),
		Altitude:  optional(first(obj, "altitude", "elevation")),
		Speed:     optional(first(obj, "speed")),
		Course:    optional(first(obj, "course", "heading", "bearing")),
		Provider:  Provider(strings.ToLower(first(obj, "provider").String())),
	}
	ts, err := decodeTime(first(obj, "timestamp", "time"))
	if err != nil {
		return RawFix{}, err
	}
	f.Timestamp = ts
	return f, f.Validate()
}

func decodeFeature(obj gjson.Result) (RawFix, error) {
	geom := obj.Get("geometry")
	if t := geom.Get("type").String(); t != "Point" {
		return RawFix{}, fmt.Errorf("%w: geometry type %q", ErrDecodeFix, t)
	}
	coords := geom.Get("coordinates").Array()
	if len(coords) < 2 {
		return RawFix{}, fmt.Errorf("%w: short coordinates", ErrDecodeFix)
	}
	props := obj.Get("properties")
	f := RawFix{
		Longitude: coords[0].Float(),
		Latitude:  coords[1].Float(),
		Accuracy:  optional(first(props, "Accuracy", "accuracy")),
		Altitude:  optional(first(props, "Elevation", "Altitude", "altitude")),
		Speed:     optional(first(props, "Speed", "speed")),
		Course:    optional(first(props, "Heading", "Course", "course")),
		Provider:  Provider(strings.ToLower(first(props, "Provider", "provider").String())),
	}
	if f.Altitude == nil && len(coords) > 2 {
		f.Altitude = Float(coords[2].Float())
	}
	ts, err := decodeTime(first(props, "Time", "time", "UnixTime", "timestamp"))
	if err != nil {
		return RawFix{}, err
	}
	f.Timestamp = ts
	return f, f.Validate()
}

func first(obj gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if r := obj.Get(k); r.Exists() && r.Type != gjson.Null {
			return r
		}
	}
	return gjson.Result{}
}

func optional(r gjson.Result) *float64 {
	if r.Type != gjson.Number {
		return nil
	}
	return Float(r.Float())
}

// decodeTime accepts RFC3339 strings and unix seconds or milliseconds.
func decodeTime(r gjson.Result) (time.Time, error) {
	switch r.Type {
	case gjson.String:
		t, err := time.Parse(time.RFC3339Nano, r.String())
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidFix, err)
		}
		return t, nil
	case gjson.Number:
		n := r.Int()
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: missing timestamp", ErrInvalidFix)
}
