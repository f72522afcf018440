package motion

import (
	"encoding/json"
	"regexp"

	"github.com/rotblauer/fieldcat/common"
)

// Context is the classified motion state of the carrying device.
type Context int

const (
	ContextUnknown Context = iota
	ContextStationary
	ContextWalking
	ContextVehicle
	ContextIndoor
)

var AllContexts = []Context{
	ContextUnknown,
	ContextStationary,
	ContextWalking,
	ContextVehicle,
	ContextIndoor,
}

var (
	contextStationary = regexp.MustCompile(`(?i)stationary|still`)
	contextWalking    = regexp.MustCompile(`(?i)walk|run|foot`)
	contextVehicle    = regexp.MustCompile(`(?i)vehicle|drive|driving|automotive`)
	contextIndoor     = regexp.MustCompile(`(?i)indoor`)
)

// IsActive returns whether the context implies the device is moving.
// Indoor is ambiguous and is not considered active.
func (c Context) IsActive() bool {
	return c == ContextWalking || c == ContextVehicle
}

func (c Context) IsKnown() bool {
	return c != ContextUnknown
}

// String implements the Stringer interface.
func (c Context) String() string {
	switch c {
	case ContextStationary:
		return "Stationary"
	case ContextWalking:
		return "Walking"
	case ContextVehicle:
		return "Vehicle"
	case ContextIndoor:
		return "Indoor"
	}
	return "Unknown"
}

func FromString(str string) Context {
	switch {
	case contextIndoor.MatchString(str):
		return ContextIndoor
	case contextStationary.MatchString(str):
		return ContextStationary
	case contextWalking.MatchString(str):
		return ContextWalking
	case contextVehicle.MatchString(str):
		return ContextVehicle
	}
	return ContextUnknown
}

// InferFromSpeed maps a speed in m/s to a motion context
// using the given stationary, walking and vehicle breakpoints.
// Speeds between walking and vehicle keep the previous context when it was Vehicle.
func InferFromSpeed(speed, stationary, walking, vehicle float64, previous Context) Context {
	switch {
	case speed < stationary:
		return ContextStationary
	case speed > vehicle:
		return ContextVehicle
	case speed < walking && previous != ContextVehicle:
		return ContextWalking
	case previous == ContextVehicle:
		return ContextVehicle
	}
	return ContextWalking
}

// IsReasonableForSpeed reports whether a speed in m/s is plausible in context c.
func IsReasonableForSpeed(c Context, speed float64) bool {
	switch c {
	case ContextStationary:
		return speed < common.SpeedOfWalkingMin
	case ContextWalking:
		return speed < common.SpeedOfRunningMax
	case ContextVehicle:
		return speed < common.SpeedImpossible
	}
	return true
}

func (c Context) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Context) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var i int
		if err2 := json.Unmarshal(data, &i); err2 != nil {
			return err
		}
		*c = Context(i)
		return nil
	}
	*c = FromString(s)
	return nil
}

func (c Context) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}
