package conceptual

// DeviceID identifies the device carrying the field agent.
type DeviceID string

func (d DeviceID) String() string {
	return string(d)
}

func (d DeviceID) Empty() bool {
	return d == ""
}

// RouteID identifies the route the agent is working on, if any.
type RouteID string

func (r RouteID) String() string {
	return string(r)
}

func (r RouteID) Empty() bool {
	return r == ""
}
