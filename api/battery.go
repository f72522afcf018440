package api

// BatteryProvider reports the device battery level in [0, 1].
type BatteryProvider interface {
	BatteryLevel() (level float64, ok bool)
}

// BatteryFunc adapts a func to a BatteryProvider.
type BatteryFunc func() (float64, bool)

func (f BatteryFunc) BatteryLevel() (float64, bool) {
	return f()
}

// StaticBattery always reports the same level.
type StaticBattery float64

func (b StaticBattery) BatteryLevel() (float64, bool) {
	return float64(b), true
}
