package common

import "math"

/*
https://en.wikipedia.org/wiki/Decimal_degrees

decimal places	degrees		length at equator
4		0.0001		11.1 m		individual street, large buildings
5		0.00001		1.11 m		individual trees, houses
6		0.000001	111 mm
7		0.0000001	11.1 mm		practical limit of commercial surveying
*/

const (
	// GPSPrecision4 is the precision for individual street, large buildings.
	// Real receivers report well past this.
	GPSPrecision4 = 4
	GPSPrecision5 = 5
	GPSPrecision6 = 6
	GPSPrecision7 = 7
)

// IsIntegral reports whether f has no fractional part.
func IsIntegral(f float64) bool {
	return f == math.Trunc(f)
}
