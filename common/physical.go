package common

// All units are in metric:
// - Speed is in m/s
// - Distance is in meters
// - Time is in seconds
// - Acceleration is in m/s^2

const Gravity = 9.80665

const SpeedOfWalkingMin = 0.42 // or 1.5 km/h or 1 mph
const SpeedOfWalkingMax = 1.4  // or 5 km/h
const SpeedOfRunningMax = 5.56 // or 12 mph or 20 km/h
const SpeedOfCityDriving = 13.9

// SpeedImpossible is roughly 1000 km/h. Nothing a field agent carries goes faster.
const SpeedImpossible = 278.0
