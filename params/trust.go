package params

// TrustPolicy is the point table the trust assessor scores fixes with.
type TrustPolicy struct {
	MockFlagPoints         int
	MockProviderPoints     int
	SpoofAppRunningPoints  int
	SpoofAppIdlePoints     int
	AnomalyMovingPoints    int
	AnomalyStationaryPoint int
	MismatchPoints         int
	MismatchNoisyPoints    int
	PerfectAccuracyPoints  int

	// ImpossibleSpeedPoints are added on top of the anomaly points
	// for an implied speed beyond MaxSpeed.
	ImpossibleSpeedPoints int

	HighConfidenceThreshold int
	Threshold               int

	// MismatchNoisyAccuracy, in meters, demotes motion mismatch points.
	MismatchNoisyAccuracy float64

	MaxSpeed        float64
	MinDecimals     int32
	ZeroRun         int
	ColinearEpsilon float64
	ColinearMinDist float64
	RegularRatio    float64
	RegularMinDist  float64

	// VPNInterfacePrefixes are matched against up interface names.
	// macOS keeps utun interfaces up for system services, so utun is not a
	// default; there the platform's VPNTransport signal is the source.
	VPNInterfacePrefixes []string
	SpoofingPackages     []string
}

func DefaultTrustPolicy() TrustPolicy {
	return TrustPolicy{
		MockFlagPoints:         4,
		MockProviderPoints:     3,
		SpoofAppRunningPoints:  2,
		SpoofAppIdlePoints:     1,
		AnomalyMovingPoints:    2,
		AnomalyStationaryPoint: 1,
		MismatchPoints:         2,
		MismatchNoisyPoints:    1,
		PerfectAccuracyPoints:  2,
		ImpossibleSpeedPoints:  4,

		HighConfidenceThreshold: 3,
		Threshold:               5,

		MismatchNoisyAccuracy: 20,

		MaxSpeed:        278,
		MinDecimals:     4,
		ZeroRun:         5,
		ColinearEpsilon: 1e-4,
		ColinearMinDist: 1,
		RegularRatio:    0.01,
		RegularMinDist:  10,

		VPNInterfacePrefixes: []string{"tun", "tap", "ppp", "pptp", "ipsec", "wg", "l2tp"},
		SpoofingPackages: []string{
			"com.lexa.fakegps",
			"com.incorporateapps.fakegps.fre",
			"com.theappninjas.fakegpsjoystick",
			"com.blogspot.newapphorizons.fakegps",
			"com.fakegps.mock",
			"com.gsmartstudio.fakegps",
			"com.rosteam.gpsemulator",
		},
	}
}
