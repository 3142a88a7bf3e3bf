package sim

import "time"

// Tuning collects every probability, clamp and threshold the motion update
// uses. Values come from configuration; DefaultTuning returns the dashboard
// defaults.
type Tuning struct {
	// hard limit; exceeding it before clamping emits a violation
	SpeedLimitKmh float64

	// speed perturbation, applied in order: jitter, slowdown, speed-up, burst
	JitterFraction      float64
	SlowdownProbability float64
	SlowdownFactor      float64
	SlowdownFloorKmh    float64
	SpeedupProbability  float64
	SpeedupFactor       float64
	SpeedupCapKmh       float64
	BurstProbability    float64
	BurstMinKmh         float64
	BurstMaxKmh         float64

	// normal dynamics clamp after all perturbations
	CruiseMinKmh float64
	CruiseMaxKmh float64

	// arrival handling
	ApproachRadiusM float64
	ApproachCapKmh  float64
	ArrivalRadiusM  float64

	// stationary and stall detection
	StationaryKmh float64
	StallSpeedKmh float64
	StallAfter    time.Duration

	HistoryLimit int

	// refrigerated cargo drift
	CargoTempMinC float64
	CargoTempMaxC float64
	CargoDriftC   float64
}

// DefaultTuning returns the standard motion parameters.
func DefaultTuning() Tuning {
	return Tuning{
		SpeedLimitKmh:       100,
		JitterFraction:      0.05,
		SlowdownProbability: 0.05,
		SlowdownFactor:      0.5,
		SlowdownFloorKmh:    10,
		SpeedupProbability:  0.03,
		SpeedupFactor:       1.2,
		SpeedupCapKmh:       60,
		BurstProbability:    0.02,
		BurstMinKmh:         85,
		BurstMaxKmh:         98,
		CruiseMinKmh:        5,
		CruiseMaxKmh:        98,
		ApproachRadiusM:     500,
		ApproachCapKmh:      20,
		ArrivalRadiusM:      100,
		StationaryKmh:       5,
		StallSpeedKmh:       8,
		StallAfter:          10 * time.Minute,
		HistoryLimit:        450,
		CargoTempMinC:       0,
		CargoTempMaxC:       10,
		CargoDriftC:         0.25,
	}
}

// Normalize clamps out-of-range tuning back into usable values instead of
// rejecting it.
func (t Tuning) Normalize() Tuning {
	t.JitterFraction = clamp(t.JitterFraction, 0, 1)
	t.SlowdownProbability = clamp(t.SlowdownProbability, 0, 1)
	t.SpeedupProbability = clamp(t.SpeedupProbability, 0, 1)
	t.BurstProbability = clamp(t.BurstProbability, 0, 1)
	if t.SpeedLimitKmh <= 0 {
		t.SpeedLimitKmh = DefaultTuning().SpeedLimitKmh
	}
	if t.BurstMaxKmh < t.BurstMinKmh {
		t.BurstMaxKmh = t.BurstMinKmh
	}
	if t.CruiseMaxKmh < t.CruiseMinKmh {
		t.CruiseMaxKmh = t.CruiseMinKmh
	}
	if t.CargoTempMaxC < t.CargoTempMinC {
		t.CargoTempMaxC = t.CargoTempMinC
	}
	if t.HistoryLimit < 1 {
		t.HistoryLimit = DefaultTuning().HistoryLimit
	}
	return t
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
