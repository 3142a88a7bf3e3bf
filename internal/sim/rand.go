package sim

import "math/rand"

// Rand supplies the uniform draws in [0, 1) consumed by the motion update.
// *math/rand.Rand satisfies it; tests can script exact sequences.
//
// Per vehicle per tick the draw order is fixed: jitter value, slowdown gate,
// speed-up gate, burst gate, burst value (only when its gate fires), cargo
// drift (only for refrigerated cargo).
type Rand interface {
	Float64() float64
}

// NewRand returns a seeded source. The engine uses it from the tick goroutine
// only, so it needs no locking.
func NewRand(seed int64) Rand {
	return rand.New(rand.NewSource(seed))
}
