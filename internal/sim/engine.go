package sim

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"fleet-tracking-service/internal/models"
)

// ViolationSink receives speed violations the moment they are detected.
type ViolationSink interface {
	Record(models.SpeedViolation)
}

// Engine advances vehicles one tick at a time. It owns no timer and no
// vehicle set; the host service drives it and decides what to advance.
type Engine struct {
	mu   sync.RWMutex
	tun  Tuning
	rng  Rand
	sink ViolationSink
}

// NewEngine builds an engine with the given tuning, random source and
// violation sink. A nil rng falls back to a time-seeded one; a nil sink
// leaves violations visible in the log only.
func NewEngine(tun Tuning, rng Rand, sink ViolationSink) *Engine {
	if rng == nil {
		rng = NewRand(time.Now().UnixNano())
	}
	return &Engine{tun: tun.Normalize(), rng: rng, sink: sink}
}

// SetTuning swaps the motion parameters at runtime (config hot reload).
func (e *Engine) SetTuning(t Tuning) {
	e.mu.Lock()
	e.tun = t.Normalize()
	e.mu.Unlock()
}

// Tuning returns the parameters currently in effect.
func (e *Engine) Tuning() Tuning {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tun
}

// Advance runs one tick over the batch. Vehicles update independently: a
// vehicle that cannot be advanced is logged and skipped, never aborting the
// rest of the batch.
func (e *Engine) Advance(vehicles []*models.Vehicle, now time.Time, dt time.Duration) {
	for _, v := range vehicles {
		if err := e.Step(v, now, dt); err != nil {
			log.WithError(err).WithField("vehicle_id", v.ID).Warn("skipping vehicle update")
			continue
		}
		log.WithFields(log.Fields{
			"vehicle_id":  v.ID,
			"speed_kmh":   v.SpeedKmh,
			"heading_deg": v.HeadingDeg,
			"status":      v.Status,
		}).Debug("advanced vehicle")
	}
}
