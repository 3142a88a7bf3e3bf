package alerts

import "fleet-tracking-service/internal/models"

// Sink receives speed violations as the simulation emits them. Implementations
// must not block; the caller is the tick loop.
type Sink interface {
	Record(v models.SpeedViolation)
}

// Multi fans each violation out to every sink in order.
type Multi []Sink

func (m Multi) Record(v models.SpeedViolation) {
	for _, s := range m {
		s.Record(v)
	}
}
