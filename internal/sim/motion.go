package sim

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"fleet-tracking-service/internal/geo"
	"fleet-tracking-service/internal/models"
)

// ErrMissingDestination marks a vehicle that cannot be advanced at all.
var ErrMissingDestination = errors.New("vehicle has no destination")

// Step advances a single vehicle by dt. The update order is: speed
// perturbation, distance, heading toward the next waypoint, position,
// arrival handling, stop tracking, history, cargo drift, status. The
// pre-update snapshot goes into the history, so the first entry a fresh
// vehicle records is its spawn state.
func (e *Engine) Step(v *models.Vehicle, now time.Time, dt time.Duration) error {
	if v.Destination.IsZero() {
		return ErrMissingDestination
	}
	t := e.Tuning()

	// carried-over state is clamped, never rejected
	v.SpeedKmh = clamp(v.SpeedKmh, 0, t.SpeedLimitKmh)
	v.HeadingDeg = geo.NormalizeDeg(v.HeadingDeg)

	prev := models.StatusSnapshot{
		Timestamp: now,
		Status:    v.Status,
		SpeedKmh:  v.SpeedKmh,
		Position:  v.Position,
	}

	speed := v.SpeedKmh * (1 + (e.rng.Float64()*2-1)*t.JitterFraction)
	if e.rng.Float64() < t.SlowdownProbability {
		speed = math.Max(speed*t.SlowdownFactor, t.SlowdownFloorKmh)
	}
	if e.rng.Float64() < t.SpeedupProbability {
		speed = math.Min(speed*t.SpeedupFactor, t.SpeedupCapKmh)
	}
	if e.rng.Float64() < t.BurstProbability {
		speed = t.BurstMinKmh + e.rng.Float64()*(t.BurstMaxKmh-t.BurstMinKmh)
	}
	// the hard limit sees the raw speed; normal dynamics clamp everything else
	if speed > t.SpeedLimitKmh {
		e.recordViolation(v, speed, t.SpeedLimitKmh, now)
		speed = t.SpeedLimitKmh
	} else {
		speed = clamp(speed, t.CruiseMinKmh, t.CruiseMaxKmh)
	}
	v.SpeedKmh = speed

	distKm := v.SpeedKmh * (dt.Seconds() / 3600)

	v.HeadingDeg = geo.BearingDeg(v.Position, nextTarget(v))
	v.Position = geo.Advance(v.Position, v.HeadingDeg, distKm)

	switch destM := geo.DistanceMeters(v.Position, v.Destination.Location); {
	case destM < t.ArrivalRadiusM:
		v.Position = v.Destination.Location
		v.SpeedKmh = 0
	case destM < t.ApproachRadiusM:
		if v.SpeedKmh > t.ApproachCapKmh {
			v.SpeedKmh = t.ApproachCapKmh
		}
	}

	if v.SpeedKmh < t.StationaryKmh {
		if v.LastStopAt == nil {
			stopped := now
			v.LastStopAt = &stopped
		}
	} else {
		v.LastStopAt = nil
	}

	v.History = append(v.History, prev)
	if over := len(v.History) - t.HistoryLimit; over > 0 {
		v.History = v.History[over:]
	}

	if v.CargoTempC != nil {
		temp := clamp(*v.CargoTempC+(e.rng.Float64()*2-1)*t.CargoDriftC, t.CargoTempMinC, t.CargoTempMaxC)
		v.CargoTempC = &temp
	}

	v.Status = Classify(v, now, t).Status
	v.UpdatedAt = now
	return nil
}

// nextTarget picks the point the vehicle steers toward. Routes with more than
// two waypoints are followed one waypoint ahead of the closest; anything
// shorter degrades to the direct line. The route itself is never touched.
func nextTarget(v *models.Vehicle) models.Location {
	if len(v.Route) <= 2 {
		return v.Destination.Location
	}
	closest, best := 0, math.MaxFloat64
	for i, wp := range v.Route {
		if d := geo.DistanceMeters(v.Position, wp); d < best {
			closest, best = i, d
		}
	}
	if closest >= len(v.Route)-1 {
		return v.Destination.Location
	}
	return v.Route[closest+1]
}

func (e *Engine) recordViolation(v *models.Vehicle, observed, limit float64, now time.Time) {
	log.WithFields(log.Fields{
		"vehicle_id":   v.ID,
		"observed_kmh": observed,
		"limit_kmh":    limit,
	}).Warn("speed limit exceeded")
	if e.sink == nil {
		return
	}
	e.sink.Record(models.SpeedViolation{
		ID:               uuid.NewString(),
		VehicleID:        v.ID,
		ObservedSpeedKmh: observed,
		LimitKmh:         limit,
		Timestamp:        now,
	})
}
