package sim

import (
	"math"
	"time"

	"fleet-tracking-service/internal/geo"
	"fleet-tracking-service/internal/models"
)

// farFutureETA pins the projected ETA of a vehicle that is not moving.
const farFutureETA = 365 * 24 * time.Hour

// StatusReport is the schedule classification of one vehicle at one instant.
type StatusReport struct {
	Status models.VehicleStatus `json:"status"`

	// RequiredSpeedKmh is the average speed needed to make the scheduled ETA.
	// Zero when no ETA is set; +Inf when the time budget is already spent.
	RequiredSpeedKmh float64   `json:"required_speed_kmh"`
	ProjectedETA     time.Time `json:"projected_eta"`

	// ETADifferenceMin is projected minus scheduled, in minutes. Zero when no
	// ETA is set.
	ETADifferenceMin float64 `json:"eta_difference_min"`
}

// Classify derives a vehicle's status. It reads state and the clock, touches
// nothing, and is safe to call outside the tick loop.
//
// Critical beats warning: a vehicle stopped beyond the stall window while
// crawling under the stall speed is critical regardless of schedule. Warning
// requires a scheduled ETA; without one a moving vehicle is always on time.
func Classify(v *models.Vehicle, now time.Time, t Tuning) StatusReport {
	remainingKm := geo.DistanceKm(v.Position, v.Destination.Location)

	r := StatusReport{Status: models.StatusOnTime}
	if v.SpeedKmh > 0 {
		r.ProjectedETA = now.Add(time.Duration(remainingKm / v.SpeedKmh * float64(time.Hour)))
	} else {
		r.ProjectedETA = now.Add(farFutureETA)
	}

	stalled := v.LastStopAt != nil && now.Sub(*v.LastStopAt) > t.StallAfter && v.SpeedKmh < t.StallSpeedKmh
	if stalled {
		r.Status = models.StatusCritical
	}

	if v.ScheduledETA != nil {
		if budget := v.ScheduledETA.Sub(now).Hours(); budget > 0 {
			r.RequiredSpeedKmh = remainingKm / budget
		} else if remainingKm > 0 {
			r.RequiredSpeedKmh = math.Inf(1)
		}
		r.ETADifferenceMin = r.ProjectedETA.Sub(*v.ScheduledETA).Minutes()
		if !stalled && v.SpeedKmh < r.RequiredSpeedKmh {
			r.Status = models.StatusWarning
		}
	}
	return r
}
