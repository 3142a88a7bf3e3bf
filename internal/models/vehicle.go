package models

import (
	"time"
)

// VehicleStatus is the derived schedule status shown on the dashboard.
type VehicleStatus string

const (
	StatusOnTime   VehicleStatus = "on-time"
	StatusWarning  VehicleStatus = "warning"
	StatusCritical VehicleStatus = "critical"
)

// StatusSnapshot is one history entry: the state a vehicle was in when a tick
// began.
type StatusSnapshot struct {
	Timestamp time.Time     `bson:"timestamp" json:"timestamp"`
	Status    VehicleStatus `bson:"status" json:"status"`
	SpeedKmh  float64       `bson:"speed_kmh" json:"speed_kmh"`
	Position  Location      `bson:"position" json:"position"`
}

// Vehicle is the live tracked state of one fleet vehicle. It exists while a
// job is underway (or as a seeded demo vehicle) and is mutated only by the
// tick loop; readers work on snapshot copies.
type Vehicle struct {
	ID           string           `bson:"_id" json:"id"`
	Label        string           `bson:"label,omitempty" json:"label,omitempty"`
	DriverID     string           `bson:"driver_id,omitempty" json:"driver_id,omitempty"`
	JobID        string           `bson:"job_id,omitempty" json:"job_id,omitempty"`
	Position     Location         `bson:"position" json:"position"`
	Destination  Destination      `bson:"destination" json:"destination"`
	Route        []Location       `bson:"route,omitempty" json:"route,omitempty"`
	SpeedKmh     float64          `bson:"speed_kmh" json:"speed_kmh"`
	HeadingDeg   float64          `bson:"heading_deg" json:"heading_deg"`
	ScheduledETA *time.Time       `bson:"scheduled_eta,omitempty" json:"scheduled_eta,omitempty"`
	Status       VehicleStatus    `bson:"status" json:"status"`
	History      []StatusSnapshot `bson:"history,omitempty" json:"history,omitempty"`
	LastStopAt   *time.Time       `bson:"last_stop_at,omitempty" json:"last_stop_at,omitempty"`
	CargoTempC   *float64         `bson:"cargo_temp_c,omitempty" json:"cargo_temp_c,omitempty"`
	UpdatedAt    time.Time        `bson:"updated_at" json:"updated_at"`
}

// Arrived reports whether the vehicle has been snapped onto its destination.
func (v *Vehicle) Arrived() bool {
	return v.SpeedKmh == 0 && v.Position == v.Destination.Location && !v.Destination.IsZero()
}

// Clone returns a deep copy safe to hand to readers while the tick loop keeps
// mutating the original.
func (v *Vehicle) Clone() *Vehicle {
	c := *v
	if v.Route != nil {
		c.Route = append([]Location(nil), v.Route...)
	}
	if v.History != nil {
		c.History = append([]StatusSnapshot(nil), v.History...)
	}
	if v.ScheduledETA != nil {
		eta := *v.ScheduledETA
		c.ScheduledETA = &eta
	}
	if v.LastStopAt != nil {
		stop := *v.LastStopAt
		c.LastStopAt = &stop
	}
	if v.CargoTempC != nil {
		temp := *v.CargoTempC
		c.CargoTempC = &temp
	}
	return &c
}
