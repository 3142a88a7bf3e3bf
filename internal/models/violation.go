package models

import "time"

// SpeedViolation records a raw computed speed that exceeded the hard limit
// before clamping.
type SpeedViolation struct {
	ID               string    `bson:"_id,omitempty" json:"id"`
	VehicleID        string    `bson:"vehicle_id" json:"vehicle_id"`
	ObservedSpeedKmh float64   `bson:"observed_speed_kmh" json:"observed_speed_kmh"`
	LimitKmh         float64   `bson:"limit_kmh" json:"limit_kmh"`
	Timestamp        time.Time `bson:"timestamp" json:"timestamp"`
}
