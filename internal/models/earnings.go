package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EarningsRecord is one ledger entry credited to a driver when a job
// completes.
type EarningsRecord struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	DriverID   string             `json:"driver_id" bson:"driver_id"`
	JobID      string             `json:"job_id" bson:"job_id"`
	Amount     float64            `json:"amount" bson:"amount"`
	DistanceKm float64            `json:"distance_km" bson:"distance_km"`
	RecordedAt time.Time          `json:"recorded_at" bson:"recorded_at"`
}
