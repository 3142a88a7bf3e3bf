package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"time"
)

// JobStatus tracks a job through its lifecycle.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"    // recorded, no driver available yet
	JobStatusInTransit JobStatus = "in_transit" // driver assigned, vehicle live
	JobStatusCompleted JobStatus = "completed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Job represents a delivery job from pickup to dropoff.
type Job struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	DriverID     string             `json:"driver_id,omitempty" bson:"driver_id,omitempty"`
	VehicleID    string             `json:"vehicle_id,omitempty" bson:"vehicle_id,omitempty"`
	Pickup       Destination        `json:"pickup" bson:"pickup"`
	Dropoff      Destination        `json:"dropoff" bson:"dropoff"`
	DistanceKm   float64            `json:"distance_km" bson:"distance_km"` // straight-line at creation
	Fare         float64            `json:"fare" bson:"fare"`
	Refrigerated bool               `json:"refrigerated" bson:"refrigerated"`
	ScheduledETA *time.Time         `json:"scheduled_eta,omitempty" bson:"scheduled_eta,omitempty"`
	Status       JobStatus          `json:"status" bson:"status"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updated_at"`
	CompletedAt  *time.Time         `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}
