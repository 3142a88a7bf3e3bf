package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fleet-tracking-service/internal/models"
)

var (
	// ErrNoCollection is returned when a store was built without a Mongo
	// collection, e.g. when the service runs in demo mode.
	ErrNoCollection = errors.New("mongo collection is nil")

	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
)

// VehicleCollection defines the interface for vehicle registry operations.
type VehicleCollection interface {
	UpsertVehicle(ctx context.Context, vehicle models.Vehicle) error
	FindVehicles(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (VehicleCursor, error)
	FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error)
}

// VehicleCursor defines the interface for vehicle cursor operations.
type VehicleCursor interface {
	All(ctx context.Context, out interface{}) error
	Close(ctx context.Context) error
}

// JobCollection defines the interface for job document operations.
type JobCollection interface {
	InsertJob(ctx context.Context, job *models.Job) error
	FindJobByID(ctx context.Context, id string) (*models.Job, error)
	FindJobs(ctx context.Context, filter bson.M) ([]models.Job, error)
	MarkJobCompleted(ctx context.Context, id primitive.ObjectID, at time.Time) error
	MarkJobCancelled(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

// DriverCollection defines the interface for driver document operations.
type DriverCollection interface {
	InsertDriver(ctx context.Context, driver *models.Driver) error
	FindDriverByID(ctx context.Context, id string) (*models.Driver, error)
	FindAvailableDrivers(ctx context.Context) ([]models.Driver, error)
	SetDriverAvailability(ctx context.Context, id primitive.ObjectID, available bool) error
}

// EarningsCollection defines the interface for driver earnings operations.
type EarningsCollection interface {
	InsertEarnings(ctx context.Context, record *models.EarningsRecord) error
	FindEarningsByDriver(ctx context.Context, driverID string) ([]models.EarningsRecord, error)
}
