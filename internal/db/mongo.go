package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fleet-tracking-service/internal/models"
)

// ConnectMongo connects to MongoDB at the given URI and verifies the
// connection with a ping.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo uri is empty")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// MongoCollection wraps a MongoDB collection for vehicle, job and earnings
// operations.
type MongoCollection struct {
	Collection *mongo.Collection
}

// mongoVehicleCursor wraps a MongoDB cursor for vehicle queries.
type mongoVehicleCursor struct {
	cursor *mongo.Cursor
}

// All retrieves all results from the cursor.
func (m *mongoVehicleCursor) All(ctx context.Context, out interface{}) error {
	return m.cursor.All(ctx, out)
}

// Close closes the cursor.
func (m *mongoVehicleCursor) Close(ctx context.Context) error {
	return m.cursor.Close(ctx)
}

// UpsertVehicle writes the vehicle document keyed by its ID, inserting it on
// first sight. Vehicle IDs are UUID strings minted by the fleet service.
func (c *MongoCollection) UpsertVehicle(ctx context.Context, vehicle models.Vehicle) error {
	if c.Collection == nil {
		return ErrNoCollection
	}
	opts := options.Replace().SetUpsert(true)
	_, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": vehicle.ID}, vehicle, opts)
	return err
}

// FindVehicles queries vehicle documents from the collection.
func (c *MongoCollection) FindVehicles(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (VehicleCursor, error) {
	if c.Collection == nil {
		return nil, ErrNoCollection
	}

	var findOptions *options.FindOptions
	if len(opts) > 0 {
		findOptions = opts[0]
	}

	cursor, err := c.Collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}

	return &mongoVehicleCursor{cursor: cursor}, nil
}

// FindVehicleByID finds a vehicle document by its ID.
func (c *MongoCollection) FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error) {
	if c.Collection == nil {
		return nil, ErrNoCollection
	}

	var vehicle models.Vehicle
	err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&vehicle)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("vehicle %s: %w", id, ErrNotFound)
		}
		return nil, err
	}

	return &vehicle, nil
}
