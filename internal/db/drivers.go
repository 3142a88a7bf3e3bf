package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"fleet-tracking-service/internal/models"
)

// MongoDriverCollection implements DriverCollection for MongoDB.
type MongoDriverCollection struct {
	Collection *mongo.Collection
}

// InsertDriver inserts a new driver and fills in its generated ID. New
// drivers start out available.
func (c *MongoDriverCollection) InsertDriver(ctx context.Context, driver *models.Driver) error {
	if c.Collection == nil {
		return ErrNoCollection
	}

	driver.CreatedAt = time.Now()
	driver.UpdatedAt = driver.CreatedAt
	driver.Available = true

	res, err := c.Collection.InsertOne(ctx, driver)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		driver.ID = oid
	}
	return nil
}

// FindDriverByID finds a driver by their hex ID.
func (c *MongoDriverCollection) FindDriverByID(ctx context.Context, id string) (*models.Driver, error) {
	if c.Collection == nil {
		return nil, ErrNoCollection
	}

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid driver ID: %w", err)
	}

	var driver models.Driver
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&driver)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("driver %s: %w", id, ErrNotFound)
		}
		return nil, err
	}

	return &driver, nil
}

// FindAvailableDrivers lists drivers currently free to take a job.
func (c *MongoDriverCollection) FindAvailableDrivers(ctx context.Context) ([]models.Driver, error) {
	if c.Collection == nil {
		return nil, ErrNoCollection
	}

	cursor, err := c.Collection.Find(ctx, bson.M{"available": true})
	if err != nil {
		return nil, err
	}

	var drivers []models.Driver
	if err := cursor.All(ctx, &drivers); err != nil {
		return nil, err
	}
	return drivers, nil
}

// SetDriverAvailability flips the availability flag for a driver.
func (c *MongoDriverCollection) SetDriverAvailability(ctx context.Context, id primitive.ObjectID, available bool) error {
	if c.Collection == nil {
		return ErrNoCollection
	}

	res, err := c.Collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"available": available, "updated_at": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("driver %s: %w", id.Hex(), ErrNotFound)
	}
	return nil
}
