package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fleet-tracking-service/internal/models"
)

// InsertEarnings appends a ledger entry credited to a driver.
func (c *MongoCollection) InsertEarnings(ctx context.Context, record *models.EarningsRecord) error {
	if c.Collection == nil {
		return ErrNoCollection
	}

	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now()
	}

	res, err := c.Collection.InsertOne(ctx, record)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		record.ID = oid
	}
	return nil
}

// FindEarningsByDriver lists a driver's earnings, newest first.
func (c *MongoCollection) FindEarningsByDriver(ctx context.Context, driverID string) ([]models.EarningsRecord, error) {
	if c.Collection == nil {
		return nil, ErrNoCollection
	}

	opts := options.Find().SetSort(bson.D{{Key: "recorded_at", Value: -1}})
	cursor, err := c.Collection.Find(ctx, bson.M{"driver_id": driverID}, opts)
	if err != nil {
		return nil, err
	}

	var records []models.EarningsRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
