package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fleet-tracking-service/internal/models"
)

// InsertJob stores a new job and fills in its generated ID.
func (c *MongoCollection) InsertJob(ctx context.Context, job *models.Job) error {
	if c.Collection == nil {
		return ErrNoCollection
	}

	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt

	res, err := c.Collection.InsertOne(ctx, job)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		job.ID = oid
	}
	return nil
}

// FindJobByID finds a job by its hex ID.
func (c *MongoCollection) FindJobByID(ctx context.Context, id string) (*models.Job, error) {
	if c.Collection == nil {
		return nil, ErrNoCollection
	}

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid job ID: %w", err)
	}

	var job models.Job
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&job)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
		}
		return nil, err
	}

	return &job, nil
}

// FindJobs lists jobs matching the filter, newest first.
func (c *MongoCollection) FindJobs(ctx context.Context, filter bson.M) ([]models.Job, error) {
	if c.Collection == nil {
		return nil, ErrNoCollection
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := c.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var jobs []models.Job
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// MarkJobCompleted sets the job to completed and stamps the completion time.
func (c *MongoCollection) MarkJobCompleted(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	return c.setJobStatus(ctx, id, models.JobStatusCompleted, bson.M{"completed_at": at, "updated_at": at})
}

// MarkJobCancelled sets the job to cancelled.
func (c *MongoCollection) MarkJobCancelled(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	return c.setJobStatus(ctx, id, models.JobStatusCancelled, bson.M{"updated_at": at})
}

func (c *MongoCollection) setJobStatus(ctx context.Context, id primitive.ObjectID, status models.JobStatus, extra bson.M) error {
	if c.Collection == nil {
		return ErrNoCollection
	}

	set := bson.M{"status": status}
	for k, v := range extra {
		set[k] = v
	}

	res, err := c.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("job %s: %w", id.Hex(), ErrNotFound)
	}
	return nil
}
