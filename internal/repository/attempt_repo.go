package repository

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"trainhub/internal/model"
)

// AttemptRepo handles MongoDB operations for submitted quiz attempts
type AttemptRepo interface {
	Create(ctx context.Context, attempt *model.AttemptRecord) error
	GetByID(ctx context.Context, id string) (*model.AttemptRecord, error)
	ListByLearnerModule(ctx context.Context, learner string, moduleID int, limit int) ([]model.AttemptRecord, error)
}

type attemptRepo struct {
	collection *mongo.Collection
}

// NewAttemptRepo creates a new attempt repository
func NewAttemptRepo(db *mongo.Database) AttemptRepo {
	repo := &attemptRepo{
		collection: db.Collection("quiz_attempts"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *attemptRepo) ensureIndexes(ctx context.Context) {
	keys := bson.D{
		{Key: "learner", Value: 1},
		{Key: "moduleId", Value: 1},
		{Key: "submittedAt", Value: -1},
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys}); err != nil {
		log.Printf("Warning: failed to create index on %s: %v", r.collection.Name(), err)
	}
}

func (r *attemptRepo) Create(ctx context.Context, attempt *model.AttemptRecord) error {
	if attempt.SubmittedAt.IsZero() {
		attempt.SubmittedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, attempt)
	return err
}

func (r *attemptRepo) GetByID(ctx context.Context, id string) (*model.AttemptRecord, error) {
	var attempt model.AttemptRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&attempt)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// ListByLearnerModule returns newest first; limit <= 0 means no limit
func (r *attemptRepo) ListByLearnerModule(ctx context.Context, learner string, moduleID int, limit int) ([]model.AttemptRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, bson.M{"learner": learner, "moduleId": moduleID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	attempts := []model.AttemptRecord{}
	if err := cursor.All(ctx, &attempts); err != nil {
		return nil, err
	}
	return attempts, nil
}
