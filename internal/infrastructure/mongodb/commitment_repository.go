package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dispatch-platform/scheduling-service/internal/domain"
)

// activeStatuses are the commitment statuses that occupy an agent's schedule.
var activeStatuses = []domain.CommitmentStatus{
	domain.CommitmentStatusScheduled,
	domain.CommitmentStatusInProgress,
}

type CommitmentRepository struct {
	collection *mongo.Collection
	db         *mongo.Database
}

func NewCommitmentRepository(db *mongo.Database) *CommitmentRepository {
	repo := &CommitmentRepository{
		collection: db.Collection("commitments"),
		db:         db,
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *CommitmentRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "commitmentId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "agentId", Value: 1}, {Key: "startTime", Value: 1}}},
		{Keys: bson.D{{Key: "workOrderIds", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *CommitmentRepository) Save(ctx context.Context, commitment *domain.Commitment) error {
	opts := options.Update().SetUpsert(true)
	filter := bson.M{"commitmentId": commitment.CommitmentID}
	update := bson.M{"$set": commitment}

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save commitment: %w", err)
	}
	return nil
}

func (r *CommitmentRepository) FindByID(ctx context.Context, commitmentID string) (*domain.Commitment, error) {
	var commitment domain.Commitment
	err := r.collection.FindOne(ctx, bson.M{"commitmentId": commitmentID}).Decode(&commitment)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &commitment, nil
}

func (r *CommitmentRepository) FindActiveByAgent(ctx context.Context, agentID string) ([]*domain.Commitment, error) {
	filter := bson.M{
		"agentId": agentID,
		"status":  bson.M{"$in": activeStatuses},
	}
	opts := options.Find().SetSort(bson.D{{Key: "startTime", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var commitments []*domain.Commitment
	err = cursor.All(ctx, &commitments)
	return commitments, err
}

// FindActiveByAgentInRange returns the active commitments overlapping a
// half-open range.
func (r *CommitmentRepository) FindActiveByAgentInRange(ctx context.Context, agentID string, tr domain.TimeRange) ([]*domain.Commitment, error) {
	filter := bson.M{
		"agentId":   agentID,
		"status":    bson.M{"$in": activeStatuses},
		"startTime": bson.M{"$lt": tr.End},
		"endTime":   bson.M{"$gt": tr.Start},
	}
	opts := options.Find().SetSort(bson.D{{Key: "startTime", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var commitments []*domain.Commitment
	err = cursor.All(ctx, &commitments)
	return commitments, err
}

func (r *CommitmentRepository) FindActiveByAgentAndWorkOrder(ctx context.Context, agentID, workOrderID string) (*domain.Commitment, error) {
	filter := bson.M{
		"agentId":      agentID,
		"workOrderIds": workOrderID,
		"status":       bson.M{"$in": activeStatuses},
	}

	var commitment domain.Commitment
	err := r.collection.FindOne(ctx, filter).Decode(&commitment)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &commitment, nil
}
