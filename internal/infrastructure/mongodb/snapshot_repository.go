package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dispatch-platform/scheduling-service/internal/domain"
)

type SnapshotRepository struct {
	collection *mongo.Collection
	db         *mongo.Database
}

func NewSnapshotRepository(db *mongo.Database) *SnapshotRepository {
	repo := &SnapshotRepository{
		collection: db.Collection("availability_snapshots"),
		db:         db,
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *SnapshotRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "agentId", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *SnapshotRepository) Save(ctx context.Context, snapshot *domain.AvailabilitySnapshot) error {
	opts := options.Update().SetUpsert(true)
	filter := bson.M{"agentId": snapshot.AgentID, "date": snapshot.Date}
	update := bson.M{"$set": snapshot}

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) FindByAgentAndDate(ctx context.Context, agentID, date string) (*domain.AvailabilitySnapshot, error) {
	var snapshot domain.AvailabilitySnapshot
	err := r.collection.FindOne(ctx, bson.M{"agentId": agentID, "date": date}).Decode(&snapshot)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// DeleteByAgentAndDate removes the cached snapshot for one agent-day.
// Deleting a missing snapshot is not an error.
func (r *SnapshotRepository) DeleteByAgentAndDate(ctx context.Context, agentID, date string) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"agentId": agentID, "date": date}); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}
