package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dispatch-platform/scheduling-service/internal/domain"
	"github.com/dispatch-platform/scheduling-service/pkg/cloudevents"
	"github.com/dispatch-platform/scheduling-service/pkg/errors"
	"github.com/dispatch-platform/scheduling-service/pkg/outbox"
	outboxMongo "github.com/dispatch-platform/scheduling-service/pkg/outbox/mongodb"
)

type AgentRepository struct {
	collection   *mongo.Collection
	db           *mongo.Database
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
}

func NewAgentRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory) *AgentRepository {
	collection := db.Collection("agents")
	outboxRepo := outboxMongo.NewOutboxRepository(db)

	repo := &AgentRepository{
		collection:   collection,
		db:           db,
		outboxRepo:   outboxRepo,
		eventFactory: eventFactory,
	}
	repo.ensureIndexes(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = outboxRepo.EnsureIndexes(ctx)

	return repo
}

func (r *AgentRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "agentId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "organizationId", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// Save upserts the agent and stages its pending domain events in the outbox
// within one transaction.
func (r *AgentRepository) Save(ctx context.Context, agent *domain.Agent) error {
	agent.UpdatedAt = time.Now().UTC()

	err := inTransaction(ctx, r.db, func(sessCtx context.Context) error {
		opts := options.Update().SetUpsert(true)
		filter := bson.M{"agentId": agent.AgentID}
		update := bson.M{"$set": agent}

		if _, err := r.collection.UpdateOne(sessCtx, filter, update, opts); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return errors.ErrConflict(fmt.Sprintf("agent %s already exists", agent.AgentID))
			}
			return fmt.Errorf("failed to save agent: %w", err)
		}

		if err := drainEventsToOutbox(sessCtx, r.outboxRepo, r.eventFactory,
			agent.AgentID, "Agent", "agent", agent.GetDomainEvents()); err != nil {
			return err
		}

		agent.ClearDomainEvents()
		return nil
	})
	return err
}

func (r *AgentRepository) FindByID(ctx context.Context, agentID string) (*domain.Agent, error) {
	var agent domain.Agent
	err := r.collection.FindOne(ctx, bson.M{"agentId": agentID}).Decode(&agent)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

// FindAndBumpVersion atomically increments the agent's schedule version and
// returns the updated document. It must run inside the committing
// transaction; the bump turns concurrent assignments against the same agent
// into write conflicts so that only one commits.
func (r *AgentRepository) FindAndBumpVersion(ctx context.Context, agentID string) (*domain.Agent, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{
		"$inc": bson.M{"scheduleVersion": 1},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	var agent domain.Agent
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"agentId": agentID}, update, opts).Decode(&agent)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

// UpdateOpenSlotCount sets only the derived open-slot counter. Availability
// reads run outside the agent's transactional lock, so they must never write
// the whole document back: a full save would overwrite activeLoad and
// scheduleVersion committed by a concurrent assignment.
func (r *AgentRepository) UpdateOpenSlotCount(ctx context.Context, agentID string, count int) error {
	update := bson.M{
		"$set": bson.M{
			"openSlotCount": count,
			"updatedAt":     time.Now().UTC(),
		},
	}
	if _, err := r.collection.UpdateOne(ctx, bson.M{"agentId": agentID}, update); err != nil {
		return fmt.Errorf("failed to update open slot count: %w", err)
	}
	return nil
}

// GetOutboxRepository returns the outbox repository for this service
func (r *AgentRepository) GetOutboxRepository() outbox.Repository {
	return r.outboxRepo
}
