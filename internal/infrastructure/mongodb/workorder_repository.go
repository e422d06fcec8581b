package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dispatch-platform/scheduling-service/internal/domain"
	"github.com/dispatch-platform/scheduling-service/pkg/actor"
	"github.com/dispatch-platform/scheduling-service/pkg/cloudevents"
	"github.com/dispatch-platform/scheduling-service/pkg/errors"
	outboxMongo "github.com/dispatch-platform/scheduling-service/pkg/outbox/mongodb"
)

type WorkOrderRepository struct {
	collection   *mongo.Collection
	db           *mongo.Database
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
	scope        *actor.RepositoryHelper
}

func NewWorkOrderRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory) *WorkOrderRepository {
	collection := db.Collection("work_orders")

	repo := &WorkOrderRepository{
		collection:   collection,
		db:           db,
		outboxRepo:   outboxMongo.NewOutboxRepository(db),
		eventFactory: eventFactory,
		scope:        actor.NewRepositoryHelper(false),
	}
	repo.ensureIndexes(context.Background())

	return repo
}

func (r *WorkOrderRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "workOrderId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "organizationId", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "agentId", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// Save upserts the work order and stages its pending domain events in the
// outbox within one transaction.
func (r *WorkOrderRepository) Save(ctx context.Context, wo *domain.WorkOrder) error {
	wo.UpdatedAt = time.Now().UTC()

	err := inTransaction(ctx, r.db, func(sessCtx context.Context) error {
		opts := options.Update().SetUpsert(true)
		filter := bson.M{"workOrderId": wo.WorkOrderID}
		update := bson.M{"$set": wo}

		if _, err := r.collection.UpdateOne(sessCtx, filter, update, opts); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return errors.ErrConflict(fmt.Sprintf("work order %s already exists", wo.WorkOrderID))
			}
			return fmt.Errorf("failed to save work order: %w", err)
		}

		if err := drainEventsToOutbox(sessCtx, r.outboxRepo, r.eventFactory,
			wo.WorkOrderID, "WorkOrder", "work-order", wo.GetDomainEvents()); err != nil {
			return err
		}

		wo.ClearDomainEvents()
		return nil
	})
	return err
}

// FindByID looks up a work order, scoped to the caller's organization when an
// organization actor is on the context. Admin and system callers are not
// scoped.
func (r *WorkOrderRepository) FindByID(ctx context.Context, workOrderID string) (*domain.WorkOrder, error) {
	filter, err := r.scope.WithOrganizationFilter(ctx, bson.M{"workOrderId": workOrderID})
	if err != nil {
		return nil, err
	}

	var wo domain.WorkOrder
	err = r.collection.FindOne(ctx, filter).Decode(&wo)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &wo, nil
}
