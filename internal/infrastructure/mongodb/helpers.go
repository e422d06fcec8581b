package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dispatch-platform/scheduling-service/internal/domain"
	"github.com/dispatch-platform/scheduling-service/pkg/cloudevents"
	"github.com/dispatch-platform/scheduling-service/pkg/kafka"
	"github.com/dispatch-platform/scheduling-service/pkg/outbox"
	outboxMongo "github.com/dispatch-platform/scheduling-service/pkg/outbox/mongodb"
)

// inTransaction runs fn inside a MongoDB transaction. When the context
// already carries a session, fn joins the caller's transaction instead of
// opening a nested one.
func inTransaction(ctx context.Context, db *mongo.Database, fn func(sessCtx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}
	return nil
}

// drainEventsToOutbox converts the pending domain events of an aggregate into
// CloudEvents and stages them in the outbox within the caller's transaction.
func drainEventsToOutbox(
	ctx context.Context,
	outboxRepo *outboxMongo.OutboxRepository,
	eventFactory *cloudevents.EventFactory,
	aggregateID, aggregateType, sourcePrefix string,
	events []domain.DomainEvent,
) error {
	if len(events) == 0 {
		return nil
	}

	outboxEvents := make([]*outbox.OutboxEvent, 0, len(events))
	for _, event := range events {
		cloudEvent := eventFactory.CreateEvent(ctx, event.EventType(), sourcePrefix+"/"+aggregateID, event)

		outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(
			aggregateID,
			aggregateType,
			kafka.Topics.SchedulingEvents,
			cloudEvent,
		)
		if err != nil {
			return fmt.Errorf("failed to create outbox event: %w", err)
		}
		outboxEvents = append(outboxEvents, outboxEvent)
	}

	if err := outboxRepo.SaveAll(ctx, outboxEvents); err != nil {
		return fmt.Errorf("failed to save outbox events: %w", err)
	}
	return nil
}
