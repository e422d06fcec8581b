package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dispatch-platform/scheduling-service/pkg/cloudevents"
	"github.com/dispatch-platform/scheduling-service/pkg/errors"
	"github.com/dispatch-platform/scheduling-service/pkg/kafka"
	"github.com/dispatch-platform/scheduling-service/pkg/logging"

	"github.com/dispatch-platform/scheduling-service/internal/application"
	"github.com/dispatch-platform/scheduling-service/internal/domain"
)

// workOrderIntakeHandler registers work orders announced by upstream systems
// on the inbound topic. Intake is idempotent twice over: the deduplicating
// wrapper skips replayed messages, and a work order that already exists maps
// to a conflict which is swallowed here.
func workOrderIntakeHandler(service *application.SchedulingService, logger *logging.Logger) kafka.EventHandler {
	return func(ctx context.Context, event *cloudevents.DispatchCloudEvent) error {
		raw, err := json.Marshal(event.Data)
		if err != nil {
			return fmt.Errorf("failed to re-encode event data: %w", err)
		}

		var payload cloudevents.WorkOrderCreatedData
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fmt.Errorf("failed to decode work order payload: %w", err)
		}
		if payload.WorkOrderID == "" {
			logger.Warn("Dropping inbound work order without id", "eventId", event.ID)
			return nil
		}

		log := logger.WithCloudEventContext(logging.CloudEventContext{
			CorrelationID: event.CorrelationID,
			WorkOrderID:   payload.WorkOrderID,
		})

		var dueDate *time.Time
		if !payload.DueDate.IsZero() {
			due := payload.DueDate
			dueDate = &due
		}

		cmd := application.CreateWorkOrderCommand{
			WorkOrderID:      payload.WorkOrderID,
			OrganizationID:   payload.OrganizationID,
			Title:            payload.Title,
			Priority:         domain.Priority(payload.Priority),
			DueDate:          dueDate,
			EstimatedMinutes: payload.EstimatedMinutes,
		}

		if _, err := service.CreateWorkOrder(ctx, cmd); err != nil {
			if appErr, ok := errors.AsAppError(err); ok && appErr.Code == errors.CodeConflict {
				log.Info("Inbound work order already registered")
				return nil
			}
			return err
		}

		log.Info("Registered inbound work order", "eventId", event.ID)
		return nil
	}
}
