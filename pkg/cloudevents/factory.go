package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventFactory creates CloudEvents for dispatch scheduling domain events
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent creates a new DispatchCloudEvent with the given parameters
func (f *EventFactory) CreateEvent(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
) *DispatchCloudEvent {
	event := &DispatchCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
		Extensions:      make(map[string]interface{}),
	}

	return event
}

// CreateEventWithCorrelation creates an event with correlation tracking
func (f *EventFactory) CreateEventWithCorrelation(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
	correlationID string,
) *DispatchCloudEvent {
	event := f.CreateEvent(ctx, eventType, subject, data)
	event.CorrelationID = correlationID
	return event
}

// CreateSlotsAssignedEvent creates a SlotsAssigned event
func (f *EventFactory) CreateSlotsAssignedEvent(
	ctx context.Context,
	agentID string,
	workOrderIDs []string,
	commitmentIDs []string,
	slots []SlotRange,
	assignedBy string,
) *DispatchCloudEvent {
	data := SlotsAssignedData{
		AgentID:       agentID,
		WorkOrderIDs:  workOrderIDs,
		CommitmentIDs: commitmentIDs,
		Slots:         slots,
		AssignedBy:    assignedBy,
	}
	return f.CreateEvent(ctx, SlotsAssigned, "agent/"+agentID, data)
}

// CreateSlotsReleasedEvent creates a SlotsReleased event
func (f *EventFactory) CreateSlotsReleasedEvent(
	ctx context.Context,
	agentID string,
	workOrderID string,
	commitmentID string,
	commitmentCancelled bool,
	releasedBy string,
) *DispatchCloudEvent {
	data := SlotsReleasedData{
		AgentID:             agentID,
		WorkOrderID:         workOrderID,
		CommitmentID:        commitmentID,
		CommitmentCancelled: commitmentCancelled,
		ReleasedBy:          releasedBy,
	}
	return f.CreateEvent(ctx, SlotsReleased, "agent/"+agentID, data)
}

// CreateWorkOrderCreatedEvent creates a WorkOrderCreated event
func (f *EventFactory) CreateWorkOrderCreatedEvent(
	ctx context.Context,
	workOrderID string,
	organizationID string,
	title string,
	priority string,
	dueDate time.Time,
	estimatedMinutes int,
) *DispatchCloudEvent {
	data := WorkOrderCreatedData{
		WorkOrderID:      workOrderID,
		OrganizationID:   organizationID,
		Title:            title,
		Priority:         priority,
		DueDate:          dueDate,
		EstimatedMinutes: estimatedMinutes,
	}
	event := f.CreateEvent(ctx, WorkOrderCreated, "work-order/"+workOrderID, data)
	event.OrganizationID = organizationID
	return event
}

// CreateWorkOrderStatusChangedEvent creates a WorkOrderStatusChanged event
func (f *EventFactory) CreateWorkOrderStatusChangedEvent(
	ctx context.Context,
	workOrderID string,
	previousStatus string,
	newStatus string,
	changedBy string,
) *DispatchCloudEvent {
	data := WorkOrderStatusChangedData{
		WorkOrderID:    workOrderID,
		PreviousStatus: previousStatus,
		NewStatus:      newStatus,
		ChangedBy:      changedBy,
	}
	return f.CreateEvent(ctx, WorkOrderStatusChanged, "work-order/"+workOrderID, data)
}

// CreateAgentOnboardedEvent creates an AgentOnboarded event
func (f *EventFactory) CreateAgentOnboardedEvent(
	ctx context.Context,
	agentID string,
	organizationID string,
	name string,
	workStart string,
	workEnd string,
	timezone string,
) *DispatchCloudEvent {
	data := AgentOnboardedData{
		AgentID:        agentID,
		OrganizationID: organizationID,
		Name:           name,
		WorkStart:      workStart,
		WorkEnd:        workEnd,
		Timezone:       timezone,
	}
	event := f.CreateEvent(ctx, AgentOnboarded, "agent/"+agentID, data)
	event.OrganizationID = organizationID
	return event
}
