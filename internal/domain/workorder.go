package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dispatch-platform/scheduling-service/pkg/actor"
)

// Priority orders work by urgency.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// IsValid checks if the priority is valid
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// WorkOrderStatus represents the lifecycle state of a work order
type WorkOrderStatus string

const (
	WorkOrderStatusOpen      WorkOrderStatus = "Open"
	WorkOrderStatusOngoing   WorkOrderStatus = "Ongoing"
	WorkOrderStatusCompleted WorkOrderStatus = "Completed"
)

// IsValid checks if the status is valid
func (s WorkOrderStatus) IsValid() bool {
	switch s {
	case WorkOrderStatusOpen, WorkOrderStatusOngoing, WorkOrderStatusCompleted:
		return true
	default:
		return false
	}
}

// DefaultEstimatedMinutes is the handling-time estimate applied when intake
// omits one.
const DefaultEstimatedMinutes = 6

// workOrderTransitions is the status state machine. Completed→Open is the
// admin-only reopen edge; the role gate is enforced separately.
var workOrderTransitions = map[WorkOrderStatus][]WorkOrderStatus{
	WorkOrderStatusOpen:      {WorkOrderStatusOngoing},
	WorkOrderStatusOngoing:   {WorkOrderStatusOpen, WorkOrderStatusCompleted},
	WorkOrderStatusCompleted: {WorkOrderStatusOpen},
}

// WorkOrder is the aggregate root for dispatchable jobs. A work order anchors
// at most one active commitment through CommitmentID.
type WorkOrder struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	WorkOrderID      string             `bson:"workOrderId" json:"workOrderId"`
	OrganizationID   string             `bson:"organizationId" json:"organizationId"`
	Title            string             `bson:"title" json:"title"`
	Description      string             `bson:"description,omitempty" json:"description,omitempty"`
	Priority         Priority           `bson:"priority" json:"priority"`
	DueDate          *time.Time         `bson:"dueDate,omitempty" json:"dueDate,omitempty"`
	EstimatedMinutes int                `bson:"estimatedMinutes" json:"estimatedMinutes"`
	Status           WorkOrderStatus    `bson:"status" json:"status"`
	AgentID          string             `bson:"agentId,omitempty" json:"agentId,omitempty"`
	AssignedBy       string             `bson:"assignedBy,omitempty" json:"assignedBy,omitempty"`
	CommitmentID     string             `bson:"commitmentId,omitempty" json:"commitmentId,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
	DomainEvents     []DomainEvent      `bson:"-" json:"-"`
}

// NewWorkOrder creates a WorkOrder aggregate in the Open state.
func NewWorkOrder(workOrderID, organizationID, title, description string, priority Priority, dueDate *time.Time, estimatedMinutes int) (*WorkOrder, error) {
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.IsValid() {
		return nil, ErrInvalidPriority
	}
	if estimatedMinutes <= 0 {
		estimatedMinutes = DefaultEstimatedMinutes
	}

	now := time.Now().UTC()
	wo := &WorkOrder{
		WorkOrderID:      workOrderID,
		OrganizationID:   organizationID,
		Title:            title,
		Description:      description,
		Priority:         priority,
		DueDate:          dueDate,
		EstimatedMinutes: estimatedMinutes,
		Status:           WorkOrderStatusOpen,
		CreatedAt:        now,
		UpdatedAt:        now,
		DomainEvents:     make([]DomainEvent, 0),
	}

	wo.AddDomainEvent(&WorkOrderCreatedEvent{
		WorkOrderID:    workOrderID,
		OrganizationID: organizationID,
		Title:          title,
		Priority:       string(priority),
		CreatedAt:      now,
	})

	return wo, nil
}

// CanTransitionTo checks a transition against the state machine only.
func (w *WorkOrder) CanTransitionTo(target WorkOrderStatus) bool {
	for _, allowed := range workOrderTransitions[w.Status] {
		if allowed == target {
			return true
		}
	}
	return false
}

// TransitionTo drives the status state machine with role gates: admins may
// drive any legal edge, agents may only complete, organizations may not
// mutate status at all.
func (w *WorkOrder) TransitionTo(target WorkOrderStatus, role actor.Role, actorID string) error {
	if !target.IsValid() {
		return ErrInvalidStatus
	}
	if !w.CanTransitionTo(target) {
		return &InvalidTransitionError{From: w.Status, To: target}
	}

	switch role {
	case actor.RoleAdmin:
		// all legal edges
	case actor.RoleAgent:
		if !(w.Status == WorkOrderStatusOngoing && target == WorkOrderStatusCompleted) {
			return &ForbiddenTransitionError{From: w.Status, To: target, Role: string(role)}
		}
	default:
		return &ForbiddenTransitionError{From: w.Status, To: target, Role: string(role)}
	}

	previous := w.Status
	w.Status = target
	w.UpdatedAt = time.Now().UTC()

	if target == WorkOrderStatusOpen {
		// Unassign and reopen both land here with assignment state cleared.
		w.AgentID = ""
		w.AssignedBy = ""
		w.CommitmentID = ""
	}

	w.AddDomainEvent(&WorkOrderStatusChangedEvent{
		WorkOrderID:    w.WorkOrderID,
		PreviousStatus: string(previous),
		NewStatus:      string(target),
		ChangedBy:      actorID,
		ChangedAt:      w.UpdatedAt,
	})

	return nil
}

// Assign anchors the work order to a commitment and moves it Open→Ongoing.
func (w *WorkOrder) Assign(agentID, commitmentID, assignedBy string) error {
	if w.Status != WorkOrderStatusOpen {
		return ErrWorkOrderNotOpen
	}

	now := time.Now().UTC()
	w.Status = WorkOrderStatusOngoing
	w.AgentID = agentID
	w.AssignedBy = assignedBy
	w.CommitmentID = commitmentID
	w.UpdatedAt = now

	w.AddDomainEvent(&WorkOrderStatusChangedEvent{
		WorkOrderID:    w.WorkOrderID,
		PreviousStatus: string(WorkOrderStatusOpen),
		NewStatus:      string(WorkOrderStatusOngoing),
		ChangedBy:      assignedBy,
		ChangedAt:      now,
	})

	return nil
}

// Unassign resets an Ongoing work order to Open and clears its assignment
// anchors.
func (w *WorkOrder) Unassign(releasedBy string) error {
	if w.Status != WorkOrderStatusOngoing {
		return &InvalidTransitionError{From: w.Status, To: WorkOrderStatusOpen}
	}

	now := time.Now().UTC()
	w.Status = WorkOrderStatusOpen
	w.AgentID = ""
	w.AssignedBy = ""
	w.CommitmentID = ""
	w.UpdatedAt = now

	w.AddDomainEvent(&WorkOrderStatusChangedEvent{
		WorkOrderID:    w.WorkOrderID,
		PreviousStatus: string(WorkOrderStatusOngoing),
		NewStatus:      string(WorkOrderStatusOpen),
		ChangedBy:      releasedBy,
		ChangedAt:      now,
	})

	return nil
}

// AddDomainEvent adds a domain event
func (w *WorkOrder) AddDomainEvent(event DomainEvent) {
	w.DomainEvents = append(w.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (w *WorkOrder) ClearDomainEvents() {
	w.DomainEvents = make([]DomainEvent, 0)
}

// GetDomainEvents returns all domain events
func (w *WorkOrder) GetDomainEvents() []DomainEvent {
	return w.DomainEvents
}
