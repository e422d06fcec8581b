package application

import (
	"time"

	"github.com/dispatch-platform/scheduling-service/pkg/actor"

	"github.com/dispatch-platform/scheduling-service/internal/domain"
)

// CreateAgentCommand onboards a new agent
type CreateAgentCommand struct {
	AgentID        string
	OrganizationID string
	Name           string
	WorkStart      string
	WorkEnd        string
	Timezone       string
}

// GetAgentQuery retrieves an agent by ID
type GetAgentQuery struct {
	AgentID string
}

// CreateWorkOrderCommand registers a new work order
type CreateWorkOrderCommand struct {
	WorkOrderID      string
	OrganizationID   string
	Title            string
	Description      string
	Priority         domain.Priority
	DueDate          *time.Time
	EstimatedMinutes int
}

// GetWorkOrderQuery retrieves a work order by ID
type GetWorkOrderQuery struct {
	WorkOrderID string
}

// GetAvailabilityQuery computes the open mini-slots of one agent-day.
// WorkOrderID is optional; when set, the slot size follows that work
// order's handling estimate instead of the default.
type GetAvailabilityQuery struct {
	AgentID     string
	Date        string
	WorkOrderID string
}

// SlotInput is one requested slot range, paired by index with a work order.
type SlotInput struct {
	StartTime time.Time
	EndTime   time.Time
}

// AssignSlotsCommand books work orders onto an agent's schedule. WorkOrderIDs
// and Slots are parallel lists of equal length.
type AssignSlotsCommand struct {
	AgentID      string
	WorkOrderIDs []string
	Slots        []SlotInput
	AssignedBy   string
}

// UnassignCommand releases one work order from its active commitment.
type UnassignCommand struct {
	AgentID     string
	WorkOrderID string
	ReleasedBy  string
}

// ChangeWorkOrderStatusCommand drives the work order state machine on behalf
// of an actor.
type ChangeWorkOrderStatusCommand struct {
	WorkOrderID string
	NewStatus   domain.WorkOrderStatus
	Role        actor.Role
	ActorID     string
}
