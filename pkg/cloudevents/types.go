package cloudevents

import (
	"time"
)

// EventType constants for dispatch scheduling domain events
const (
	// Assignment events
	SlotsAssigned = "dispatch.scheduling.slots-assigned"
	SlotsReleased = "dispatch.scheduling.slots-released"

	// Work order events
	WorkOrderCreated       = "dispatch.scheduling.workorder-created"
	WorkOrderStatusChanged = "dispatch.scheduling.workorder-status-changed"

	// Agent events
	AgentOnboarded = "dispatch.scheduling.agent-onboarded"
)

// Source constants for event sources
const (
	SourceScheduling = "/dispatch/scheduling-service"
)

// DispatchCloudEvent represents a CloudEvents v1.0 compliant event for the
// dispatch platform
type DispatchCloudEvent struct {
	SpecVersion     string                 `json:"specversion"`
	Type            string                 `json:"type"`
	Source          string                 `json:"source"`
	Subject         string                 `json:"subject,omitempty"`
	ID              string                 `json:"id"`
	Time            time.Time              `json:"time"`
	DataContentType string                 `json:"datacontenttype"`
	Data            interface{}            `json:"data"`
	Extensions      map[string]interface{} `json:"-"`

	// Dispatch-specific extensions
	CorrelationID  string `json:"dispatchcorrelationid,omitempty"`
	OrganizationID string `json:"dispatchorganizationid,omitempty"`
	ActorID        string `json:"dispatchactorid,omitempty"`
	TraceParent    string `json:"traceparent,omitempty"`
}

// SlotRange is a committed time range carried in event payloads
type SlotRange struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// SlotsAssignedData represents the data payload for SlotsAssigned events
type SlotsAssignedData struct {
	AgentID       string      `json:"agentId"`
	WorkOrderIDs  []string    `json:"workOrderIds"`
	CommitmentIDs []string    `json:"commitmentIds"`
	Slots         []SlotRange `json:"slots"`
	AssignedBy    string      `json:"assignedBy"`
}

// SlotsReleasedData represents the data payload for SlotsReleased events
type SlotsReleasedData struct {
	AgentID             string `json:"agentId"`
	WorkOrderID         string `json:"workOrderId"`
	CommitmentID        string `json:"commitmentId"`
	CommitmentCancelled bool   `json:"commitmentCancelled"`
	ReleasedBy          string `json:"releasedBy"`
}

// WorkOrderCreatedData represents the data payload for WorkOrderCreated events
type WorkOrderCreatedData struct {
	WorkOrderID      string    `json:"workOrderId"`
	OrganizationID   string    `json:"organizationId"`
	Title            string    `json:"title"`
	Priority         string    `json:"priority"`
	DueDate          time.Time `json:"dueDate"`
	EstimatedMinutes int       `json:"estimatedMinutes"`
}

// WorkOrderStatusChangedData represents the data payload for
// WorkOrderStatusChanged events
type WorkOrderStatusChangedData struct {
	WorkOrderID    string `json:"workOrderId"`
	PreviousStatus string `json:"previousStatus"`
	NewStatus      string `json:"newStatus"`
	ChangedBy      string `json:"changedBy"`
}

// AgentOnboardedData represents the data payload for AgentOnboarded events
type AgentOnboardedData struct {
	AgentID        string `json:"agentId"`
	OrganizationID string `json:"organizationId"`
	Name           string `json:"name"`
	WorkStart      string `json:"workStart"`
	WorkEnd        string `json:"workEnd"`
	Timezone       string `json:"timezone"`
}
