package domain

import "time"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// SlotRange is a committed interval carried on an event payload.
type SlotRange struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// SlotsAssignedEvent is published when a batch of slots is committed to an
// agent.
type SlotsAssignedEvent struct {
	AgentID       string      `json:"agentId"`
	WorkOrderIDs  []string    `json:"workOrderIds"`
	CommitmentIDs []string    `json:"commitmentIds"`
	Slots         []SlotRange `json:"slots"`
	AssignedBy    string      `json:"assignedBy"`
	AssignedAt    time.Time   `json:"assignedAt"`
}

func (e *SlotsAssignedEvent) EventType() string     { return "dispatch.scheduling.slots-assigned" }
func (e *SlotsAssignedEvent) OccurredAt() time.Time { return e.AssignedAt }

// SlotsReleasedEvent is published when a work order is detached from its
// commitment.
type SlotsReleasedEvent struct {
	AgentID             string    `json:"agentId"`
	WorkOrderID         string    `json:"workOrderId"`
	CommitmentID        string    `json:"commitmentId"`
	CommitmentCancelled bool      `json:"commitmentCancelled"`
	ReleasedBy          string    `json:"releasedBy"`
	ReleasedAt          time.Time `json:"releasedAt"`
}

func (e *SlotsReleasedEvent) EventType() string     { return "dispatch.scheduling.slots-released" }
func (e *SlotsReleasedEvent) OccurredAt() time.Time { return e.ReleasedAt }

// WorkOrderCreatedEvent is published when a work order enters the system.
type WorkOrderCreatedEvent struct {
	WorkOrderID    string    `json:"workOrderId"`
	OrganizationID string    `json:"organizationId"`
	Title          string    `json:"title"`
	Priority       string    `json:"priority"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (e *WorkOrderCreatedEvent) EventType() string     { return "dispatch.scheduling.workorder-created" }
func (e *WorkOrderCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// WorkOrderStatusChangedEvent is published on every status transition.
type WorkOrderStatusChangedEvent struct {
	WorkOrderID    string    `json:"workOrderId"`
	PreviousStatus string    `json:"previousStatus"`
	NewStatus      string    `json:"newStatus"`
	ChangedBy      string    `json:"changedBy"`
	ChangedAt      time.Time `json:"changedAt"`
}

func (e *WorkOrderStatusChangedEvent) EventType() string {
	return "dispatch.scheduling.workorder-status-changed"
}
func (e *WorkOrderStatusChangedEvent) OccurredAt() time.Time { return e.ChangedAt }

// AgentOnboardedEvent is published when an agent is onboarded.
type AgentOnboardedEvent struct {
	AgentID        string    `json:"agentId"`
	OrganizationID string    `json:"organizationId"`
	Name           string    `json:"name"`
	WorkStart      string    `json:"workStart"`
	WorkEnd        string    `json:"workEnd"`
	Timezone       string    `json:"timezone"`
	OnboardedAt    time.Time `json:"onboardedAt"`
}

func (e *AgentOnboardedEvent) EventType() string     { return "dispatch.scheduling.agent-onboarded" }
func (e *AgentOnboardedEvent) OccurredAt() time.Time { return e.OnboardedAt }
