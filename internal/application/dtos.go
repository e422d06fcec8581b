package application

import "time"

// AgentDTO represents an agent in responses
type AgentDTO struct {
	AgentID         string    `json:"agentId"`
	OrganizationID  string    `json:"organizationId"`
	Name            string    `json:"name"`
	WorkStart       string    `json:"workStart"`
	WorkEnd         string    `json:"workEnd"`
	Timezone        string    `json:"timezone"`
	ActiveLoad      int       `json:"activeLoad"`
	OpenSlotCount   int       `json:"openSlotCount"`
	ScheduleVersion int64     `json:"scheduleVersion"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// WorkOrderDTO represents a work order in responses
type WorkOrderDTO struct {
	WorkOrderID      string     `json:"workOrderId"`
	OrganizationID   string     `json:"organizationId"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Priority         string     `json:"priority"`
	DueDate          *time.Time `json:"dueDate,omitempty"`
	EstimatedMinutes int        `json:"estimatedMinutes"`
	Status           string     `json:"status"`
	AgentID          string     `json:"agentId,omitempty"`
	AssignedBy       string     `json:"assignedBy,omitempty"`
	CommitmentID     string     `json:"commitmentId,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// CommitmentDTO represents a committed slot range in responses
type CommitmentDTO struct {
	CommitmentID string    `json:"commitmentId"`
	AgentID      string    `json:"agentId"`
	WorkOrderIDs []string  `json:"workOrderIds"`
	StartTime    time.Time `json:"startTime"`
	EndTime      time.Time `json:"endTime"`
	Status       string    `json:"status"`
	AssignedBy   string    `json:"assignedBy"`
	CreatedAt    time.Time `json:"createdAt"`
}

// SlotDTO represents one mini-slot
type SlotDTO struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// HourBlockDTO represents one hour-aligned block of mini-slots
type HourBlockDTO struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Slots []SlotDTO `json:"slots"`
}

// AvailabilityDTO represents the open slots of one agent-day
type AvailabilityDTO struct {
	AgentID       string         `json:"agentId"`
	Date          string         `json:"date"`
	SlotSize      int            `json:"slotSizeMinutes"`
	Blocks        []HourBlockDTO `json:"blocks"`
	OpenSlotCount int            `json:"openSlotCount"`
	ComputedAt    time.Time      `json:"computedAt"`
}

// AssignmentResultDTO represents the outcome of a committed assignment
type AssignmentResultDTO struct {
	AgentID     string          `json:"agentId"`
	Commitments []CommitmentDTO `json:"commitments"`
	WorkOrders  []WorkOrderDTO  `json:"workOrders"`
}

// UnassignResultDTO represents the outcome of releasing a work order
type UnassignResultDTO struct {
	AgentID             string        `json:"agentId"`
	WorkOrder           *WorkOrderDTO `json:"workOrder"`
	CommitmentID        string        `json:"commitmentId"`
	CommitmentCancelled bool          `json:"commitmentCancelled"`
}
