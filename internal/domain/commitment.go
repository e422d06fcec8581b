package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CommitmentStatus represents the lifecycle state of a commitment
type CommitmentStatus string

const (
	CommitmentStatusScheduled  CommitmentStatus = "Scheduled"
	CommitmentStatusInProgress CommitmentStatus = "InProgress"
	CommitmentStatusCompleted  CommitmentStatus = "Completed"
	CommitmentStatusCancelled  CommitmentStatus = "Cancelled"
)

// Commitment is the authoritative booking record: one merged UTC range on one
// agent covering one or more work orders. Availability and load are always
// derivable from the set of non-cancelled commitments.
type Commitment struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	CommitmentID string             `bson:"commitmentId" json:"commitmentId"`
	AgentID      string             `bson:"agentId" json:"agentId"`
	WorkOrderIDs []string           `bson:"workOrderIds" json:"workOrderIds"`
	StartTime    time.Time          `bson:"startTime" json:"startTime"`
	EndTime      time.Time          `bson:"endTime" json:"endTime"`
	Status       CommitmentStatus   `bson:"status" json:"status"`
	AssignedBy   string             `bson:"assignedBy" json:"assignedBy"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// NewCommitment creates a Scheduled commitment over a merged range.
func NewCommitment(commitmentID, agentID string, workOrderIDs []string, r TimeRange, assignedBy string) *Commitment {
	now := time.Now().UTC()
	ids := make([]string, len(workOrderIDs))
	copy(ids, workOrderIDs)
	return &Commitment{
		CommitmentID: commitmentID,
		AgentID:      agentID,
		WorkOrderIDs: ids,
		StartTime:    r.Start,
		EndTime:      r.End,
		Status:       CommitmentStatusScheduled,
		AssignedBy:   assignedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Range returns the committed interval as a TimeRange.
func (c *Commitment) Range() TimeRange {
	return TimeRange{Start: c.StartTime, End: c.EndTime}
}

// IsActive reports whether the commitment still occupies the agent's
// schedule.
func (c *Commitment) IsActive() bool {
	return c.Status == CommitmentStatusScheduled || c.Status == CommitmentStatusInProgress
}

// HoldsWorkOrder reports whether the commitment covers the work order.
func (c *Commitment) HoldsWorkOrder(workOrderID string) bool {
	for _, id := range c.WorkOrderIDs {
		if id == workOrderID {
			return true
		}
	}
	return false
}

// DetachWorkOrder removes a work order from the merge group. When the last
// one leaves, the commitment is cancelled and it reports lastDetached.
func (c *Commitment) DetachWorkOrder(workOrderID string) (lastDetached bool, err error) {
	if !c.IsActive() {
		return false, ErrCommitmentNotActive
	}
	if !c.HoldsWorkOrder(workOrderID) {
		return false, ErrNotAssigned
	}

	remaining := make([]string, 0, len(c.WorkOrderIDs)-1)
	for _, id := range c.WorkOrderIDs {
		if id != workOrderID {
			remaining = append(remaining, id)
		}
	}
	c.WorkOrderIDs = remaining
	c.UpdatedAt = time.Now().UTC()

	if len(c.WorkOrderIDs) == 0 {
		c.Status = CommitmentStatusCancelled
		return true, nil
	}
	return false, nil
}

// Cancel releases the commitment outright.
func (c *Commitment) Cancel() error {
	if !c.IsActive() {
		return ErrCommitmentNotActive
	}
	c.Status = CommitmentStatusCancelled
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkInProgress records that work on the merge group has started. Calling
// it on an already started commitment is a no-op.
func (c *Commitment) MarkInProgress() error {
	if !c.IsActive() {
		return ErrCommitmentNotActive
	}
	if c.Status == CommitmentStatusInProgress {
		return nil
	}
	c.Status = CommitmentStatusInProgress
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkCompleted finishes the commitment once its work orders are done.
func (c *Commitment) MarkCompleted() error {
	if !c.IsActive() {
		return ErrCommitmentNotActive
	}
	c.Status = CommitmentStatusCompleted
	c.UpdatedAt = time.Now().UTC()
	return nil
}
