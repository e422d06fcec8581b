package domain

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrInvalidTimeRange     = errors.New("invalid time range")
	ErrInvalidWorkingWindow = errors.New("invalid working window")
	ErrInvalidTimezone      = errors.New("invalid timezone")
	ErrInvalidPriority      = errors.New("invalid priority value")
	ErrInvalidStatus        = errors.New("invalid work order status")
	ErrNotAssigned          = errors.New("work order is not assigned to agent")
	ErrWorkOrderNotOpen     = errors.New("work order is not open for assignment")
	ErrOutsideWorkingWindow = errors.New("slot lies outside the agent working window")
	ErrCommitmentNotActive  = errors.New("commitment is not active")
)

// InvalidTransitionError names both states of a rejected status transition.
type InvalidTransitionError struct {
	From WorkOrderStatus
	To   WorkOrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid work order transition from %s to %s", e.From, e.To)
}

// ForbiddenTransitionError marks a legal transition that the acting role may
// not drive.
type ForbiddenTransitionError struct {
	From WorkOrderStatus
	To   WorkOrderStatus
	Role string
}

func (e *ForbiddenTransitionError) Error() string {
	return fmt.Sprintf("role %s may not transition work order from %s to %s", e.Role, e.From, e.To)
}

// ConflictError names the existing commitment that blocks a candidate range.
type ConflictError struct {
	CommitmentID string
	WorkOrderIDs []string
	Existing     TimeRange
	Candidate    TimeRange
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("candidate %s conflicts with commitment %s holding work orders %v",
		e.Candidate, e.CommitmentID, e.WorkOrderIDs)
}
