package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dispatch-platform/scheduling-service/pkg/actor"
)

func newOpenWorkOrder(t *testing.T) *WorkOrder {
	t.Helper()
	wo, err := NewWorkOrder("WO-001", "ORG-001", "Inspect meter", "", PriorityHigh, nil, 30)
	require.NoError(t, err)
	wo.ClearDomainEvents()
	return wo
}

// TestNewWorkOrder tests work order creation and defaults
func TestNewWorkOrder(t *testing.T) {
	wo, err := NewWorkOrder("WO-001", "ORG-001", "Inspect meter", "ground floor", PriorityHigh, nil, 30)
	require.NoError(t, err)

	assert.Equal(t, WorkOrderStatusOpen, wo.Status)
	assert.Equal(t, PriorityHigh, wo.Priority)
	assert.Equal(t, 30, wo.EstimatedMinutes)

	events := wo.GetDomainEvents()
	require.Len(t, events, 1)
	created, ok := events[0].(*WorkOrderCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, "WO-001", created.WorkOrderID)

	// Defaults apply when intake omits priority and estimate.
	wo, err = NewWorkOrder("WO-002", "ORG-001", "Replace fuse", "", "", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, PriorityMedium, wo.Priority)
	assert.Equal(t, DefaultEstimatedMinutes, wo.EstimatedMinutes)

	_, err = NewWorkOrder("WO-003", "ORG-001", "Replace fuse", "", "Urgent", nil, 0)
	assert.ErrorIs(t, err, ErrInvalidPriority)
}

// TestWorkOrderTransitions tests the status state machine with role gates
func TestWorkOrderTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    WorkOrderStatus
		to      WorkOrderStatus
		role    actor.Role
		wantErr bool
	}{
		{name: "Admin starts work", from: WorkOrderStatusOpen, to: WorkOrderStatusOngoing, role: actor.RoleAdmin},
		{name: "Admin completes work", from: WorkOrderStatusOngoing, to: WorkOrderStatusCompleted, role: actor.RoleAdmin},
		{name: "Admin reverts to open", from: WorkOrderStatusOngoing, to: WorkOrderStatusOpen, role: actor.RoleAdmin},
		{name: "Admin reopens completed", from: WorkOrderStatusCompleted, to: WorkOrderStatusOpen, role: actor.RoleAdmin},
		{name: "Agent completes own work", from: WorkOrderStatusOngoing, to: WorkOrderStatusCompleted, role: actor.RoleAgent},
		{name: "Agent may not start work", from: WorkOrderStatusOpen, to: WorkOrderStatusOngoing, role: actor.RoleAgent, wantErr: true},
		{name: "Agent may not reopen", from: WorkOrderStatusCompleted, to: WorkOrderStatusOpen, role: actor.RoleAgent, wantErr: true},
		{name: "Organization may not mutate status", from: WorkOrderStatusOngoing, to: WorkOrderStatusCompleted, role: actor.RoleOrganization, wantErr: true},
		{name: "Open to completed is never legal", from: WorkOrderStatusOpen, to: WorkOrderStatusCompleted, role: actor.RoleAdmin, wantErr: true},
		{name: "Completed to ongoing is never legal", from: WorkOrderStatusCompleted, to: WorkOrderStatusOngoing, role: actor.RoleAdmin, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wo := newOpenWorkOrder(t)
			wo.Status = tt.from

			err := wo.TransitionTo(tt.to, tt.role, "actor-1")
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, tt.from, wo.Status)
				assert.Empty(t, wo.GetDomainEvents())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.to, wo.Status)

			events := wo.GetDomainEvents()
			require.Len(t, events, 1)
			changed, ok := events[0].(*WorkOrderStatusChangedEvent)
			require.True(t, ok)
			assert.Equal(t, string(tt.from), changed.PreviousStatus)
			assert.Equal(t, string(tt.to), changed.NewStatus)
		})
	}
}

// TestWorkOrderTransitionToInvalidStatus tests rejection of unknown statuses
func TestWorkOrderTransitionToInvalidStatus(t *testing.T) {
	wo := newOpenWorkOrder(t)
	err := wo.TransitionTo("Paused", actor.RoleAdmin, "actor-1")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

// TestWorkOrderAssignUnassign tests assignment anchoring and release
func TestWorkOrderAssignUnassign(t *testing.T) {
	wo := newOpenWorkOrder(t)

	require.NoError(t, wo.Assign("AGENT-001", "CMT-001", "admin-1"))
	assert.Equal(t, WorkOrderStatusOngoing, wo.Status)
	assert.Equal(t, "AGENT-001", wo.AgentID)
	assert.Equal(t, "CMT-001", wo.CommitmentID)

	// Already assigned work orders cannot be assigned again.
	assert.ErrorIs(t, wo.Assign("AGENT-002", "CMT-002", "admin-1"), ErrWorkOrderNotOpen)

	require.NoError(t, wo.Unassign("admin-1"))
	assert.Equal(t, WorkOrderStatusOpen, wo.Status)
	assert.Empty(t, wo.AgentID)
	assert.Empty(t, wo.CommitmentID)

	// Only ongoing work orders can be unassigned.
	assert.Error(t, wo.Unassign("admin-1"))
}

// TestWorkOrderReopenClearsAssignment tests that the admin reopen edge clears
// assignment anchors
func TestWorkOrderReopenClearsAssignment(t *testing.T) {
	wo := newOpenWorkOrder(t)
	require.NoError(t, wo.Assign("AGENT-001", "CMT-001", "admin-1"))
	require.NoError(t, wo.TransitionTo(WorkOrderStatusCompleted, actor.RoleAgent, "AGENT-001"))

	require.NoError(t, wo.TransitionTo(WorkOrderStatusOpen, actor.RoleAdmin, "admin-1"))
	assert.Empty(t, wo.AgentID)
	assert.Empty(t, wo.AssignedBy)
	assert.Empty(t, wo.CommitmentID)
}
