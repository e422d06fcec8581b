package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewCommitment tests commitment creation
func TestNewCommitment(t *testing.T) {
	r := mustRange(t, "2026-03-10T09:00:00Z", "2026-03-10T10:00:00Z")
	ids := []string{"WO-001", "WO-002"}
	c := NewCommitment("CMT-001", "AGENT-001", ids, r, "admin-1")

	assert.Equal(t, CommitmentStatusScheduled, c.Status)
	assert.True(t, c.IsActive())
	assert.Equal(t, r, c.Range())
	assert.True(t, c.HoldsWorkOrder("WO-002"))
	assert.False(t, c.HoldsWorkOrder("WO-003"))

	// The work order list is copied, not aliased.
	ids[0] = "WO-999"
	assert.True(t, c.HoldsWorkOrder("WO-001"))
}

// TestCommitmentDetachWorkOrder tests merge-group shrinking and cancel-on-last
func TestCommitmentDetachWorkOrder(t *testing.T) {
	r := mustRange(t, "2026-03-10T09:00:00Z", "2026-03-10T10:00:00Z")
	c := NewCommitment("CMT-001", "AGENT-001", []string{"WO-001", "WO-002"}, r, "admin-1")

	last, err := c.DetachWorkOrder("WO-001")
	require.NoError(t, err)
	assert.False(t, last)
	assert.True(t, c.IsActive())
	assert.Equal(t, []string{"WO-002"}, c.WorkOrderIDs)

	_, err = c.DetachWorkOrder("WO-001")
	assert.ErrorIs(t, err, ErrNotAssigned)

	last, err = c.DetachWorkOrder("WO-002")
	require.NoError(t, err)
	assert.True(t, last)
	assert.Equal(t, CommitmentStatusCancelled, c.Status)

	_, err = c.DetachWorkOrder("WO-002")
	assert.ErrorIs(t, err, ErrCommitmentNotActive)
}

// TestCommitmentLifecycle tests cancel and complete guards
func TestCommitmentLifecycle(t *testing.T) {
	r := mustRange(t, "2026-03-10T09:00:00Z", "2026-03-10T10:00:00Z")

	c := NewCommitment("CMT-001", "AGENT-001", []string{"WO-001"}, r, "admin-1")
	require.NoError(t, c.Cancel())
	assert.False(t, c.IsActive())
	assert.ErrorIs(t, c.Cancel(), ErrCommitmentNotActive)

	c = NewCommitment("CMT-002", "AGENT-001", []string{"WO-001"}, r, "admin-1")
	require.NoError(t, c.MarkCompleted())
	assert.Equal(t, CommitmentStatusCompleted, c.Status)
	assert.ErrorIs(t, c.MarkCompleted(), ErrCommitmentNotActive)

	c = NewCommitment("CMT-003", "AGENT-001", []string{"WO-001", "WO-002"}, r, "admin-1")
	require.NoError(t, c.MarkInProgress())
	assert.Equal(t, CommitmentStatusInProgress, c.Status)
	assert.True(t, c.IsActive())
	// Starting again is a no-op, and a started commitment can still complete.
	require.NoError(t, c.MarkInProgress())
	require.NoError(t, c.MarkCompleted())
	assert.ErrorIs(t, c.MarkInProgress(), ErrCommitmentNotActive)
}
