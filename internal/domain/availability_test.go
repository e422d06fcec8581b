package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestValidateCandidates tests batch validation against the working window
func TestValidateCandidates(t *testing.T) {
	window := mustRange(t, "2026-03-10T09:00:00Z", "2026-03-10T18:00:00Z")

	err := ValidateCandidates([]TimeRange{
		mustRange(t, "2026-03-10T09:00:00Z", "2026-03-10T09:06:00Z"),
		mustRange(t, "2026-03-10T17:54:00Z", "2026-03-10T18:00:00Z"),
	}, window)
	assert.NoError(t, err)

	err = ValidateCandidates([]TimeRange{
		mustRange(t, "2026-03-10T09:00:00Z", "2026-03-10T09:06:00Z"),
		mustRange(t, "2026-03-10T17:54:00Z", "2026-03-10T18:06:00Z"),
	}, window)
	assert.ErrorIs(t, err, ErrOutsideWorkingWindow)

	err = ValidateCandidates([]TimeRange{
		{Start: window.Start, End: window.Start},
	}, window)
	assert.ErrorIs(t, err, ErrInvalidTimeRange)
}

// TestFindConflict tests conflict detection against active commitments
func TestFindConflict(t *testing.T) {
	busy := NewCommitment("CMT-001", "AGENT-001", []string{"WO-001"},
		mustRange(t, "2026-03-10T10:00:00Z", "2026-03-10T11:00:00Z"), "admin-1")
	cancelled := NewCommitment("CMT-002", "AGENT-001", []string{"WO-002"},
		mustRange(t, "2026-03-10T13:00:00Z", "2026-03-10T14:00:00Z"), "admin-1")
	require.NoError(t, cancelled.Cancel())
	existing := []*Commitment{busy, cancelled}

	// Overlapping the busy commitment is rejected and names the holder.
	conflict := FindConflict([]TimeRange{
		mustRange(t, "2026-03-10T10:30:00Z", "2026-03-10T11:30:00Z"),
	}, existing)
	require.NotNil(t, conflict)
	assert.Equal(t, "CMT-001", conflict.CommitmentID)
	assert.Equal(t, []string{"WO-001"}, conflict.WorkOrderIDs)

	// Touching the boundary at 11:00 is allowed.
	conflict = FindConflict([]TimeRange{
		mustRange(t, "2026-03-10T11:00:00Z", "2026-03-10T12:00:00Z"),
	}, existing)
	assert.Nil(t, conflict)

	// Cancelled commitments never conflict.
	conflict = FindConflict([]TimeRange{
		mustRange(t, "2026-03-10T13:00:00Z", "2026-03-10T14:00:00Z"),
	}, existing)
	assert.Nil(t, conflict)
}

// TestNewAvailabilitySnapshot tests wholesale mini-slot subtraction
func TestNewAvailabilitySnapshot(t *testing.T) {
	window := mustRange(t, "2026-03-10T09:00:00Z", "2026-03-10T11:00:00Z")
	plan := GenerateDayPlan(window, "2026-03-10", time.UTC, 6)
	require.Equal(t, 20, plan.TotalSlots())

	// A commitment covering 09:03-09:09 straddles two mini-slots; both are
	// removed wholesale.
	commitments := []*Commitment{
		NewCommitment("CMT-001", "AGENT-001", []string{"WO-001"},
			mustRange(t, "2026-03-10T09:03:00Z", "2026-03-10T09:09:00Z"), "admin-1"),
	}

	snapshot := NewAvailabilitySnapshot("AGENT-001", plan, commitments)

	assert.Equal(t, "2026-03-10", snapshot.Date)
	assert.Equal(t, 18, snapshot.OpenSlotCount)
	require.Len(t, snapshot.Blocks, 2)
	assert.Len(t, snapshot.Blocks[0].Slots, 8)
	assert.Len(t, snapshot.Blocks[1].Slots, 10)

	firstOpen := snapshot.Blocks[0].Slots[0]
	assert.Equal(t, mustRange(t, "2026-03-10T09:12:00Z", "2026-03-10T09:18:00Z"), firstOpen)
	assert.NotZero(t, snapshot.ComputedAt)
}

// TestNewAvailabilitySnapshotIgnoresInactive tests that cancelled commitments
// do not block slots
func TestNewAvailabilitySnapshotIgnoresInactive(t *testing.T) {
	window := mustRange(t, "2026-03-10T09:00:00Z", "2026-03-10T10:00:00Z")
	plan := GenerateDayPlan(window, "2026-03-10", time.UTC, 6)

	cancelled := NewCommitment("CMT-001", "AGENT-001", []string{"WO-001"},
		mustRange(t, "2026-03-10T09:00:00Z", "2026-03-10T10:00:00Z"), "admin-1")
	require.NoError(t, cancelled.Cancel())

	snapshot := NewAvailabilitySnapshot("AGENT-001", plan, []*Commitment{cancelled})
	assert.Equal(t, plan.TotalSlots(), snapshot.OpenSlotCount)
}
