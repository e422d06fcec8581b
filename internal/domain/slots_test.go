package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMiniSlotMinutes tests handling-time rounding to the scheduling quantum
func TestMiniSlotMinutes(t *testing.T) {
	tests := []struct {
		handling int
		expect   int
	}{
		{0, 6},
		{1, 6},
		{6, 6},
		{7, 12},
		{12, 12},
		{13, 18},
		{45, 48},
		{60, 60},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expect, MiniSlotMinutes(tt.handling), "handling %d minutes", tt.handling)
	}
}

// TestGenerateDayPlanFullDay tests a standard working day with default slots
func TestGenerateDayPlanFullDay(t *testing.T) {
	window := mustRange(t, "2026-03-10T09:00:00Z", "2026-03-10T18:00:00Z")
	plan := GenerateDayPlan(window, "2026-03-10", time.UTC, 6)

	assert.Equal(t, "2026-03-10", plan.Date)
	assert.Equal(t, 6, plan.SlotSize)
	require.Len(t, plan.Blocks, 9)

	first := plan.Blocks[0]
	assert.Equal(t, window.Start, first.Start)
	assert.Equal(t, window.Start.Add(time.Hour), first.End)
	require.Len(t, first.Slots, 10)
	assert.Equal(t, 6*time.Minute, first.Slots[0].Duration())

	assert.Equal(t, 90, plan.TotalSlots())
	assert.Equal(t, window.End, plan.Blocks[len(plan.Blocks)-1].End)
}

// TestGenerateDayPlanOffsetWindow tests a window that does not start on the hour
func TestGenerateDayPlanOffsetWindow(t *testing.T) {
	window := mustRange(t, "2026-03-10T09:30:00Z", "2026-03-10T11:00:00Z")
	plan := GenerateDayPlan(window, "2026-03-10", time.UTC, 6)

	require.Len(t, plan.Blocks, 2)
	assert.Equal(t, window.Start, plan.Blocks[0].Start)
	assert.Equal(t, mustRange(t, "2026-03-10T09:30:00Z", "2026-03-10T10:00:00Z").End, plan.Blocks[0].End)
	assert.Len(t, plan.Blocks[0].Slots, 5)
	assert.Len(t, plan.Blocks[1].Slots, 10)
}

// TestGenerateDayPlanClippedRemainder tests that a remainder shorter than one
// slot becomes a single clipped slot
func TestGenerateDayPlanClippedRemainder(t *testing.T) {
	window := mustRange(t, "2026-03-10T09:00:00Z", "2026-03-10T09:16:00Z")
	plan := GenerateDayPlan(window, "2026-03-10", time.UTC, 6)

	require.Len(t, plan.Blocks, 1)
	slots := plan.Blocks[0].Slots
	require.Len(t, slots, 3)
	assert.Equal(t, 6*time.Minute, slots[0].Duration())
	assert.Equal(t, 6*time.Minute, slots[1].Duration())
	assert.Equal(t, 4*time.Minute, slots[2].Duration())
	assert.Equal(t, window.End, slots[2].End)
}

// TestGenerateDayPlanLargeSlots tests slots wider than one mini-slot quantum
func TestGenerateDayPlanLargeSlots(t *testing.T) {
	window := mustRange(t, "2026-03-10T09:00:00Z", "2026-03-10T10:00:00Z")
	plan := GenerateDayPlan(window, "2026-03-10", time.UTC, 45)

	assert.Equal(t, 48, plan.SlotSize)
	require.Len(t, plan.Blocks, 1)
	slots := plan.Blocks[0].Slots
	require.Len(t, slots, 2)
	assert.Equal(t, 48*time.Minute, slots[0].Duration())
	assert.Equal(t, 12*time.Minute, slots[1].Duration())
}

// TestGenerateDayPlanEmptyWindow tests the zero-length window edge case
func TestGenerateDayPlanEmptyWindow(t *testing.T) {
	plan := GenerateDayPlan(TimeRange{}, "2026-03-10", time.UTC, 6)
	assert.Empty(t, plan.Blocks)
	assert.Equal(t, 0, plan.TotalSlots())
}

// TestGenerateDayPlanHalfHourOffsetZone tests hour alignment in a timezone
// with a non-whole-hour UTC offset
func TestGenerateDayPlanHalfHourOffsetZone(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata") // UTC+05:30
	require.NoError(t, err)

	// 09:00-11:00 local on 2026-03-10 is 03:30-05:30 UTC.
	window := mustRange(t, "2026-03-10T03:30:00Z", "2026-03-10T05:30:00Z")
	plan := GenerateDayPlan(window, "2026-03-10", loc, 6)

	require.Len(t, plan.Blocks, 2)
	for _, block := range plan.Blocks {
		local := block.Start.In(loc)
		assert.Zero(t, local.Minute(), "block must start on a local hour boundary or the window start")
		assert.Equal(t, time.Hour, block.End.Sub(block.Start))
	}
}
