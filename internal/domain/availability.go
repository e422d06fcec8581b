package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AvailabilitySnapshot caches the computed day plan for one (agent, date)
// after subtracting active commitments. It is never authoritative: every
// committing mutation touching the date deletes it, and the next
// availability read rebuilds it from the commitments.
type AvailabilitySnapshot struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	AgentID       string             `bson:"agentId" json:"agentId"`
	Date          string             `bson:"date" json:"date"` // YYYY-MM-DD in the agent's timezone
	SlotSize      int                `bson:"slotSize" json:"slotSize"`
	Blocks        []HourBlock        `bson:"blocks" json:"blocks"`
	OpenSlotCount int                `bson:"openSlotCount" json:"openSlotCount"`
	ComputedAt    time.Time          `bson:"computedAt" json:"computedAt"`
}

// NewAvailabilitySnapshot subtracts the agent's active commitments from a
// generated day plan. A mini-slot is removed wholesale as soon as it
// intersects any commitment; slots are never split.
func NewAvailabilitySnapshot(agentID string, plan DayPlan, commitments []*Commitment) *AvailabilitySnapshot {
	snapshot := &AvailabilitySnapshot{
		AgentID:    agentID,
		Date:       plan.Date,
		SlotSize:   plan.SlotSize,
		Blocks:     make([]HourBlock, 0, len(plan.Blocks)),
		ComputedAt: time.Now().UTC(),
	}

	open := 0
	for _, block := range plan.Blocks {
		remaining := HourBlock{Start: block.Start, End: block.End}
		for _, slot := range block.Slots {
			if slotBlocked(slot, commitments) {
				continue
			}
			remaining.Slots = append(remaining.Slots, slot)
			open++
		}
		snapshot.Blocks = append(snapshot.Blocks, remaining)
	}
	snapshot.OpenSlotCount = open

	return snapshot
}

func slotBlocked(slot TimeRange, commitments []*Commitment) bool {
	for _, c := range commitments {
		if !c.IsActive() {
			continue
		}
		if slot.Overlaps(c.Range()) {
			return true
		}
	}
	return false
}
