package domain

import "time"

// MiniSlotGranularity is the scheduling quantum in minutes. Handling-time
// estimates are rounded up to a multiple of it.
const MiniSlotGranularity = 6

// HourBlock is one hour-aligned section of a day plan, clipped to the
// working window and partitioned into mini-slots.
type HourBlock struct {
	Start time.Time   `bson:"start" json:"start"`
	End   time.Time   `bson:"end" json:"end"`
	Slots []TimeRange `bson:"slots" json:"slots"`
}

// DayPlan is the full mini-slot layout of one agent-day. It is a pure
// computation; persistence happens through AvailabilitySnapshot.
type DayPlan struct {
	Date     string      `bson:"date" json:"date"`
	SlotSize int         `bson:"slotSize" json:"slotSize"` // minutes
	Blocks   []HourBlock `bson:"blocks" json:"blocks"`
}

// TotalSlots counts the mini-slots across all blocks.
func (p DayPlan) TotalSlots() int {
	total := 0
	for _, b := range p.Blocks {
		total += len(b.Slots)
	}
	return total
}

// AllSlots flattens the plan into one ordered slice of mini-slots.
func (p DayPlan) AllSlots() []TimeRange {
	slots := make([]TimeRange, 0, p.TotalSlots())
	for _, b := range p.Blocks {
		slots = append(slots, b.Slots...)
	}
	return slots
}

// MiniSlotMinutes rounds a handling-time estimate up to the scheduling
// quantum, never below one quantum.
func MiniSlotMinutes(handlingMinutes int) int {
	if handlingMinutes <= MiniSlotGranularity {
		return MiniSlotGranularity
	}
	rounded := ((handlingMinutes + MiniSlotGranularity - 1) / MiniSlotGranularity) * MiniSlotGranularity
	return rounded
}

// GenerateDayPlan lays out a working window as hour-aligned blocks of
// mini-slots. Hour boundaries are taken in the agent's timezone; all emitted
// instants are UTC. A remainder shorter than one mini-slot becomes a single
// clipped slot. A zero-length window yields an empty plan.
func GenerateDayPlan(window TimeRange, date string, loc *time.Location, handlingMinutes int) DayPlan {
	plan := DayPlan{
		Date:     date,
		SlotSize: MiniSlotMinutes(handlingMinutes),
	}
	if window.IsZero() || !window.Start.Before(window.End) {
		return plan
	}

	slotSize := time.Duration(plan.SlotSize) * time.Minute
	cursor := window.Start

	for cursor.Before(window.End) {
		blockEnd := nextHourBoundary(cursor, loc)
		if blockEnd.After(window.End) {
			blockEnd = window.End
		}

		block := HourBlock{Start: cursor, End: blockEnd}
		for s := cursor; s.Before(blockEnd); {
			e := s.Add(slotSize)
			if e.After(blockEnd) {
				e = blockEnd
			}
			block.Slots = append(block.Slots, TimeRange{Start: s, End: e})
			s = e
		}

		plan.Blocks = append(plan.Blocks, block)
		cursor = blockEnd
	}

	return plan
}

// nextHourBoundary returns the first instant strictly after t that falls on
// a local hour boundary.
func nextHourBoundary(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	boundary := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, loc)
	if !boundary.After(local) {
		boundary = boundary.Add(time.Hour)
	}
	return boundary.UTC()
}
