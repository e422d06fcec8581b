package domain

import (
	"fmt"
	"sort"
	"time"
)

// MergeGapTolerance is the maximum gap between two candidate slots that still
// collapses them into a single committed range.
const MergeGapTolerance = 5 * time.Minute

// TimeRange is an immutable half-open interval [Start, End) on UTC instants.
type TimeRange struct {
	Start time.Time `bson:"start" json:"start"`
	End   time.Time `bson:"end" json:"end"`
}

// NewTimeRange creates a TimeRange, rejecting empty or inverted intervals.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if !start.Before(end) {
		return TimeRange{}, fmt.Errorf("%w: start %s is not before end %s",
			ErrInvalidTimeRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return TimeRange{Start: start.UTC(), End: end.UTC()}, nil
}

// Overlaps reports whether two half-open ranges intersect. Touching
// boundaries (a.End == b.Start) do not overlap.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Contains reports whether other lies entirely within r.
func (r TimeRange) Contains(other TimeRange) bool {
	return !other.Start.Before(r.Start) && !other.End.After(r.End)
}

// Duration returns the length of the range.
func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// IsZero reports whether the range is uninitialized.
func (r TimeRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

func (r TimeRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
}

// MergeRanges sorts ranges by start and collapses neighbours whose gap is at
// most tolerance into single ranges. Overlapping inputs are unioned. The
// input slice is not modified.
func MergeRanges(ranges []TimeRange, tolerance time.Duration) []TimeRange {
	if len(ranges) == 0 {
		return nil
	}

	sorted := make([]TimeRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []TimeRange{sorted[0]}
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !r.Start.After(last.End.Add(tolerance)) {
			if r.End.After(last.End) {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}

	return merged
}
