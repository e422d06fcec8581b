package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRange(t *testing.T, start, end string) TimeRange {
	t.Helper()
	s, err := time.Parse(time.RFC3339, start)
	require.NoError(t, err)
	e, err := time.Parse(time.RFC3339, end)
	require.NoError(t, err)
	r, err := NewTimeRange(s, e)
	require.NoError(t, err)
	return r
}

// TestNewTimeRange tests range construction
func TestNewTimeRange(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	_, err := NewTimeRange(start, start)
	assert.ErrorIs(t, err, ErrInvalidTimeRange)

	_, err = NewTimeRange(start.Add(time.Hour), start)
	assert.ErrorIs(t, err, ErrInvalidTimeRange)

	r, err := NewTimeRange(start, start.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, time.Hour, r.Duration())
}

// TestTimeRangeOverlaps tests half-open overlap semantics
func TestTimeRangeOverlaps(t *testing.T) {
	tests := []struct {
		name     string
		a        TimeRange
		b        TimeRange
		overlaps bool
	}{
		{
			name:     "Disjoint ranges do not overlap",
			a:        mustRange(t, "2026-03-10T09:00:00Z", "2026-03-10T10:00:00Z"),
			b:        mustRange(t, "2026-03-10T11:00:00Z", "2026-03-10T12:00:00Z"),
			overlaps: false,
		},
		{
			name:     "Touching boundaries do not overlap",
			a:        mustRange(t, "2026-03-10T09:00:00Z", "2026-03-10T11:00:00Z"),
			b:        mustRange(t, "2026-03-10T11:00:00Z", "2026-03-10T12:00:00Z"),
			overlaps: false,
		},
		{
			name:     "Partial intersection overlaps",
			a:        mustRange(t, "2026-03-10T09:00:00Z", "2026-03-10T11:00:00Z"),
			b:        mustRange(t, "2026-03-10T10:30:00Z", "2026-03-10T11:30:00Z"),
			overlaps: true,
		},
		{
			name:     "Contained range overlaps",
			a:        mustRange(t, "2026-03-10T09:00:00Z", "2026-03-10T12:00:00Z"),
			b:        mustRange(t, "2026-03-10T10:00:00Z", "2026-03-10T10:06:00Z"),
			overlaps: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.overlaps, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.overlaps, tt.b.Overlaps(tt.a))
		})
	}
}

// TestMergeRanges tests gap-tolerant merging of candidate slots
func TestMergeRanges(t *testing.T) {
	tests := []struct {
		name   string
		input  []TimeRange
		expect []TimeRange
	}{
		{
			name:   "Empty input yields nil",
			input:  nil,
			expect: nil,
		},
		{
			name: "Gap within tolerance merges",
			input: []TimeRange{
				mustRange(t, "2026-03-10T09:00:00Z", "2026-03-10T09:30:00Z"),
				mustRange(t, "2026-03-10T09:35:00Z", "2026-03-10T10:00:00Z"),
			},
			expect: []TimeRange{
				mustRange(t, "2026-03-10T09:00:00Z", "2026-03-10T10:00:00Z"),
			},
		},
		{
			name: "Gap beyond tolerance stays split",
			input: []TimeRange{
				mustRange(t, "2026-03-10T09:00:00Z", "2026-03-10T09:30:00Z"),
				mustRange(t, "2026-03-10T09:36:00Z", "2026-03-10T10:00:00Z"),
			},
			expect: []TimeRange{
				mustRange(t, "2026-03-10T09:00:00Z", "2026-03-10T09:30:00Z"),
				mustRange(t, "2026-03-10T09:36:00Z", "2026-03-10T10:00:00Z"),
			},
		},
		{
			name: "Unsorted input is sorted before merging",
			input: []TimeRange{
				mustRange(t, "2026-03-10T10:00:00Z", "2026-03-10T10:06:00Z"),
				mustRange(t, "2026-03-10T09:00:00Z", "2026-03-10T09:06:00Z"),
				mustRange(t, "2026-03-10T09:06:00Z", "2026-03-10T09:12:00Z"),
			},
			expect: []TimeRange{
				mustRange(t, "2026-03-10T09:00:00Z", "2026-03-10T09:12:00Z"),
				mustRange(t, "2026-03-10T10:00:00Z", "2026-03-10T10:06:00Z"),
			},
		},
		{
			name: "Overlapping inputs are unioned",
			input: []TimeRange{
				mustRange(t, "2026-03-10T09:00:00Z", "2026-03-10T09:30:00Z"),
				mustRange(t, "2026-03-10T09:12:00Z", "2026-03-10T09:18:00Z"),
			},
			expect: []TimeRange{
				mustRange(t, "2026-03-10T09:00:00Z", "2026-03-10T09:30:00Z"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeRanges(tt.input, MergeGapTolerance)
			assert.Equal(t, tt.expect, got)
		})
	}
}
