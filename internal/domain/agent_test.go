package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewAgent tests agent creation
func TestNewAgent(t *testing.T) {
	agent, err := NewAgent("AGENT-001", "ORG-001", "Dana Reeve", "09:00:00", "18:00:00", "Europe/Berlin")
	require.NoError(t, err)

	assert.Equal(t, "AGENT-001", agent.AgentID)
	assert.Equal(t, "ORG-001", agent.OrganizationID)
	assert.Equal(t, "Europe/Berlin", agent.Timezone)
	assert.Equal(t, 0, agent.ActiveLoad)
	assert.Equal(t, int64(0), agent.ScheduleVersion)
	assert.NotZero(t, agent.CreatedAt)

	events := agent.GetDomainEvents()
	require.Len(t, events, 1)
	onboarded, ok := events[0].(*AgentOnboardedEvent)
	require.True(t, ok)
	assert.Equal(t, "AGENT-001", onboarded.AgentID)
	assert.Equal(t, "dispatch.scheduling.agent-onboarded", onboarded.EventType())
}

// TestNewAgentValidation tests rejection of malformed windows and timezones
func TestNewAgentValidation(t *testing.T) {
	tests := []struct {
		name      string
		workStart string
		workEnd   string
		timezone  string
		wantErr   error
	}{
		{
			name:      "Empty timezone defaults to UTC",
			workStart: "09:00:00",
			workEnd:   "17:00:00",
			timezone:  "",
			wantErr:   nil,
		},
		{
			name:      "Unknown timezone rejected",
			workStart: "09:00:00",
			workEnd:   "17:00:00",
			timezone:  "Mars/Olympus",
			wantErr:   ErrInvalidTimezone,
		},
		{
			name:      "Start after end rejected",
			workStart: "18:00:00",
			workEnd:   "09:00:00",
			timezone:  "UTC",
			wantErr:   ErrInvalidWorkingWindow,
		},
		{
			name:      "Start equal to end rejected",
			workStart: "09:00:00",
			workEnd:   "09:00:00",
			timezone:  "UTC",
			wantErr:   ErrInvalidWorkingWindow,
		},
		{
			name:      "Malformed boundary rejected",
			workStart: "9am",
			workEnd:   "17:00:00",
			timezone:  "UTC",
			wantErr:   ErrInvalidWorkingWindow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent, err := NewAgent("AGENT-001", "ORG-001", "Dana Reeve", tt.workStart, tt.workEnd, tt.timezone)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "UTC", agent.Timezone)
		})
	}
}

// TestAgentWindowOn tests materializing the working window on a date
func TestAgentWindowOn(t *testing.T) {
	agent, err := NewAgent("AGENT-001", "ORG-001", "Dana Reeve", "09:00:00", "18:00:00", "Europe/Berlin")
	require.NoError(t, err)

	window, err := agent.WindowOn("2026-03-10")
	require.NoError(t, err)

	// Berlin is UTC+1 on 2026-03-10 (before DST).
	assert.Equal(t, time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC), window.Start)
	assert.Equal(t, time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC), window.End)

	_, err = agent.WindowOn("10.03.2026")
	assert.Error(t, err)
}

// TestAgentLoadAccounting tests load increments and the clamp on decrement
func TestAgentLoadAccounting(t *testing.T) {
	agent, err := NewAgent("AGENT-001", "ORG-001", "Dana Reeve", "09:00:00", "17:00:00", "")
	require.NoError(t, err)

	agent.IncrementLoad(2)
	assert.Equal(t, 2, agent.ActiveLoad)

	assert.False(t, agent.DecrementLoad())
	assert.False(t, agent.DecrementLoad())
	assert.Equal(t, 0, agent.ActiveLoad)

	assert.True(t, agent.DecrementLoad())
	assert.Equal(t, 0, agent.ActiveLoad)
}
