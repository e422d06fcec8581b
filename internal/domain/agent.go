package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// timeOfDayLayout is the wire format for working window boundaries.
const timeOfDayLayout = "15:04:05"

// dateLayout is the wire format for availability dates.
const dateLayout = "2006-01-02"

// Agent is the aggregate root for schedulable agents. Its scheduleVersion is
// bumped inside every committing transaction touching the agent, which makes
// the agent document the per-agent serialization point for concurrent
// assignments.
type Agent struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	AgentID         string             `bson:"agentId" json:"agentId"`
	OrganizationID  string             `bson:"organizationId" json:"organizationId"`
	Name            string             `bson:"name" json:"name"`
	WorkStart       string             `bson:"workStart" json:"workStart"` // HH:mm:ss, inclusive
	WorkEnd         string             `bson:"workEnd" json:"workEnd"`     // HH:mm:ss, exclusive
	Timezone        string             `bson:"timezone" json:"timezone"`   // IANA name, UTC when empty
	ActiveLoad      int                `bson:"activeLoad" json:"activeLoad"`
	OpenSlotCount   int                `bson:"openSlotCount" json:"openSlotCount"`
	ScheduleVersion int64              `bson:"scheduleVersion" json:"scheduleVersion"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
	DomainEvents    []DomainEvent      `bson:"-" json:"-"`
}

// NewAgent creates an Agent aggregate, validating the working window and
// timezone.
func NewAgent(agentID, organizationID, name, workStart, workEnd, timezone string) (*Agent, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTimezone, timezone)
	}

	startMin, err := parseTimeOfDay(workStart)
	if err != nil {
		return nil, err
	}
	endMin, err := parseTimeOfDay(workEnd)
	if err != nil {
		return nil, err
	}
	if startMin >= endMin {
		return nil, fmt.Errorf("%w: workStart %s must precede workEnd %s", ErrInvalidWorkingWindow, workStart, workEnd)
	}

	now := time.Now().UTC()
	agent := &Agent{
		AgentID:        agentID,
		OrganizationID: organizationID,
		Name:           name,
		WorkStart:      workStart,
		WorkEnd:        workEnd,
		Timezone:       timezone,
		CreatedAt:      now,
		UpdatedAt:      now,
		DomainEvents:   make([]DomainEvent, 0),
	}

	agent.AddDomainEvent(&AgentOnboardedEvent{
		AgentID:        agentID,
		OrganizationID: organizationID,
		Name:           name,
		WorkStart:      workStart,
		WorkEnd:        workEnd,
		Timezone:       timezone,
		OnboardedAt:    now,
	})

	return agent, nil
}

// Location resolves the agent's IANA timezone, defaulting to UTC.
func (a *Agent) Location() *time.Location {
	if a.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WindowOn materializes the working window on a calendar date as a UTC
// half-open range. The date is interpreted in the agent's timezone.
func (a *Agent) WindowOn(date string) (TimeRange, error) {
	loc := a.Location()
	day, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		return TimeRange{}, fmt.Errorf("invalid date %q: %w", date, err)
	}

	startMin, err := parseTimeOfDay(a.WorkStart)
	if err != nil {
		return TimeRange{}, err
	}
	endMin, err := parseTimeOfDay(a.WorkEnd)
	if err != nil {
		return TimeRange{}, err
	}
	if startMin >= endMin {
		// Zero-length window; callers treat it as an empty day plan.
		return TimeRange{}, nil
	}

	start := day.Add(time.Duration(startMin) * time.Minute)
	end := day.Add(time.Duration(endMin) * time.Minute)
	return TimeRange{Start: start.UTC(), End: end.UTC()}, nil
}

// IncrementLoad records one more active commitment.
func (a *Agent) IncrementLoad(n int) {
	a.ActiveLoad += n
	a.UpdatedAt = time.Now().UTC()
}

// DecrementLoad records one fewer active commitment, clamping at zero.
// It reports whether the clamp fired so the caller can log the anomaly.
func (a *Agent) DecrementLoad() (clamped bool) {
	if a.ActiveLoad <= 0 {
		a.ActiveLoad = 0
		clamped = true
	} else {
		a.ActiveLoad--
	}
	a.UpdatedAt = time.Now().UTC()
	return clamped
}

// SetOpenSlotCount records the mini-slot count from the latest availability
// computation.
func (a *Agent) SetOpenSlotCount(count int) {
	a.OpenSlotCount = count
	a.UpdatedAt = time.Now().UTC()
}

// AddDomainEvent adds a domain event
func (a *Agent) AddDomainEvent(event DomainEvent) {
	a.DomainEvents = append(a.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (a *Agent) ClearDomainEvents() {
	a.DomainEvents = make([]DomainEvent, 0)
}

// GetDomainEvents returns all domain events
func (a *Agent) GetDomainEvents() []DomainEvent {
	return a.DomainEvents
}

// parseTimeOfDay parses an HH:mm:ss boundary into minutes since midnight.
// Seconds must be zero-padded but are ignored for window arithmetic.
func parseTimeOfDay(value string) (int, error) {
	t, err := time.Parse(timeOfDayLayout, value)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not HH:mm:ss", ErrInvalidWorkingWindow, value)
	}
	return t.Hour()*60 + t.Minute(), nil
}
