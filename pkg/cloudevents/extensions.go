package cloudevents

import (
	"github.com/dispatch-platform/scheduling-service/pkg/actor"
)

// CloudEvents extension attribute names for dispatch context
const (
	// Actor context extensions (used in CloudEvents and message headers)
	ExtOrganizationID = "dispatchorganizationid"
	ExtActorID        = "dispatchactorid"

	// Business context extensions
	ExtCorrelationID = "dispatchcorrelationid"
	ExtTraceParent   = "traceparent"
)

// SetActorContext sets actor context extensions on a DispatchCloudEvent
func (e *DispatchCloudEvent) SetActorContext(ac *actor.Context) {
	if ac == nil {
		return
	}
	e.ActorID = ac.ActorID
	e.OrganizationID = ac.OrganizationID
}

// GetActorContext extracts actor context from a DispatchCloudEvent
func (e *DispatchCloudEvent) GetActorContext() *actor.Context {
	return &actor.Context{
		ActorID:        e.ActorID,
		OrganizationID: e.OrganizationID,
	}
}

// WithActorContext is a builder method that sets actor context and returns
// the event
func (e *DispatchCloudEvent) WithActorContext(ac *actor.Context) *DispatchCloudEvent {
	e.SetActorContext(ac)
	return e
}

// WithCorrelation sets the correlation ID and returns the event
func (e *DispatchCloudEvent) WithCorrelation(correlationID string) *DispatchCloudEvent {
	e.CorrelationID = correlationID
	return e
}

// WithTraceParent sets the W3C traceparent and returns the event
func (e *DispatchCloudEvent) WithTraceParent(traceParent string) *DispatchCloudEvent {
	e.TraceParent = traceParent
	return e
}
