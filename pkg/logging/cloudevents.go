package logging

import "context"

// CloudEvent extension context keys
const (
	DispatchCorrelationIDKey contextKey = "dispatchCorrelationId"
	DispatchWorkOrderIDKey   contextKey = "dispatchWorkOrderId"
	DispatchAgentIDKey       contextKey = "dispatchAgentId"
)

// CloudEventContext holds dispatch CloudEvent extension values for logging
type CloudEventContext struct {
	CorrelationID string
	WorkOrderID   string
	AgentID       string
}

// WithCloudEventContext creates a logger enriched with CloudEvent extension
// attributes
func (l *Logger) WithCloudEventContext(ce CloudEventContext) *Logger {
	attrs := make([]any, 0, 6)
	if ce.CorrelationID != "" {
		attrs = append(attrs, "dispatchCorrelationId", ce.CorrelationID)
	}
	if ce.WorkOrderID != "" {
		attrs = append(attrs, "workOrderId", ce.WorkOrderID)
	}
	if ce.AgentID != "" {
		attrs = append(attrs, "agentId", ce.AgentID)
	}
	if len(attrs) == 0 {
		return l
	}

	return &Logger{
		Logger:      l.Logger.With(attrs...),
		serviceName: l.serviceName,
		environment: l.environment,
		version:     l.version,
	}
}

// ContextWithCloudEventExtensions adds all dispatch CloudEvent extensions to
// context in one call
func ContextWithCloudEventExtensions(ctx context.Context, correlationID, workOrderID, agentID string) context.Context {
	if correlationID != "" {
		ctx = ContextWithDispatchCorrelationID(ctx, correlationID)
	}
	if workOrderID != "" {
		ctx = ContextWithDispatchWorkOrderID(ctx, workOrderID)
	}
	if agentID != "" {
		ctx = ContextWithDispatchAgentID(ctx, agentID)
	}
	return ctx
}

// ContextWithDispatchCorrelationID adds the dispatch correlation ID to context
func ContextWithDispatchCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, DispatchCorrelationIDKey, id)
}

// ContextWithDispatchWorkOrderID adds the dispatch work order ID to context
func ContextWithDispatchWorkOrderID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, DispatchWorkOrderIDKey, id)
}

// ContextWithDispatchAgentID adds the dispatch agent ID to context
func ContextWithDispatchAgentID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, DispatchAgentIDKey, id)
}
