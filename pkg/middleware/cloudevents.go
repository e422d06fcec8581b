package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/dispatch-platform/scheduling-service/pkg/logging"
)

// CloudEvents dispatch extension context keys
const (
	ContextKeyDispatchCorrelationID = "dispatchCorrelationId"
	ContextKeyDispatchWorkOrderID   = "dispatchWorkOrderId"
	ContextKeyDispatchAgentID       = "dispatchAgentId"
)

// CloudEvents dispatch extension HTTP header names
const (
	HeaderDispatchCorrelationID = "X-Dispatch-Correlation-ID"
	HeaderDispatchWorkOrderID   = "X-Dispatch-Work-Order-ID"
	HeaderDispatchAgentID       = "X-Dispatch-Agent-ID"
)

// CloudEvents middleware extracts dispatch CloudEvents extensions from HTTP
// headers and adds them to the request context for downstream logging and
// propagation. The extensions correlate scheduling operations across services.
func CloudEvents() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(HeaderDispatchCorrelationID)
		workOrderID := c.GetHeader(HeaderDispatchWorkOrderID)
		agentID := c.GetHeader(HeaderDispatchAgentID)

		if correlationID != "" {
			c.Set(ContextKeyDispatchCorrelationID, correlationID)
		}
		if workOrderID != "" {
			c.Set(ContextKeyDispatchWorkOrderID, workOrderID)
		}
		if agentID != "" {
			c.Set(ContextKeyDispatchAgentID, agentID)
		}

		// Set in Go context for logging package
		ctx := c.Request.Context()
		if correlationID != "" {
			ctx = logging.ContextWithDispatchCorrelationID(ctx, correlationID)
		}
		if workOrderID != "" {
			ctx = logging.ContextWithDispatchWorkOrderID(ctx, workOrderID)
		}
		if agentID != "" {
			ctx = logging.ContextWithDispatchAgentID(ctx, agentID)
		}
		c.Request = c.Request.WithContext(ctx)

		// Propagate headers in response (for tracing)
		if correlationID != "" {
			c.Header(HeaderDispatchCorrelationID, correlationID)
		}
		if workOrderID != "" {
			c.Header(HeaderDispatchWorkOrderID, workOrderID)
		}
		if agentID != "" {
			c.Header(HeaderDispatchAgentID, agentID)
		}

		c.Next()
	}
}

// GetDispatchCorrelationID extracts the dispatch correlation ID from Gin context
func GetDispatchCorrelationID(c *gin.Context) string {
	if val, exists := c.Get(ContextKeyDispatchCorrelationID); exists {
		if id, ok := val.(string); ok {
			return id
		}
	}
	return ""
}

// GetDispatchWorkOrderID extracts the dispatch work order ID from Gin context
func GetDispatchWorkOrderID(c *gin.Context) string {
	if val, exists := c.Get(ContextKeyDispatchWorkOrderID); exists {
		if id, ok := val.(string); ok {
			return id
		}
	}
	return ""
}

// GetDispatchAgentID extracts the dispatch agent ID from Gin context
func GetDispatchAgentID(c *gin.Context) string {
	if val, exists := c.Get(ContextKeyDispatchAgentID); exists {
		if id, ok := val.(string); ok {
			return id
		}
	}
	return ""
}

// CloudEventExtensions holds all dispatch CloudEvent extension values
type CloudEventExtensions struct {
	CorrelationID string
	WorkOrderID   string
	AgentID       string
}

// GetCloudEventExtensions extracts all CloudEvent extensions from Gin context
func GetCloudEventExtensions(c *gin.Context) CloudEventExtensions {
	return CloudEventExtensions{
		CorrelationID: GetDispatchCorrelationID(c),
		WorkOrderID:   GetDispatchWorkOrderID(c),
		AgentID:       GetDispatchAgentID(c),
	}
}

// ToLoggingContext converts CloudEventExtensions to logging.CloudEventContext
func (ce CloudEventExtensions) ToLoggingContext() logging.CloudEventContext {
	return logging.CloudEventContext{
		CorrelationID: ce.CorrelationID,
		WorkOrderID:   ce.WorkOrderID,
		AgentID:       ce.AgentID,
	}
}

// PropagationCloudEventHeaders returns dispatch CloudEvents headers for
// propagation to downstream services
func PropagationCloudEventHeaders(c *gin.Context) map[string]string {
	headers := make(map[string]string)

	if id := GetDispatchCorrelationID(c); id != "" {
		headers[HeaderDispatchCorrelationID] = id
	}
	if id := GetDispatchWorkOrderID(c); id != "" {
		headers[HeaderDispatchWorkOrderID] = id
	}
	if id := GetDispatchAgentID(c); id != "" {
		headers[HeaderDispatchAgentID] = id
	}

	return headers
}

// CloudEventsLogger middleware stores a CloudEvents-enriched logger in the
// Gin context
func CloudEventsLogger(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ext := GetCloudEventExtensions(c)
		enrichedLogger := logger.WithCloudEventContext(ext.ToLoggingContext())
		c.Set("logger", enrichedLogger)

		c.Next()
	}
}

// GetEnrichedLogger retrieves the CloudEvents-enriched logger from Gin context
func GetEnrichedLogger(c *gin.Context, fallbackLogger *logging.Logger) *logging.Logger {
	if logger, exists := c.Get("logger"); exists {
		if l, ok := logger.(*logging.Logger); ok {
			return l
		}
	}
	return fallbackLogger
}
