package main

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dispatch-platform/scheduling-service/pkg/api"
	"github.com/dispatch-platform/scheduling-service/pkg/errors"
	"github.com/dispatch-platform/scheduling-service/pkg/kafka"
	"github.com/dispatch-platform/scheduling-service/pkg/logging"
	"github.com/dispatch-platform/scheduling-service/pkg/middleware"
	"github.com/dispatch-platform/scheduling-service/pkg/mongodb"

	"github.com/dispatch-platform/scheduling-service/internal/application"
	"github.com/dispatch-platform/scheduling-service/internal/domain"
)

const serviceName = "scheduling-service"

// Config holds application configuration
type Config struct {
	ServerAddr string
	MongoDB    *mongodb.Config
	Kafka      *kafka.Config
}

func loadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8010"),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "dispatch_scheduling"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Kafka: &kafka.Config{
			Brokers:       []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			ConsumerGroup: serviceName,
			ClientID:      serviceName,
			BatchSize:     100,
			BatchTimeout:  10 * time.Millisecond,
			RequiredAcks:  -1,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func respondError(responder *middleware.ErrorResponder, err error) {
	if appErr, ok := err.(*errors.AppError); ok {
		responder.RespondWithAppError(appErr)
		return
	}
	responder.RespondInternalError(err)
}

func createAgentHandler(service *application.SchedulingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			AgentID        string `json:"agentId" binding:"required"`
			OrganizationID string `json:"organizationId"`
			Name           string `json:"name" binding:"required"`
			WorkStart      string `json:"workStart" binding:"required"`
			WorkEnd        string `json:"workEnd" binding:"required"`
			Timezone       string `json:"timezone"`
		}
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"agent.id": req.AgentID,
		})

		organizationID := req.OrganizationID
		if organizationID == "" {
			if ac := middleware.GetActorContext(c); ac != nil {
				organizationID = ac.OrganizationID
			}
		}

		cmd := application.CreateAgentCommand{
			AgentID:        req.AgentID,
			OrganizationID: organizationID,
			Name:           req.Name,
			WorkStart:      req.WorkStart,
			WorkEnd:        req.WorkEnd,
			Timezone:       req.Timezone,
		}

		agent, err := service.CreateAgent(c.Request.Context(), cmd)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusCreated, agent)
	}
}

func getAgentHandler(service *application.SchedulingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		agentID := c.Param("agentId")
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"agent.id": agentID,
		})

		agent, err := service.GetAgent(c.Request.Context(), application.GetAgentQuery{AgentID: agentID})
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, agent)
	}
}

func getAvailabilityHandler(service *application.SchedulingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		agentID := c.Param("agentId")
		date := c.Query("date")
		if date == "" {
			responder.RespondWithAppError(errors.ErrBadRequest("date query parameter is required"))
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"agent.id": agentID,
			"date":     date,
		})

		query := application.GetAvailabilityQuery{
			AgentID:     agentID,
			Date:        date,
			WorkOrderID: c.Query("workOrderId"),
		}

		availability, err := service.GetAvailability(c.Request.Context(), query)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, availability)
	}
}

func createWorkOrderHandler(service *application.SchedulingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			WorkOrderID      string     `json:"workOrderId" binding:"required"`
			OrganizationID   string     `json:"organizationId"`
			Title            string     `json:"title" binding:"required"`
			Description      string     `json:"description"`
			Priority         string     `json:"priority"`
			DueDate          *time.Time `json:"dueDate"`
			EstimatedMinutes int        `json:"estimatedMinutes"`
		}
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"work_order.id": req.WorkOrderID,
		})

		organizationID := req.OrganizationID
		if organizationID == "" {
			if ac := middleware.GetActorContext(c); ac != nil {
				organizationID = ac.OrganizationID
			}
		}

		cmd := application.CreateWorkOrderCommand{
			WorkOrderID:      req.WorkOrderID,
			OrganizationID:   organizationID,
			Title:            req.Title,
			Description:      req.Description,
			Priority:         domain.Priority(req.Priority),
			DueDate:          req.DueDate,
			EstimatedMinutes: req.EstimatedMinutes,
		}

		wo, err := service.CreateWorkOrder(c.Request.Context(), cmd)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusCreated, wo)
	}
}

func getWorkOrderHandler(service *application.SchedulingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		workOrderID := c.Param("workOrderId")
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"work_order.id": workOrderID,
		})

		wo, err := service.GetWorkOrder(c.Request.Context(), application.GetWorkOrderQuery{WorkOrderID: workOrderID})
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, wo)
	}
}

func changeWorkOrderStatusHandler(service *application.SchedulingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		workOrderID := c.Param("workOrderId")

		var req struct {
			Status string `json:"status" binding:"required"`
		}
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"work_order.id": workOrderID,
			"status":        req.Status,
		})

		ac := middleware.GetActorContext(c)
		if ac == nil || ac.ActorID == "" {
			responder.RespondWithAppError(errors.ErrUnauthorized(""))
			return
		}

		cmd := application.ChangeWorkOrderStatusCommand{
			WorkOrderID: workOrderID,
			NewStatus:   domain.WorkOrderStatus(req.Status),
			Role:        ac.Role,
			ActorID:     ac.ActorID,
		}

		wo, err := service.ChangeWorkOrderStatus(c.Request.Context(), cmd)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, wo)
	}
}

func assignSlotsHandler(service *application.SchedulingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			AgentID      string   `json:"agentId" binding:"required"`
			WorkOrderIDs []string `json:"workOrderIds" binding:"required"`
			Slots        []struct {
				StartTime time.Time `json:"startTime" binding:"required"`
				EndTime   time.Time `json:"endTime" binding:"required"`
			} `json:"slots" binding:"required"`
		}
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"agent.id":    req.AgentID,
			"work_orders": len(req.WorkOrderIDs),
		})

		ac := middleware.GetActorContext(c)
		if ac == nil || ac.ActorID == "" {
			responder.RespondWithAppError(errors.ErrUnauthorized(""))
			return
		}

		slots := make([]application.SlotInput, len(req.Slots))
		for i, slot := range req.Slots {
			slots[i] = application.SlotInput{StartTime: slot.StartTime, EndTime: slot.EndTime}
		}

		cmd := application.AssignSlotsCommand{
			AgentID:      req.AgentID,
			WorkOrderIDs: req.WorkOrderIDs,
			Slots:        slots,
			AssignedBy:   ac.ActorID,
		}

		result, err := service.AssignSlots(c.Request.Context(), cmd)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusCreated, result)
	}
}

func unassignHandler(service *application.SchedulingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			AgentID     string `json:"agentId" binding:"required"`
			WorkOrderID string `json:"workOrderId" binding:"required"`
		}
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"agent.id":      req.AgentID,
			"work_order.id": req.WorkOrderID,
		})

		ac := middleware.GetActorContext(c)
		if ac == nil || ac.ActorID == "" {
			responder.RespondWithAppError(errors.ErrUnauthorized(""))
			return
		}

		cmd := application.UnassignCommand{
			AgentID:     req.AgentID,
			WorkOrderID: req.WorkOrderID,
			ReleasedBy:  ac.ActorID,
		}

		result, err := service.Unassign(c.Request.Context(), cmd)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}
