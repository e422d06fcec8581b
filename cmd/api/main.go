package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dispatch-platform/scheduling-service/pkg/actor"
	"github.com/dispatch-platform/scheduling-service/pkg/cloudevents"
	"github.com/dispatch-platform/scheduling-service/pkg/idempotency"
	"github.com/dispatch-platform/scheduling-service/pkg/kafka"
	"github.com/dispatch-platform/scheduling-service/pkg/logging"
	"github.com/dispatch-platform/scheduling-service/pkg/metrics"
	"github.com/dispatch-platform/scheduling-service/pkg/middleware"
	"github.com/dispatch-platform/scheduling-service/pkg/mongodb"
	"github.com/dispatch-platform/scheduling-service/pkg/outbox"
	"github.com/dispatch-platform/scheduling-service/pkg/tracing"

	"github.com/dispatch-platform/scheduling-service/internal/application"
	mongoRepo "github.com/dispatch-platform/scheduling-service/internal/infrastructure/mongodb"
)

func main() {
	// Setup enhanced logger
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting scheduling-service API")

	// Load configuration
	config := loadConfig()
	ctx := context.Background()

	// Initialize OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		// Continue without tracing - don't exit
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	// Initialize Prometheus metrics
	metricsConfig := metrics.DefaultConfig(serviceName)
	m := metrics.New(metricsConfig)
	logger.Info("Metrics initialized")

	// Initialize MongoDB with instrumentation
	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	instrumentedMongo := mongodb.NewInstrumentedClient(mongoClient, m, logger)
	defer instrumentedMongo.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	// Initialize idempotency indexes
	if err := idempotency.InitializeIndexes(ctx, instrumentedMongo.Database()); err != nil {
		logger.WithError(err).Warn("Failed to initialize idempotency indexes")
	} else {
		logger.Info("Idempotency indexes initialized")
	}

	// Initialize Kafka producer with instrumentation
	kafkaProducer := kafka.NewProducer(config.Kafka)
	instrumentedProducer := kafka.NewInstrumentedProducer(kafkaProducer, m, logger)
	defer instrumentedProducer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	// Initialize CloudEvents factory
	eventFactory := cloudevents.NewEventFactory(cloudevents.SourceScheduling)

	// Initialize repositories with instrumented client and event factory
	db := instrumentedMongo.Database()
	agentRepo := mongoRepo.NewAgentRepository(db, eventFactory)
	workOrderRepo := mongoRepo.NewWorkOrderRepository(db, eventFactory)
	commitmentRepo := mongoRepo.NewCommitmentRepository(db)
	snapshotRepo := mongoRepo.NewSnapshotRepository(db)
	assignmentStore := mongoRepo.NewAssignmentStore(db, agentRepo)

	// Initialize idempotency repositories
	idempotencyKeyRepo := idempotency.NewMongoKeyRepository(db)
	processedMessageRepo := idempotency.NewMongoMessageRepository(db)
	logger.Info("Idempotency repositories initialized")

	// Initialize and start outbox publisher
	outboxPublisher := outbox.NewPublisher(
		agentRepo.GetOutboxRepository(),
		instrumentedProducer,
		logger,
		m,
		&outbox.PublisherConfig{
			PollInterval: 1 * time.Second,
			BatchSize:    100,
		},
	)
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()
	logger.Info("Outbox publisher started")

	// Initialize application service
	schedulingService := application.NewSchedulingService(
		agentRepo,
		workOrderRepo,
		commitmentRepo,
		snapshotRepo,
		assignmentStore,
		m,
		logger,
	)

	// Initialize idempotency metrics
	idempotencyMetrics := idempotency.NewMetrics(nil)

	// Start the inbound work order consumer with deduplication
	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()

	kafkaConsumer := kafka.NewConsumer(config.Kafka, logger.Logger)
	defer kafkaConsumer.Close()

	intakeHandler := idempotency.DeduplicatingHandlerWithMetrics(
		&idempotency.ConsumerConfig{
			ServiceName:     serviceName,
			Topic:           kafka.Topics.WorkOrdersInbound,
			ConsumerGroup:   config.Kafka.ConsumerGroup,
			Repository:      processedMessageRepo,
			RetentionPeriod: 7 * 24 * time.Hour,
		},
		idempotencyMetrics,
		idempotency.EventHandler(workOrderIntakeHandler(schedulingService, logger)),
	)
	kafkaConsumer.Subscribe(kafka.Topics.WorkOrdersInbound, cloudevents.WorkOrderCreated, kafka.EventHandler(intakeHandler))
	go func() {
		if err := kafkaConsumer.Start(consumerCtx); err != nil && err != context.Canceled {
			logger.WithError(err).Error("Work order consumer stopped")
		}
	}()
	logger.Info("Work order consumer started", "topic", kafka.Topics.WorkOrdersInbound)

	// Setup Gin router with middleware
	router := gin.New()

	// Apply standard middleware (includes recovery, request ID, correlation, logging, error handling)
	middlewareConfig := middleware.DefaultConfig(serviceName, logger.Logger)

	// Configure idempotency middleware for mutating endpoints
	middlewareConfig.IdempotencyConfig = &idempotency.Config{
		ServiceName:     serviceName,
		Repository:      idempotencyKeyRepo,
		RequireKey:      false,
		OnlyMutating:    true,
		MaxKeyLength:    255,
		LockTimeout:     5 * time.Minute,
		RetentionPeriod: 24 * time.Hour,
		MaxResponseSize: 1024 * 1024,
		Metrics:         idempotencyMetrics,
	}

	middleware.Setup(router, middlewareConfig)

	// Add metrics middleware
	router.Use(middleware.MetricsMiddleware(m))

	// Add tracing middleware
	router.Use(middleware.SimpleTracingMiddleware(serviceName))

	// Handle 404 and 405 errors
	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	// Health check endpoints
	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return instrumentedMongo.HealthCheck(ctx)
	}))

	// Metrics endpoint
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	// API v1 routes. The edge forwards the authenticated caller identity in
	// headers; probe and metrics endpoints stay outside the actor requirement.
	apiV1 := router.Group("/api/v1")
	apiV1.Use(middleware.ActorAuth(middleware.DefaultActorAuthConfig()))

	agents := apiV1.Group("/agents")
	{
		agents.POST("", middleware.RequireRole(actor.RoleAdmin), createAgentHandler(schedulingService, logger))
		agents.GET("/:agentId", getAgentHandler(schedulingService, logger))
		agents.GET("/:agentId/availability", getAvailabilityHandler(schedulingService, logger))
	}

	workOrders := apiV1.Group("/work-orders")
	{
		workOrders.POST("", middleware.RequireRole(actor.RoleAdmin, actor.RoleOrganization), createWorkOrderHandler(schedulingService, logger))
		workOrders.GET("/:workOrderId", getWorkOrderHandler(schedulingService, logger))
		workOrders.PUT("/:workOrderId/status", middleware.RequireRole(actor.RoleAdmin, actor.RoleAgent), changeWorkOrderStatusHandler(schedulingService, logger))
	}

	assignments := apiV1.Group("/assignments")
	assignments.Use(middleware.RequireRole(actor.RoleAdmin))
	{
		assignments.POST("", assignSlotsHandler(schedulingService, logger))
		assignments.POST("/unassign", unassignHandler(schedulingService, logger))
	}

	// Start server
	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	stopConsumer()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}
