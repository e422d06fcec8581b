package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dispatch-platform/scheduling-service/pkg/actor"
	"github.com/dispatch-platform/scheduling-service/pkg/cloudevents"
	"github.com/dispatch-platform/scheduling-service/pkg/idempotency"
	"github.com/dispatch-platform/scheduling-service/pkg/logging"
	"github.com/dispatch-platform/scheduling-service/pkg/metrics"
	"github.com/dispatch-platform/scheduling-service/pkg/middleware"

	"github.com/dispatch-platform/scheduling-service/internal/application"
	"github.com/dispatch-platform/scheduling-service/internal/domain"
)

type stubAgentRepo struct {
	SaveFn     func(ctx context.Context, agent *domain.Agent) error
	FindByIDFn func(ctx context.Context, agentID string) (*domain.Agent, error)
}

func (s *stubAgentRepo) Save(ctx context.Context, agent *domain.Agent) error {
	if s.SaveFn != nil {
		return s.SaveFn(ctx, agent)
	}
	return nil
}

func (s *stubAgentRepo) FindByID(ctx context.Context, agentID string) (*domain.Agent, error) {
	if s.FindByIDFn != nil {
		return s.FindByIDFn(ctx, agentID)
	}
	return nil, nil
}

func (s *stubAgentRepo) UpdateOpenSlotCount(ctx context.Context, agentID string, count int) error {
	return nil
}

type stubWorkOrderRepo struct {
	SaveFn     func(ctx context.Context, workOrder *domain.WorkOrder) error
	FindByIDFn func(ctx context.Context, workOrderID string) (*domain.WorkOrder, error)
}

func (s *stubWorkOrderRepo) Save(ctx context.Context, workOrder *domain.WorkOrder) error {
	if s.SaveFn != nil {
		return s.SaveFn(ctx, workOrder)
	}
	return nil
}

func (s *stubWorkOrderRepo) FindByID(ctx context.Context, workOrderID string) (*domain.WorkOrder, error) {
	if s.FindByIDFn != nil {
		return s.FindByIDFn(ctx, workOrderID)
	}
	return nil, nil
}

type stubCommitmentRepo struct {
	SaveFn                          func(ctx context.Context, commitment *domain.Commitment) error
	FindActiveByAgentFn             func(ctx context.Context, agentID string) ([]*domain.Commitment, error)
	FindActiveByAgentInRangeFn      func(ctx context.Context, agentID string, r domain.TimeRange) ([]*domain.Commitment, error)
	FindActiveByAgentAndWorkOrderFn func(ctx context.Context, agentID, workOrderID string) (*domain.Commitment, error)
}

func (s *stubCommitmentRepo) Save(ctx context.Context, commitment *domain.Commitment) error {
	if s.SaveFn != nil {
		return s.SaveFn(ctx, commitment)
	}
	return nil
}

func (s *stubCommitmentRepo) FindByID(ctx context.Context, commitmentID string) (*domain.Commitment, error) {
	return nil, nil
}

func (s *stubCommitmentRepo) FindActiveByAgent(ctx context.Context, agentID string) ([]*domain.Commitment, error) {
	if s.FindActiveByAgentFn != nil {
		return s.FindActiveByAgentFn(ctx, agentID)
	}
	return nil, nil
}

func (s *stubCommitmentRepo) FindActiveByAgentInRange(ctx context.Context, agentID string, r domain.TimeRange) ([]*domain.Commitment, error) {
	if s.FindActiveByAgentInRangeFn != nil {
		return s.FindActiveByAgentInRangeFn(ctx, agentID, r)
	}
	return nil, nil
}

func (s *stubCommitmentRepo) FindActiveByAgentAndWorkOrder(ctx context.Context, agentID, workOrderID string) (*domain.Commitment, error) {
	if s.FindActiveByAgentAndWorkOrderFn != nil {
		return s.FindActiveByAgentAndWorkOrderFn(ctx, agentID, workOrderID)
	}
	return nil, nil
}

type stubSnapshotRepo struct {
	SaveFn               func(ctx context.Context, snapshot *domain.AvailabilitySnapshot) error
	FindByAgentAndDateFn func(ctx context.Context, agentID, date string) (*domain.AvailabilitySnapshot, error)
}

func (s *stubSnapshotRepo) Save(ctx context.Context, snapshot *domain.AvailabilitySnapshot) error {
	if s.SaveFn != nil {
		return s.SaveFn(ctx, snapshot)
	}
	return nil
}

func (s *stubSnapshotRepo) FindByAgentAndDate(ctx context.Context, agentID, date string) (*domain.AvailabilitySnapshot, error) {
	if s.FindByAgentAndDateFn != nil {
		return s.FindByAgentAndDateFn(ctx, agentID, date)
	}
	return nil, nil
}

func (s *stubSnapshotRepo) DeleteByAgentAndDate(ctx context.Context, agentID, date string) error {
	return nil
}

type stubStore struct {
	agent *domain.Agent
}

func (s *stubStore) ExecuteForAgent(ctx context.Context, agentID string, fn func(txCtx context.Context, agent *domain.Agent) error) error {
	s.agent.ScheduleVersion++
	return fn(ctx, s.agent)
}

type serviceDeps struct {
	agents      *stubAgentRepo
	workOrders  *stubWorkOrderRepo
	commitments *stubCommitmentRepo
	snapshots   *stubSnapshotRepo
	store       *stubStore
}

func newTestService(deps serviceDeps) (*application.SchedulingService, *logging.Logger) {
	if deps.agents == nil {
		deps.agents = &stubAgentRepo{}
	}
	if deps.workOrders == nil {
		deps.workOrders = &stubWorkOrderRepo{}
	}
	if deps.commitments == nil {
		deps.commitments = &stubCommitmentRepo{}
	}
	if deps.snapshots == nil {
		deps.snapshots = &stubSnapshotRepo{}
	}
	logger := logging.New(logging.DefaultConfig("test"))
	m := metrics.New(metrics.DefaultConfig("test"))
	var store domain.AssignmentStore
	if deps.store != nil {
		store = deps.store
	}
	service := application.NewSchedulingService(deps.agents, deps.workOrders, deps.commitments, deps.snapshots, store, m, logger)
	return service, logger
}

func testAgent(t *testing.T) *domain.Agent {
	t.Helper()
	agent, err := domain.NewAgent("agent-1", "org-1", "Ada", "09:00:00", "18:00:00", "UTC")
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	agent.ClearDomainEvents()
	return agent
}

func openWorkOrder(t *testing.T, id string) *domain.WorkOrder {
	t.Helper()
	wo, err := domain.NewWorkOrder(id, "org-1", "Install router", "", domain.PriorityMedium, nil, 30)
	if err != nil {
		t.Fatalf("new work order: %v", err)
	}
	wo.ClearDomainEvents()
	return wo
}

func requestJSON(t *testing.T, router *gin.Engine, method, path string, payload any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func adminHeaders() map[string]string {
	return map[string]string{
		middleware.HeaderActorID:        "admin-1",
		middleware.HeaderActorRole:      "ADMIN",
		middleware.HeaderOrganizationID: "org-1",
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_ENV_KEY", "value")
	if got := getEnv("TEST_ENV_KEY", "default"); got != "value" {
		t.Fatalf("expected env value, got %q", got)
	}
	if got := getEnv("MISSING_KEY", "default"); got != "default" {
		t.Fatalf("expected default, got %q", got)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9000")
	t.Setenv("MONGODB_URI", "mongodb://example:27017")
	t.Setenv("MONGODB_DATABASE", "scheduling_test")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092")

	cfg := loadConfig()
	if cfg.ServerAddr != ":9000" {
		t.Fatalf("unexpected server addr: %q", cfg.ServerAddr)
	}
	if cfg.MongoDB.URI != "mongodb://example:27017" || cfg.MongoDB.Database != "scheduling_test" {
		t.Fatalf("unexpected mongo config: %#v", cfg.MongoDB)
	}
	if len(cfg.Kafka.Brokers) != 1 || cfg.Kafka.Brokers[0] != "broker-1:9092" {
		t.Fatalf("unexpected kafka brokers: %#v", cfg.Kafka.Brokers)
	}
}

func TestCreateAgentHandler_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service, logger := newTestService(serviceDeps{})
	router := gin.New()
	router.POST("/agents", createAgentHandler(service, logger))

	resp := requestJSON(t, router, http.MethodPost, "/agents", map[string]any{
		"agentId":        "agent-1",
		"organizationId": "org-1",
		"name":           "Ada",
		"workStart":      "09:00:00",
		"workEnd":        "18:00:00",
		"timezone":       "Europe/Berlin",
	}, nil)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCreateAgentHandler_BadRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service, logger := newTestService(serviceDeps{})
	router := gin.New()
	router.POST("/agents", createAgentHandler(service, logger))

	resp := requestJSON(t, router, http.MethodPost, "/agents", map[string]any{
		"agentId": "agent-1",
	}, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestCreateAgentHandler_InvalidWindow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service, logger := newTestService(serviceDeps{})
	router := gin.New()
	router.POST("/agents", createAgentHandler(service, logger))

	resp := requestJSON(t, router, http.MethodPost, "/agents", map[string]any{
		"agentId":   "agent-1",
		"name":      "Ada",
		"workStart": "18:00:00",
		"workEnd":   "09:00:00",
	}, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestGetAgentHandler_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service, logger := newTestService(serviceDeps{})
	router := gin.New()
	router.GET("/agents/:agentId", getAgentHandler(service, logger))

	resp := requestJSON(t, router, http.MethodGet, "/agents/agent-1", nil, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestGetAvailabilityHandler_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	agent := testAgent(t)
	deps := serviceDeps{
		agents: &stubAgentRepo{
			FindByIDFn: func(_ context.Context, _ string) (*domain.Agent, error) {
				return agent, nil
			},
		},
	}
	service, logger := newTestService(deps)
	router := gin.New()
	router.GET("/agents/:agentId/availability", getAvailabilityHandler(service, logger))

	resp := requestJSON(t, router, http.MethodGet, "/agents/agent-1/availability?date=2026-09-01", nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var dto application.AvailabilityDTO
	if err := json.Unmarshal(resp.Body.Bytes(), &dto); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if dto.OpenSlotCount != 90 {
		t.Fatalf("expected 90 open slots for an empty day, got %d", dto.OpenSlotCount)
	}
}

func TestGetAvailabilityHandler_MissingDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service, logger := newTestService(serviceDeps{})
	router := gin.New()
	router.GET("/agents/:agentId/availability", getAvailabilityHandler(service, logger))

	resp := requestJSON(t, router, http.MethodGet, "/agents/agent-1/availability", nil, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestAssignSlotsHandler_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	agent := testAgent(t)
	wo := openWorkOrder(t, "wo-1")
	deps := serviceDeps{
		workOrders: &stubWorkOrderRepo{
			FindByIDFn: func(_ context.Context, _ string) (*domain.WorkOrder, error) {
				return wo, nil
			},
		},
		store: &stubStore{agent: agent},
	}
	service, logger := newTestService(deps)
	router := gin.New()
	router.Use(middleware.ActorAuth(middleware.DefaultActorAuthConfig()))
	router.POST("/assignments", assignSlotsHandler(service, logger))

	resp := requestJSON(t, router, http.MethodPost, "/assignments", map[string]any{
		"agentId":      "agent-1",
		"workOrderIds": []string{"wo-1"},
		"slots": []map[string]any{
			{"startTime": "2026-09-01T09:00:00Z", "endTime": "2026-09-01T09:30:00Z"},
		},
	}, adminHeaders())
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var result application.AssignmentResultDTO
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(result.Commitments) != 1 {
		t.Fatalf("expected 1 commitment, got %d", len(result.Commitments))
	}
	if wo.Status != domain.WorkOrderStatusOngoing {
		t.Fatalf("expected work order to move to Ongoing, got %s", wo.Status)
	}
}

func TestAssignSlotsHandler_MissingActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service, logger := newTestService(serviceDeps{store: &stubStore{agent: testAgent(t)}})
	router := gin.New()
	router.Use(middleware.ActorAuth(middleware.DefaultActorAuthConfig()))
	router.POST("/assignments", assignSlotsHandler(service, logger))

	resp := requestJSON(t, router, http.MethodPost, "/assignments", map[string]any{
		"agentId":      "agent-1",
		"workOrderIds": []string{"wo-1"},
		"slots": []map[string]any{
			{"startTime": "2026-09-01T09:00:00Z", "endTime": "2026-09-01T09:30:00Z"},
		},
	}, nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestAssignSlotsHandler_Conflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	agent := testAgent(t)
	wo := openWorkOrder(t, "wo-1")
	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	held, err := domain.NewTimeRange(start, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("new time range: %v", err)
	}
	existing := domain.NewCommitment("cmt-existing", "agent-1", []string{"wo-0"}, held, "admin-0")
	deps := serviceDeps{
		workOrders: &stubWorkOrderRepo{
			FindByIDFn: func(_ context.Context, _ string) (*domain.WorkOrder, error) {
				return wo, nil
			},
		},
		commitments: &stubCommitmentRepo{
			FindActiveByAgentFn: func(_ context.Context, _ string) ([]*domain.Commitment, error) {
				return []*domain.Commitment{existing}, nil
			},
		},
		store: &stubStore{agent: agent},
	}
	service, logger := newTestService(deps)
	router := gin.New()
	router.Use(middleware.ActorAuth(middleware.DefaultActorAuthConfig()))
	router.POST("/assignments", assignSlotsHandler(service, logger))

	resp := requestJSON(t, router, http.MethodPost, "/assignments", map[string]any{
		"agentId":      "agent-1",
		"workOrderIds": []string{"wo-1"},
		"slots": []map[string]any{
			{"startTime": "2026-09-01T09:30:00Z", "endTime": "2026-09-01T10:00:00Z"},
		},
	}, adminHeaders())
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", resp.Code, resp.Body.String())
	}
}

// memoryKeyRepo keeps idempotency keys in a map, enough to exercise the
// replay path of the HTTP middleware.
type memoryKeyRepo struct {
	keys map[string]*idempotency.IdempotencyKey
}

func newMemoryKeyRepo() *memoryKeyRepo {
	return &memoryKeyRepo{keys: make(map[string]*idempotency.IdempotencyKey)}
}

func (r *memoryKeyRepo) AcquireLock(_ context.Context, key *idempotency.IdempotencyKey) (*idempotency.IdempotencyKey, bool, error) {
	id := key.ServiceID + "/" + key.Key
	if existing, ok := r.keys[id]; ok {
		return existing, false, nil
	}
	now := time.Now().UTC()
	key.ID = primitive.NewObjectID()
	key.LockedAt = &now
	r.keys[id] = key
	return key, true, nil
}

func (r *memoryKeyRepo) ReleaseLock(_ context.Context, _ string) error { return nil }

func (r *memoryKeyRepo) StoreResponse(_ context.Context, keyID string, code int, body []byte, headers map[string]string) error {
	for _, key := range r.keys {
		if key.ID.Hex() == keyID {
			now := time.Now().UTC()
			key.ResponseCode = code
			key.ResponseBody = body
			key.ResponseHeaders = headers
			key.CompletedAt = &now
		}
	}
	return nil
}

func (r *memoryKeyRepo) UpdateRecoveryPoint(_ context.Context, _, _ string) error { return nil }

func (r *memoryKeyRepo) Get(_ context.Context, _, _ string) (*idempotency.IdempotencyKey, error) {
	return nil, idempotency.ErrNotFound
}

func (r *memoryKeyRepo) GetByID(_ context.Context, _ string) (*idempotency.IdempotencyKey, error) {
	return nil, idempotency.ErrNotFound
}

func (r *memoryKeyRepo) Clean(_ context.Context, _ time.Time) (int64, error) { return 0, nil }

func (r *memoryKeyRepo) EnsureIndexes(_ context.Context) error { return nil }

func TestAssignSlotsHandler_IdempotencyKeyReplaysResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	agent := testAgent(t)
	wo := openWorkOrder(t, "wo-1")
	deps := serviceDeps{
		workOrders: &stubWorkOrderRepo{
			FindByIDFn: func(_ context.Context, _ string) (*domain.WorkOrder, error) {
				return wo, nil
			},
		},
		store: &stubStore{agent: agent},
	}
	service, logger := newTestService(deps)

	router := gin.New()
	cfg := middleware.DefaultConfig("test", logger.Logger)
	cfg.IdempotencyConfig = &idempotency.Config{
		ServiceName:     "test",
		Repository:      newMemoryKeyRepo(),
		OnlyMutating:    true,
		MaxKeyLength:    255,
		LockTimeout:     5 * time.Minute,
		RetentionPeriod: 24 * time.Hour,
		MaxResponseSize: 1024 * 1024,
	}
	middleware.Setup(router, cfg)
	router.Use(middleware.ActorAuth(middleware.DefaultActorAuthConfig()))
	router.POST("/assignments", assignSlotsHandler(service, logger))

	headers := adminHeaders()
	headers[idempotency.HeaderIdempotencyKey] = "assign-retry-1"
	payload := map[string]any{
		"agentId":      "agent-1",
		"workOrderIds": []string{"wo-1"},
		"slots": []map[string]any{
			{"startTime": "2026-09-01T09:00:00Z", "endTime": "2026-09-01T09:30:00Z"},
		},
	}

	first := requestJSON(t, router, http.MethodPost, "/assignments", payload, headers)
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", first.Code, first.Body.String())
	}

	// The retry must replay the cached response instead of re-running the
	// assignment, which would fail now that the work order is Ongoing.
	second := requestJSON(t, router, http.MethodPost, "/assignments", payload, headers)
	if second.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201, got %d: %s", second.Code, second.Body.String())
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("expected identical replayed body, got %s vs %s", first.Body.String(), second.Body.String())
	}
	if agent.ScheduleVersion != 1 {
		t.Fatalf("expected a single committed assignment, got version %d", agent.ScheduleVersion)
	}

	// Same key with different parameters is rejected outright.
	payload["workOrderIds"] = []string{"wo-2"}
	mismatch := requestJSON(t, router, http.MethodPost, "/assignments", payload, headers)
	if mismatch.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", mismatch.Code, mismatch.Body.String())
	}
}

func TestUnassignHandler_NotAssigned(t *testing.T) {
	gin.SetMode(gin.TestMode)
	agent := testAgent(t)
	wo := openWorkOrder(t, "wo-1")
	deps := serviceDeps{
		workOrders: &stubWorkOrderRepo{
			FindByIDFn: func(_ context.Context, _ string) (*domain.WorkOrder, error) {
				return wo, nil
			},
		},
		store: &stubStore{agent: agent},
	}
	service, logger := newTestService(deps)
	router := gin.New()
	router.Use(middleware.ActorAuth(middleware.DefaultActorAuthConfig()))
	router.POST("/assignments/unassign", unassignHandler(service, logger))

	resp := requestJSON(t, router, http.MethodPost, "/assignments/unassign", map[string]any{
		"agentId":     "agent-1",
		"workOrderId": "wo-1",
	}, adminHeaders())
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestChangeWorkOrderStatusHandler_Forbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	wo := openWorkOrder(t, "wo-1")
	deps := serviceDeps{
		workOrders: &stubWorkOrderRepo{
			FindByIDFn: func(_ context.Context, _ string) (*domain.WorkOrder, error) {
				return wo, nil
			},
		},
	}
	service, logger := newTestService(deps)
	router := gin.New()
	router.Use(middleware.ActorAuth(middleware.DefaultActorAuthConfig()))
	router.PUT("/work-orders/:workOrderId/status", changeWorkOrderStatusHandler(service, logger))

	resp := requestJSON(t, router, http.MethodPut, "/work-orders/wo-1/status", map[string]any{
		"status": "Ongoing",
	}, map[string]string{
		middleware.HeaderActorID:        "org-user-1",
		middleware.HeaderActorRole:      "ORGANIZATION",
		middleware.HeaderOrganizationID: "org-1",
	})
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestChangeWorkOrderStatusHandler_AdminReopen(t *testing.T) {
	gin.SetMode(gin.TestMode)
	wo := openWorkOrder(t, "wo-1")
	if err := wo.TransitionTo(domain.WorkOrderStatusOngoing, actor.RoleAdmin, "admin-1"); err != nil {
		t.Fatalf("move to ongoing: %v", err)
	}
	if err := wo.TransitionTo(domain.WorkOrderStatusCompleted, actor.RoleAdmin, "admin-1"); err != nil {
		t.Fatalf("move to completed: %v", err)
	}
	deps := serviceDeps{
		workOrders: &stubWorkOrderRepo{
			FindByIDFn: func(_ context.Context, _ string) (*domain.WorkOrder, error) {
				return wo, nil
			},
		},
	}
	service, logger := newTestService(deps)
	router := gin.New()
	router.Use(middleware.ActorAuth(middleware.DefaultActorAuthConfig()))
	router.PUT("/work-orders/:workOrderId/status", changeWorkOrderStatusHandler(service, logger))

	resp := requestJSON(t, router, http.MethodPut, "/work-orders/wo-1/status", map[string]any{
		"status": "Open",
	}, adminHeaders())
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if wo.Status != domain.WorkOrderStatusOpen {
		t.Fatalf("expected work order back to Open, got %s", wo.Status)
	}
}

func newIntakeEvent(t *testing.T, data map[string]any) *cloudevents.DispatchCloudEvent {
	t.Helper()
	return &cloudevents.DispatchCloudEvent{
		SpecVersion: "1.0",
		Type:        cloudevents.WorkOrderCreated,
		Source:      "/dispatch/test",
		ID:          "evt-1",
		Time:        time.Now().UTC(),
		Data:        data,
	}
}

func TestWorkOrderIntakeHandler_RegistersAndDeduplicates(t *testing.T) {
	saved := 0
	deps := serviceDeps{
		workOrders: &stubWorkOrderRepo{
			SaveFn: func(_ context.Context, _ *domain.WorkOrder) error {
				saved++
				return nil
			},
		},
	}
	service, logger := newTestService(deps)
	handler := workOrderIntakeHandler(service, logger)

	event := newIntakeEvent(t, map[string]any{
		"workOrderId":      "wo-inbound-1",
		"organizationId":   "org-1",
		"title":            "Replace modem",
		"priority":         "High",
		"estimatedMinutes": 45,
	})
	if err := handler(context.Background(), event); err != nil {
		t.Fatalf("intake failed: %v", err)
	}
	if saved != 1 {
		t.Fatalf("expected 1 save, got %d", saved)
	}
}

func TestWorkOrderIntakeHandler_DropsPayloadWithoutID(t *testing.T) {
	saved := 0
	deps := serviceDeps{
		workOrders: &stubWorkOrderRepo{
			SaveFn: func(_ context.Context, _ *domain.WorkOrder) error {
				saved++
				return nil
			},
		},
	}
	service, logger := newTestService(deps)
	handler := workOrderIntakeHandler(service, logger)

	event := newIntakeEvent(t, map[string]any{"title": "Orphan payload"})
	if err := handler(context.Background(), event); err != nil {
		t.Fatalf("expected orphan payload to be dropped, got error: %v", err)
	}
	if saved != 0 {
		t.Fatalf("expected no save, got %d", saved)
	}
}
