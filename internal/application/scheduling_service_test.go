package application

import (
	"context"
	"testing"
	"time"

	appErrors "github.com/dispatch-platform/scheduling-service/pkg/errors"
	"github.com/dispatch-platform/scheduling-service/pkg/logging"
	"github.com/dispatch-platform/scheduling-service/pkg/metrics"

	"github.com/dispatch-platform/scheduling-service/internal/domain"
)

type stubAgentRepo struct {
	SaveFn                func(ctx context.Context, agent *domain.Agent) error
	FindByIDFn            func(ctx context.Context, agentID string) (*domain.Agent, error)
	UpdateOpenSlotCountFn func(ctx context.Context, agentID string, count int) error
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
	if s.UpdateOpenSlotCountFn != nil {
		return s.UpdateOpenSlotCountFn(ctx, agentID, count)
	}
	return nil
}

type stubWorkOrderRepo struct {
	SaveFn     func(ctx context.Context, wo *domain.WorkOrder) error
	FindByIDFn func(ctx context.Context, workOrderID string) (*domain.WorkOrder, error)
}

func (s *stubWorkOrderRepo) Save(ctx context.Context, wo *domain.WorkOrder) error {
	if s.SaveFn != nil {
		return s.SaveFn(ctx, wo)
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
	SaveFn                          func(ctx context.Context, c *domain.Commitment) error
	FindByIDFn                      func(ctx context.Context, commitmentID string) (*domain.Commitment, error)
	FindActiveByAgentFn             func(ctx context.Context, agentID string) ([]*domain.Commitment, error)
	FindActiveByAgentInRangeFn      func(ctx context.Context, agentID string, r domain.TimeRange) ([]*domain.Commitment, error)
	FindActiveByAgentAndWorkOrderFn func(ctx context.Context, agentID, workOrderID string) (*domain.Commitment, error)
}

func (s *stubCommitmentRepo) Save(ctx context.Context, c *domain.Commitment) error {
	if s.SaveFn != nil {
		return s.SaveFn(ctx, c)
	}
	return nil
}

func (s *stubCommitmentRepo) FindByID(ctx context.Context, commitmentID string) (*domain.Commitment, error) {
	if s.FindByIDFn != nil {
		return s.FindByIDFn(ctx, commitmentID)
	}
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
	DeleteFn             func(ctx context.Context, agentID, date string) error
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
	if s.DeleteFn != nil {
		return s.DeleteFn(ctx, agentID, date)
	}
	return nil
}

// stubStore mimics the transactional store: it loads the agent, bumps the
// schedule version and runs fn with a plain context.
type stubStore struct {
	agent *domain.Agent
}

func (s *stubStore) ExecuteForAgent(ctx context.Context, agentID string, fn func(txCtx context.Context, agent *domain.Agent) error) error {
	if s.agent == nil || s.agent.AgentID != agentID {
		return appErrors.ErrNotFoundWithID("agent", agentID)
	}
	s.agent.ScheduleVersion++
	return fn(ctx, s.agent)
}

type serviceFixture struct {
	agents      *stubAgentRepo
	workOrders  *stubWorkOrderRepo
	commitments *stubCommitmentRepo
	snapshots   *stubSnapshotRepo
	store       *stubStore
	service     *SchedulingService
}

func newFixture(agent *domain.Agent) *serviceFixture {
	f := &serviceFixture{
		agents:      &stubAgentRepo{},
		workOrders:  &stubWorkOrderRepo{},
		commitments: &stubCommitmentRepo{},
		snapshots:   &stubSnapshotRepo{},
		store:       &stubStore{agent: agent},
	}
	logger := logging.New(logging.DefaultConfig("test"))
	f.service = NewSchedulingService(f.agents, f.workOrders, f.commitments, f.snapshots,
		f.store, metrics.New(metrics.DefaultConfig("test")), logger)
	return f
}

func testAgent(t *testing.T) *domain.Agent {
	t.Helper()
	agent, err := domain.NewAgent("agent-1", "org-1", "Ada", "09:00:00", "18:00:00", "UTC")
	if err != nil {
		t.Fatalf("unexpected agent err: %v", err)
	}
	agent.ClearDomainEvents()
	return agent
}

func openWorkOrders(t *testing.T, ids ...string) map[string]*domain.WorkOrder {
	t.Helper()
	out := make(map[string]*domain.WorkOrder, len(ids))
	for _, id := range ids {
		wo, err := domain.NewWorkOrder(id, "org-1", "Job "+id, "", domain.PriorityMedium, nil, 30)
		if err != nil {
			t.Fatalf("unexpected work order err: %v", err)
		}
		wo.ClearDomainEvents()
		out[id] = wo
	}
	return out
}

func utc(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("bad timestamp %q: %v", value, err)
	}
	return ts
}

func TestSchedulingService_AssignSlots_MergesAdjacentSlots(t *testing.T) {
	agent := testAgent(t)
	f := newFixture(agent)

	workOrders := openWorkOrders(t, "wo-1", "wo-2")
	f.workOrders.FindByIDFn = func(_ context.Context, id string) (*domain.WorkOrder, error) {
		return workOrders[id], nil
	}

	var savedCommitments []*domain.Commitment
	f.commitments.SaveFn = func(_ context.Context, c *domain.Commitment) error {
		savedCommitments = append(savedCommitments, c)
		return nil
	}

	deletedSnapshots := 0
	f.snapshots.DeleteFn = func(_ context.Context, agentID, date string) error {
		if agentID != "agent-1" || date != "2026-03-10" {
			t.Fatalf("unexpected snapshot delete %s/%s", agentID, date)
		}
		deletedSnapshots++
		return nil
	}

	result, err := f.service.AssignSlots(context.Background(), AssignSlotsCommand{
		AgentID:      "agent-1",
		WorkOrderIDs: []string{"wo-1", "wo-2"},
		Slots: []SlotInput{
			{StartTime: utc(t, "2026-03-10T09:00:00Z"), EndTime: utc(t, "2026-03-10T09:30:00Z")},
			{StartTime: utc(t, "2026-03-10T09:35:00Z"), EndTime: utc(t, "2026-03-10T10:00:00Z")},
		},
		AssignedBy: "admin-1",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	// The 5-minute gap collapses both slots into one commitment.
	if len(savedCommitments) != 1 {
		t.Fatalf("expected 1 commitment, got %d", len(savedCommitments))
	}
	c := savedCommitments[0]
	if !c.StartTime.Equal(utc(t, "2026-03-10T09:00:00Z")) || !c.EndTime.Equal(utc(t, "2026-03-10T10:00:00Z")) {
		t.Fatalf("unexpected merged range %v", c.Range())
	}
	if len(c.WorkOrderIDs) != 2 {
		t.Fatalf("expected merge group of 2, got %v", c.WorkOrderIDs)
	}

	for _, wo := range workOrders {
		if wo.Status != domain.WorkOrderStatusOngoing {
			t.Fatalf("expected %s Ongoing, got %s", wo.WorkOrderID, wo.Status)
		}
		if wo.CommitmentID != c.CommitmentID {
			t.Fatalf("expected work order anchored to %s", c.CommitmentID)
		}
	}

	if agent.ActiveLoad != 1 {
		t.Fatalf("expected active load 1, got %d", agent.ActiveLoad)
	}
	if agent.ScheduleVersion != 1 {
		t.Fatalf("expected schedule version bump, got %d", agent.ScheduleVersion)
	}
	if deletedSnapshots != 1 {
		t.Fatalf("expected 1 snapshot invalidation, got %d", deletedSnapshots)
	}
	if len(agent.GetDomainEvents()) != 1 {
		t.Fatalf("expected slots-assigned event on agent")
	}
	if len(result.Commitments) != 1 || len(result.WorkOrders) != 2 {
		t.Fatalf("unexpected result %#v", result)
	}
}

func TestSchedulingService_AssignSlots_RejectsConflict(t *testing.T) {
	agent := testAgent(t)
	f := newFixture(agent)

	workOrders := openWorkOrders(t, "wo-1")
	f.workOrders.FindByIDFn = func(_ context.Context, id string) (*domain.WorkOrder, error) {
		return workOrders[id], nil
	}

	busy, _ := domain.NewTimeRange(utc(t, "2026-03-10T10:00:00Z"), utc(t, "2026-03-10T11:00:00Z"))
	holder := domain.NewCommitment("cmt-1", "agent-1", []string{"wo-9"}, busy, "admin-1")
	f.commitments.FindActiveByAgentFn = func(_ context.Context, _ string) ([]*domain.Commitment, error) {
		return []*domain.Commitment{holder}, nil
	}

	_, err := f.service.AssignSlots(context.Background(), AssignSlotsCommand{
		AgentID:      "agent-1",
		WorkOrderIDs: []string{"wo-1"},
		Slots: []SlotInput{
			{StartTime: utc(t, "2026-03-10T10:30:00Z"), EndTime: utc(t, "2026-03-10T11:30:00Z")},
		},
		AssignedBy: "admin-1",
	})
	if err == nil {
		t.Fatal("expected conflict error")
	}
	appErr, ok := appErrors.AsAppError(err)
	if !ok || appErr.Code != appErrors.CodeScheduleConflict {
		t.Fatalf("expected schedule conflict, got %#v", err)
	}
	if workOrders["wo-1"].Status != domain.WorkOrderStatusOpen {
		t.Fatal("work order must stay Open on rejection")
	}
}

func TestSchedulingService_AssignSlots_ValidatesRequestShape(t *testing.T) {
	f := newFixture(testAgent(t))

	cases := []AssignSlotsCommand{
		{AgentID: "agent-1", AssignedBy: "admin-1"},
		{
			AgentID:      "agent-1",
			WorkOrderIDs: []string{"wo-1", "wo-2"},
			Slots:        []SlotInput{{StartTime: utc(t, "2026-03-10T09:00:00Z"), EndTime: utc(t, "2026-03-10T09:06:00Z")}},
			AssignedBy:   "admin-1",
		},
		{
			AgentID:      "agent-1",
			WorkOrderIDs: []string{"wo-1", "wo-1"},
			Slots: []SlotInput{
				{StartTime: utc(t, "2026-03-10T09:00:00Z"), EndTime: utc(t, "2026-03-10T09:06:00Z")},
				{StartTime: utc(t, "2026-03-10T09:06:00Z"), EndTime: utc(t, "2026-03-10T09:12:00Z")},
			},
			AssignedBy: "admin-1",
		},
		{
			AgentID:      "agent-1",
			WorkOrderIDs: []string{"wo-1"},
			Slots:        []SlotInput{{StartTime: utc(t, "2026-03-10T09:06:00Z"), EndTime: utc(t, "2026-03-10T09:00:00Z")}},
			AssignedBy:   "admin-1",
		},
	}

	for i, cmd := range cases {
		_, err := f.service.AssignSlots(context.Background(), cmd)
		appErr, ok := appErrors.AsAppError(err)
		if !ok || appErr.Code != appErrors.CodeValidationError {
			t.Fatalf("case %d: expected validation error, got %#v", i, err)
		}
	}
}

func TestSchedulingService_AssignSlots_RejectsSlotOutsideWindow(t *testing.T) {
	agent := testAgent(t)
	f := newFixture(agent)

	workOrders := openWorkOrders(t, "wo-1")
	f.workOrders.FindByIDFn = func(_ context.Context, id string) (*domain.WorkOrder, error) {
		return workOrders[id], nil
	}

	_, err := f.service.AssignSlots(context.Background(), AssignSlotsCommand{
		AgentID:      "agent-1",
		WorkOrderIDs: []string{"wo-1"},
		Slots: []SlotInput{
			// 18:00 is the exclusive end of the working window.
			{StartTime: utc(t, "2026-03-10T17:54:00Z"), EndTime: utc(t, "2026-03-10T18:06:00Z")},
		},
		AssignedBy: "admin-1",
	})
	appErr, ok := appErrors.AsAppError(err)
	if !ok || appErr.Code != appErrors.CodeValidationError {
		t.Fatalf("expected validation error, got %#v", err)
	}
}

func TestSchedulingService_Unassign_NotAssigned(t *testing.T) {
	agent := testAgent(t)
	f := newFixture(agent)

	workOrders := openWorkOrders(t, "wo-1")
	f.workOrders.FindByIDFn = func(_ context.Context, id string) (*domain.WorkOrder, error) {
		return workOrders[id], nil
	}

	_, err := f.service.Unassign(context.Background(), UnassignCommand{
		AgentID:     "agent-1",
		WorkOrderID: "wo-1",
		ReleasedBy:  "admin-1",
	})
	appErr, ok := appErrors.AsAppError(err)
	if !ok || appErr.Code != appErrors.CodeNotAssigned {
		t.Fatalf("expected not assigned error, got %#v", err)
	}
}

func TestSchedulingService_Unassign_CancelsLastWorkOrder(t *testing.T) {
	agent := testAgent(t)
	agent.IncrementLoad(1)
	f := newFixture(agent)

	workOrders := openWorkOrders(t, "wo-1")
	busy, _ := domain.NewTimeRange(utc(t, "2026-03-10T09:00:00Z"), utc(t, "2026-03-10T10:00:00Z"))
	commitment := domain.NewCommitment("cmt-1", "agent-1", []string{"wo-1"}, busy, "admin-1")
	if err := workOrders["wo-1"].Assign("agent-1", "cmt-1", "admin-1"); err != nil {
		t.Fatalf("unexpected assign err: %v", err)
	}
	workOrders["wo-1"].ClearDomainEvents()

	f.workOrders.FindByIDFn = func(_ context.Context, id string) (*domain.WorkOrder, error) {
		return workOrders[id], nil
	}
	f.commitments.FindActiveByAgentAndWorkOrderFn = func(_ context.Context, _, _ string) (*domain.Commitment, error) {
		return commitment, nil
	}

	result, err := f.service.Unassign(context.Background(), UnassignCommand{
		AgentID:     "agent-1",
		WorkOrderID: "wo-1",
		ReleasedBy:  "admin-1",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if !result.CommitmentCancelled {
		t.Fatal("expected commitment cancelled")
	}
	if commitment.Status != domain.CommitmentStatusCancelled {
		t.Fatalf("expected cancelled commitment, got %s", commitment.Status)
	}
	if workOrders["wo-1"].Status != domain.WorkOrderStatusOpen {
		t.Fatalf("expected work order back to Open, got %s", workOrders["wo-1"].Status)
	}
	if workOrders["wo-1"].AgentID != "" || workOrders["wo-1"].CommitmentID != "" {
		t.Fatal("expected assignment anchors cleared")
	}
	if agent.ActiveLoad != 0 {
		t.Fatalf("expected load 0, got %d", agent.ActiveLoad)
	}
}

func TestSchedulingService_GetAvailability_ServesFreshSnapshot(t *testing.T) {
	agent := testAgent(t)
	f := newFixture(agent)
	f.agents.FindByIDFn = func(_ context.Context, _ string) (*domain.Agent, error) {
		return agent, nil
	}

	window, _ := agent.WindowOn("2026-03-10")
	plan := domain.GenerateDayPlan(window, "2026-03-10", agent.Location(), domain.DefaultEstimatedMinutes)
	cached := domain.NewAvailabilitySnapshot("agent-1", plan, nil)
	f.snapshots.FindByAgentAndDateFn = func(_ context.Context, _, _ string) (*domain.AvailabilitySnapshot, error) {
		return cached, nil
	}
	f.commitments.FindActiveByAgentInRangeFn = func(_ context.Context, _ string, _ domain.TimeRange) ([]*domain.Commitment, error) {
		t.Fatal("cache hit must not touch commitments")
		return nil, nil
	}

	dto, err := f.service.GetAvailability(context.Background(), GetAvailabilityQuery{
		AgentID: "agent-1",
		Date:    "2026-03-10",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if dto.OpenSlotCount != cached.OpenSlotCount {
		t.Fatalf("unexpected dto %#v", dto)
	}
}

func TestSchedulingService_GetAvailability_RebuildsAndCaches(t *testing.T) {
	agent := testAgent(t)
	f := newFixture(agent)
	f.agents.FindByIDFn = func(_ context.Context, _ string) (*domain.Agent, error) {
		return agent, nil
	}

	busy, _ := domain.NewTimeRange(utc(t, "2026-03-10T09:00:00Z"), utc(t, "2026-03-10T10:00:00Z"))
	f.commitments.FindActiveByAgentInRangeFn = func(_ context.Context, _ string, _ domain.TimeRange) ([]*domain.Commitment, error) {
		return []*domain.Commitment{domain.NewCommitment("cmt-1", "agent-1", []string{"wo-1"}, busy, "admin-1")}, nil
	}

	var cachedSnapshot *domain.AvailabilitySnapshot
	f.snapshots.SaveFn = func(_ context.Context, snapshot *domain.AvailabilitySnapshot) error {
		cachedSnapshot = snapshot
		return nil
	}

	// The read path holds no lock on the agent, so a full document save here
	// could overwrite a concurrent assignment's load and version writes.
	f.agents.SaveFn = func(_ context.Context, _ *domain.Agent) error {
		t.Fatal("availability rebuild must not save the whole agent document")
		return nil
	}
	updatedCount := -1
	f.agents.UpdateOpenSlotCountFn = func(_ context.Context, agentID string, count int) error {
		if agentID != "agent-1" {
			t.Fatalf("unexpected agent %s", agentID)
		}
		updatedCount = count
		return nil
	}

	dto, err := f.service.GetAvailability(context.Background(), GetAvailabilityQuery{
		AgentID: "agent-1",
		Date:    "2026-03-10",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	// 09:00-18:00 at 6-minute slots is 90 slots; the first hour is booked.
	if dto.OpenSlotCount != 80 {
		t.Fatalf("expected 80 open slots, got %d", dto.OpenSlotCount)
	}
	if cachedSnapshot == nil || cachedSnapshot.OpenSlotCount != 80 {
		t.Fatal("expected snapshot to be cached")
	}
	if updatedCount != 80 {
		t.Fatalf("expected targeted open slot count update of 80, got %d", updatedCount)
	}
}

func TestSchedulingService_GetAvailability_WorkOrderSlotSize(t *testing.T) {
	agent := testAgent(t)
	f := newFixture(agent)
	f.agents.FindByIDFn = func(_ context.Context, _ string) (*domain.Agent, error) {
		return agent, nil
	}

	workOrders := openWorkOrders(t, "wo-1") // 30-minute estimate
	f.workOrders.FindByIDFn = func(_ context.Context, id string) (*domain.WorkOrder, error) {
		return workOrders[id], nil
	}
	f.snapshots.SaveFn = func(_ context.Context, _ *domain.AvailabilitySnapshot) error {
		t.Fatal("work-order specific plans must not be cached")
		return nil
	}

	dto, err := f.service.GetAvailability(context.Background(), GetAvailabilityQuery{
		AgentID:     "agent-1",
		Date:        "2026-03-10",
		WorkOrderID: "wo-1",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if dto.SlotSize != 30 {
		t.Fatalf("expected 30-minute slots, got %d", dto.SlotSize)
	}
}

func TestSchedulingService_ChangeWorkOrderStatus_CompletesCommitment(t *testing.T) {
	agent := testAgent(t)
	agent.IncrementLoad(1)
	f := newFixture(agent)

	workOrders := openWorkOrders(t, "wo-1")
	busy, _ := domain.NewTimeRange(utc(t, "2026-03-10T09:00:00Z"), utc(t, "2026-03-10T10:00:00Z"))
	commitment := domain.NewCommitment("cmt-1", "agent-1", []string{"wo-1"}, busy, "admin-1")
	if err := workOrders["wo-1"].Assign("agent-1", "cmt-1", "admin-1"); err != nil {
		t.Fatalf("unexpected assign err: %v", err)
	}

	f.workOrders.FindByIDFn = func(_ context.Context, id string) (*domain.WorkOrder, error) {
		return workOrders[id], nil
	}
	f.commitments.FindByIDFn = func(_ context.Context, _ string) (*domain.Commitment, error) {
		return commitment, nil
	}

	dto, err := f.service.ChangeWorkOrderStatus(context.Background(), ChangeWorkOrderStatusCommand{
		WorkOrderID: "wo-1",
		NewStatus:   domain.WorkOrderStatusCompleted,
		Role:        "AGENT",
		ActorID:     "agent-1",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if dto.Status != string(domain.WorkOrderStatusCompleted) {
		t.Fatalf("expected Completed, got %s", dto.Status)
	}
	if commitment.Status != domain.CommitmentStatusCompleted {
		t.Fatalf("expected completed commitment, got %s", commitment.Status)
	}
	if agent.ActiveLoad != 0 {
		t.Fatalf("expected load 0, got %d", agent.ActiveLoad)
	}
}

func TestSchedulingService_ChangeWorkOrderStatus_MarksCommitmentInProgress(t *testing.T) {
	agent := testAgent(t)
	agent.IncrementLoad(1)
	f := newFixture(agent)

	workOrders := openWorkOrders(t, "wo-1", "wo-2")
	busy, _ := domain.NewTimeRange(utc(t, "2026-03-10T09:00:00Z"), utc(t, "2026-03-10T10:00:00Z"))
	commitment := domain.NewCommitment("cmt-1", "agent-1", []string{"wo-1", "wo-2"}, busy, "admin-1")
	for _, id := range []string{"wo-1", "wo-2"} {
		if err := workOrders[id].Assign("agent-1", "cmt-1", "admin-1"); err != nil {
			t.Fatalf("unexpected assign err: %v", err)
		}
	}

	f.workOrders.FindByIDFn = func(_ context.Context, id string) (*domain.WorkOrder, error) {
		return workOrders[id], nil
	}
	f.commitments.FindByIDFn = func(_ context.Context, _ string) (*domain.Commitment, error) {
		return commitment, nil
	}

	// Completing one work order of the merge group starts the commitment but
	// does not finish it while a sibling is still active.
	_, err := f.service.ChangeWorkOrderStatus(context.Background(), ChangeWorkOrderStatusCommand{
		WorkOrderID: "wo-1",
		NewStatus:   domain.WorkOrderStatusCompleted,
		Role:        "AGENT",
		ActorID:     "agent-1",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if commitment.Status != domain.CommitmentStatusInProgress {
		t.Fatalf("expected InProgress commitment, got %s", commitment.Status)
	}
	if agent.ActiveLoad != 1 {
		t.Fatalf("expected load unchanged, got %d", agent.ActiveLoad)
	}

	// Completing the last sibling completes the commitment and releases load.
	_, err = f.service.ChangeWorkOrderStatus(context.Background(), ChangeWorkOrderStatusCommand{
		WorkOrderID: "wo-2",
		NewStatus:   domain.WorkOrderStatusCompleted,
		Role:        "AGENT",
		ActorID:     "agent-1",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if commitment.Status != domain.CommitmentStatusCompleted {
		t.Fatalf("expected completed commitment, got %s", commitment.Status)
	}
	if agent.ActiveLoad != 0 {
		t.Fatalf("expected load 0, got %d", agent.ActiveLoad)
	}
}

func TestSchedulingService_ChangeWorkOrderStatus_ForbiddenForOrganization(t *testing.T) {
	f := newFixture(testAgent(t))

	workOrders := openWorkOrders(t, "wo-1")
	f.workOrders.FindByIDFn = func(_ context.Context, id string) (*domain.WorkOrder, error) {
		return workOrders[id], nil
	}

	_, err := f.service.ChangeWorkOrderStatus(context.Background(), ChangeWorkOrderStatusCommand{
		WorkOrderID: "wo-1",
		NewStatus:   domain.WorkOrderStatusOngoing,
		Role:        "ORGANIZATION",
		ActorID:     "org-1",
	})
	appErr, ok := appErrors.AsAppError(err)
	if !ok || appErr.Code != appErrors.CodeForbidden {
		t.Fatalf("expected forbidden error, got %#v", err)
	}
}
