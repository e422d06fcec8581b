package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dispatch-platform/scheduling-service/internal/domain"
	"github.com/dispatch-platform/scheduling-service/internal/infrastructure/mongodb"
	"github.com/dispatch-platform/scheduling-service/pkg/cloudevents"
	appErrors "github.com/dispatch-platform/scheduling-service/pkg/errors"
	sharedtesting "github.com/dispatch-platform/scheduling-service/pkg/testing"
)

type repositories struct {
	agents      *mongodb.AgentRepository
	workOrders  *mongodb.WorkOrderRepository
	commitments *mongodb.CommitmentRepository
	snapshots   *mongodb.SnapshotRepository
	store       *mongodb.AssignmentStore
}

func setupRepositories(t *testing.T) (*repositories, func()) {
	t.Helper()
	ctx := context.Background()

	// Transactions need a replica set, even a single-node one.
	mongoContainer, err := sharedtesting.NewMongoDBReplicaSetContainer(ctx)
	require.NoError(t, err)

	client, err := mongoContainer.GetClient(ctx)
	require.NoError(t, err)

	db := client.Database("test_scheduling_db")
	factory := cloudevents.NewEventFactory(cloudevents.SourceScheduling)

	agents := mongodb.NewAgentRepository(db, factory)
	repos := &repositories{
		agents:      agents,
		workOrders:  mongodb.NewWorkOrderRepository(db, factory),
		commitments: mongodb.NewCommitmentRepository(db),
		snapshots:   mongodb.NewSnapshotRepository(db),
		store:       mongodb.NewAssignmentStore(db, agents),
	}

	cleanup := func() {
		if err := client.Disconnect(ctx); err != nil {
			t.Logf("Failed to disconnect MongoDB client: %v", err)
		}
		if err := mongoContainer.Close(ctx); err != nil {
			t.Logf("Failed to close MongoDB container: %v", err)
		}
	}

	return repos, cleanup
}

func newTestAgent(t *testing.T, agentID string) *domain.Agent {
	t.Helper()
	agent, err := domain.NewAgent(agentID, "org-1", "Ada", "09:00:00", "18:00:00", "UTC")
	require.NoError(t, err)
	return agent
}

func mustRange(t *testing.T, start, end string) domain.TimeRange {
	t.Helper()
	s, err := time.Parse(time.RFC3339, start)
	require.NoError(t, err)
	e, err := time.Parse(time.RFC3339, end)
	require.NoError(t, err)
	r, err := domain.NewTimeRange(s, e)
	require.NoError(t, err)
	return r
}

func TestAgentRepository_SaveAndFind(t *testing.T) {
	repos, cleanup := setupRepositories(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	t.Run("Save new agent and find it", func(t *testing.T) {
		agent := newTestAgent(t, "agent-save-1")

		err := repos.agents.Save(ctx, agent)
		assert.NoError(t, err)
		assert.Empty(t, agent.DomainEvents, "events should be drained to the outbox on save")

		sharedtesting.AssertEventually(t, func() bool {
			pending, err := repos.agents.GetOutboxRepository().FindUnpublished(ctx, 10)
			return err == nil && len(pending) >= 1
		}, 5*time.Second, "onboarding event staged in the outbox")

		found, err := repos.agents.FindByID(ctx, "agent-save-1")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "agent-save-1", found.AgentID)
		assert.Equal(t, "09:00:00", found.WorkStart)
		assert.Equal(t, "18:00:00", found.WorkEnd)
		assert.Equal(t, "UTC", found.Timezone)
	})

	t.Run("Save again upserts", func(t *testing.T) {
		agent := newTestAgent(t, "agent-save-2")
		require.NoError(t, repos.agents.Save(ctx, agent))

		agent.SetOpenSlotCount(42)
		require.NoError(t, repos.agents.Save(ctx, agent))

		found, err := repos.agents.FindByID(ctx, "agent-save-2")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, 42, found.OpenSlotCount)
	})

	t.Run("Find missing agent", func(t *testing.T) {
		found, err := repos.agents.FindByID(ctx, "agent-nonexistent")
		assert.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestAgentRepository_FindAndBumpVersion(t *testing.T) {
	repos, cleanup := setupRepositories(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	agent := newTestAgent(t, "agent-version-1")
	require.NoError(t, repos.agents.Save(ctx, agent))

	first, err := repos.agents.FindAndBumpVersion(ctx, "agent-version-1")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, int64(1), first.ScheduleVersion)

	second, err := repos.agents.FindAndBumpVersion(ctx, "agent-version-1")
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, int64(2), second.ScheduleVersion)

	missing, err := repos.agents.FindAndBumpVersion(ctx, "agent-nonexistent")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAgentRepository_UpdateOpenSlotCount(t *testing.T) {
	repos, cleanup := setupRepositories(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	agent := newTestAgent(t, "agent-counter-1")
	agent.IncrementLoad(2)
	require.NoError(t, repos.agents.Save(ctx, agent))

	// A concurrent writer commits a version bump after our read.
	bumped, err := repos.agents.FindAndBumpVersion(ctx, "agent-counter-1")
	require.NoError(t, err)
	require.NotNil(t, bumped)

	// The targeted counter write must leave the writer's fields intact.
	require.NoError(t, repos.agents.UpdateOpenSlotCount(ctx, "agent-counter-1", 77))

	final, err := repos.agents.FindByID(ctx, "agent-counter-1")
	require.NoError(t, err)
	require.NotNil(t, final)
	assert.Equal(t, 77, final.OpenSlotCount)
	assert.Equal(t, 2, final.ActiveLoad, "counter write must not touch activeLoad")
	assert.Equal(t, int64(1), final.ScheduleVersion, "counter write must not roll back the version bump")
}

func TestWorkOrderRepository_SaveAndFind(t *testing.T) {
	repos, cleanup := setupRepositories(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	wo, err := domain.NewWorkOrder("wo-save-1", "org-1", "Install router", "Ground floor", domain.PriorityHigh, nil, 45)
	require.NoError(t, err)
	require.NoError(t, repos.workOrders.Save(ctx, wo))

	found, err := repos.workOrders.FindByID(ctx, "wo-save-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, domain.PriorityHigh, found.Priority)
	assert.Equal(t, domain.WorkOrderStatusOpen, found.Status)
	assert.Equal(t, 45, found.EstimatedMinutes)

	missing, err := repos.workOrders.FindByID(ctx, "wo-nonexistent")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCommitmentRepository_ActiveQueries(t *testing.T) {
	repos, cleanup := setupRepositories(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	morning := domain.NewCommitment("cmt-morning", "agent-q1", []string{"wo-1"},
		mustRange(t, "2026-09-01T09:00:00Z", "2026-09-01T10:00:00Z"), "admin-1")
	afternoon := domain.NewCommitment("cmt-afternoon", "agent-q1", []string{"wo-2", "wo-3"},
		mustRange(t, "2026-09-01T14:00:00Z", "2026-09-01T15:30:00Z"), "admin-1")
	cancelled := domain.NewCommitment("cmt-cancelled", "agent-q1", []string{"wo-4"},
		mustRange(t, "2026-09-01T11:00:00Z", "2026-09-01T12:00:00Z"), "admin-1")
	require.NoError(t, cancelled.Cancel())

	for _, c := range []*domain.Commitment{afternoon, morning, cancelled} {
		require.NoError(t, repos.commitments.Save(ctx, c))
	}

	t.Run("FindActiveByAgent excludes cancelled and sorts by start", func(t *testing.T) {
		active, err := repos.commitments.FindActiveByAgent(ctx, "agent-q1")
		require.NoError(t, err)
		require.Len(t, active, 2)
		assert.Equal(t, "cmt-morning", active[0].CommitmentID)
		assert.Equal(t, "cmt-afternoon", active[1].CommitmentID)
	})

	t.Run("FindActiveByAgentInRange filters by overlap", func(t *testing.T) {
		hits, err := repos.commitments.FindActiveByAgentInRange(ctx, "agent-q1",
			mustRange(t, "2026-09-01T09:30:00Z", "2026-09-01T11:30:00Z"))
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "cmt-morning", hits[0].CommitmentID)

		none, err := repos.commitments.FindActiveByAgentInRange(ctx, "agent-q1",
			mustRange(t, "2026-09-01T10:00:00Z", "2026-09-01T11:00:00Z"))
		require.NoError(t, err)
		assert.Empty(t, none, "half-open ranges touching at a boundary do not overlap")
	})

	t.Run("FindActiveByAgentAndWorkOrder matches merge group members", func(t *testing.T) {
		found, err := repos.commitments.FindActiveByAgentAndWorkOrder(ctx, "agent-q1", "wo-3")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "cmt-afternoon", found.CommitmentID)

		gone, err := repos.commitments.FindActiveByAgentAndWorkOrder(ctx, "agent-q1", "wo-4")
		require.NoError(t, err)
		assert.Nil(t, gone, "cancelled commitments no longer hold their work orders")
	})
}

func TestSnapshotRepository_Cache(t *testing.T) {
	repos, cleanup := setupRepositories(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	agent := newTestAgent(t, "agent-snap-1")
	window, err := agent.WindowOn("2026-09-01")
	require.NoError(t, err)
	plan := domain.GenerateDayPlan(window, "2026-09-01", agent.Location(), 0)
	snapshot := domain.NewAvailabilitySnapshot("agent-snap-1", plan, nil)

	require.NoError(t, repos.snapshots.Save(ctx, snapshot))

	found, err := repos.snapshots.FindByAgentAndDate(ctx, "agent-snap-1", "2026-09-01")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, snapshot.OpenSlotCount, found.OpenSlotCount)
	assert.Equal(t, snapshot.SlotSize, found.SlotSize)
	assert.Len(t, found.Blocks, len(snapshot.Blocks))

	// Saving again for the same agent-day replaces the document.
	snapshot.OpenSlotCount = 1
	require.NoError(t, repos.snapshots.Save(ctx, snapshot))
	replaced, err := repos.snapshots.FindByAgentAndDate(ctx, "agent-snap-1", "2026-09-01")
	require.NoError(t, err)
	require.NotNil(t, replaced)
	assert.Equal(t, 1, replaced.OpenSlotCount)

	require.NoError(t, repos.snapshots.DeleteByAgentAndDate(ctx, "agent-snap-1", "2026-09-01"))
	gone, err := repos.snapshots.FindByAgentAndDate(ctx, "agent-snap-1", "2026-09-01")
	require.NoError(t, err)
	assert.Nil(t, gone)

	// Deleting an already-missing snapshot is a no-op.
	assert.NoError(t, repos.snapshots.DeleteByAgentAndDate(ctx, "agent-snap-1", "2026-09-01"))
}

// TestAssignmentStore_SerializesConcurrentWriters races two assignments for
// the same range on the same agent. The version bump forces the transactions
// to conflict; the retried loser then sees the winner's commitment and backs
// off with a schedule conflict.
func TestAssignmentStore_SerializesConcurrentWriters(t *testing.T) {
	repos, cleanup := setupRepositories(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	agent := newTestAgent(t, "agent-race-1")
	require.NoError(t, repos.agents.Save(ctx, agent))

	contested := mustRange(t, "2026-09-01T10:00:00Z", "2026-09-01T11:00:00Z")

	assignOnce := func(commitmentID, workOrderID string) error {
		return repos.store.ExecuteForAgent(ctx, "agent-race-1", func(txCtx context.Context, a *domain.Agent) error {
			existing, err := repos.commitments.FindActiveByAgent(txCtx, a.AgentID)
			if err != nil {
				return err
			}
			if conflict := domain.FindConflict([]domain.TimeRange{contested}, existing); conflict != nil {
				return appErrors.ErrScheduleConflict(conflict.Error(), conflict.CommitmentID)
			}
			commitment := domain.NewCommitment(commitmentID, a.AgentID, []string{workOrderID}, contested, "admin-1")
			if err := repos.commitments.Save(txCtx, commitment); err != nil {
				return err
			}
			a.IncrementLoad(1)
			return nil
		})
	}

	var wg sync.WaitGroup
	results := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		results[0] = assignOnce("cmt-race-a", "wo-race-a")
	}()
	go func() {
		defer wg.Done()
		results[1] = assignOnce("cmt-race-b", "wo-race-b")
	}()
	wg.Wait()

	winners := 0
	conflicts := 0
	for _, err := range results {
		if err == nil {
			winners++
			continue
		}
		if appErr, ok := appErrors.AsAppError(err); ok && appErr.Code == appErrors.CodeScheduleConflict {
			conflicts++
		}
	}
	assert.Equal(t, 1, winners, "exactly one assignment must commit")
	assert.Equal(t, 1, conflicts, "the loser must be rejected as a schedule conflict")

	active, err := repos.commitments.FindActiveByAgent(ctx, "agent-race-1")
	require.NoError(t, err)
	assert.Len(t, active, 1)

	final, err := repos.agents.FindByID(ctx, "agent-race-1")
	require.NoError(t, err)
	require.NotNil(t, final)
	assert.Equal(t, 1, final.ActiveLoad)
	assert.Equal(t, int64(1), final.ScheduleVersion, "the loser's aborted bump must not survive")
}
