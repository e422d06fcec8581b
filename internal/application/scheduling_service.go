package application

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dispatch-platform/scheduling-service/pkg/errors"
	"github.com/dispatch-platform/scheduling-service/pkg/logging"
	"github.com/dispatch-platform/scheduling-service/pkg/metrics"

	"github.com/dispatch-platform/scheduling-service/internal/domain"
)

const dateLayout = "2006-01-02"

// SchedulingService handles scheduling use cases
type SchedulingService struct {
	agents      domain.AgentRepository
	workOrders  domain.WorkOrderRepository
	commitments domain.CommitmentRepository
	snapshots   domain.SnapshotRepository
	store       domain.AssignmentStore
	metrics     *metrics.Metrics
	logger      *logging.Logger
}

// NewSchedulingService creates a new SchedulingService
func NewSchedulingService(
	agents domain.AgentRepository,
	workOrders domain.WorkOrderRepository,
	commitments domain.CommitmentRepository,
	snapshots domain.SnapshotRepository,
	store domain.AssignmentStore,
	m *metrics.Metrics,
	logger *logging.Logger,
) *SchedulingService {
	return &SchedulingService{
		agents:      agents,
		workOrders:  workOrders,
		commitments: commitments,
		snapshots:   snapshots,
		store:       store,
		metrics:     m,
		logger:      logger,
	}
}

// CreateAgent onboards a new agent
func (s *SchedulingService) CreateAgent(ctx context.Context, cmd CreateAgentCommand) (*AgentDTO, error) {
	agent, err := domain.NewAgent(cmd.AgentID, cmd.OrganizationID, cmd.Name, cmd.WorkStart, cmd.WorkEnd, cmd.Timezone)
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	if err := s.agents.Save(ctx, agent); err != nil {
		s.logger.WithError(err).Error("Failed to save agent", "agentId", cmd.AgentID)
		return nil, errors.FromError(err)
	}

	s.logger.Info("Onboarded agent", "agentId", agent.AgentID, "timezone", agent.Timezone)
	return ToAgentDTO(agent), nil
}

// GetAgent retrieves an agent by ID
func (s *SchedulingService) GetAgent(ctx context.Context, query GetAgentQuery) (*AgentDTO, error) {
	agent, err := s.agents.FindByID(ctx, query.AgentID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get agent", "agentId", query.AgentID)
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}

	if agent == nil {
		return nil, errors.ErrNotFoundWithID("agent", query.AgentID)
	}

	return ToAgentDTO(agent), nil
}

// CreateWorkOrder registers a new work order
func (s *SchedulingService) CreateWorkOrder(ctx context.Context, cmd CreateWorkOrderCommand) (*WorkOrderDTO, error) {
	wo, err := domain.NewWorkOrder(cmd.WorkOrderID, cmd.OrganizationID, cmd.Title, cmd.Description,
		cmd.Priority, cmd.DueDate, cmd.EstimatedMinutes)
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	if err := s.workOrders.Save(ctx, wo); err != nil {
		s.logger.WithError(err).Error("Failed to save work order", "workOrderId", cmd.WorkOrderID)
		return nil, errors.FromError(err)
	}

	s.logger.Info("Created work order", "workOrderId", wo.WorkOrderID, "priority", wo.Priority)
	return ToWorkOrderDTO(wo), nil
}

// GetWorkOrder retrieves a work order by ID
func (s *SchedulingService) GetWorkOrder(ctx context.Context, query GetWorkOrderQuery) (*WorkOrderDTO, error) {
	wo, err := s.workOrders.FindByID(ctx, query.WorkOrderID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get work order", "workOrderId", query.WorkOrderID)
		return nil, fmt.Errorf("failed to get work order: %w", err)
	}

	if wo == nil {
		return nil, errors.ErrNotFoundWithID("work order", query.WorkOrderID)
	}

	return ToWorkOrderDTO(wo), nil
}

// GetAvailability computes the open mini-slots of one agent-day. Results are
// served from the snapshot cache when a fresh one matches the requested slot
// size; otherwise they are rebuilt from the authoritative commitments.
func (s *SchedulingService) GetAvailability(ctx context.Context, query GetAvailabilityQuery) (*AvailabilityDTO, error) {
	agent, err := s.agents.FindByID(ctx, query.AgentID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get agent", "agentId", query.AgentID)
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	if agent == nil {
		return nil, errors.ErrNotFoundWithID("agent", query.AgentID)
	}

	handling := domain.DefaultEstimatedMinutes
	if query.WorkOrderID != "" {
		wo, err := s.workOrders.FindByID(ctx, query.WorkOrderID)
		if err != nil {
			return nil, fmt.Errorf("failed to get work order: %w", err)
		}
		if wo == nil {
			return nil, errors.ErrNotFoundWithID("work order", query.WorkOrderID)
		}
		handling = wo.EstimatedMinutes
	}
	slotSize := domain.MiniSlotMinutes(handling)

	cached, err := s.snapshots.FindByAgentAndDate(ctx, query.AgentID, query.Date)
	if err != nil {
		s.logger.WithError(err).Warn("Snapshot lookup failed, rebuilding availability", "agentId", query.AgentID, "date", query.Date)
	}
	if cached != nil && cached.SlotSize == slotSize {
		return ToAvailabilityDTO(cached), nil
	}

	window, err := agent.WindowOn(query.Date)
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	plan := domain.GenerateDayPlan(window, query.Date, agent.Location(), handling)

	var active []*domain.Commitment
	if !window.IsZero() {
		active, err = s.commitments.FindActiveByAgentInRange(ctx, query.AgentID, window)
		if err != nil {
			s.logger.WithError(err).Error("Failed to load commitments", "agentId", query.AgentID)
			return nil, fmt.Errorf("failed to load commitments: %w", err)
		}
	}

	snapshot := domain.NewAvailabilitySnapshot(query.AgentID, plan, active)
	s.metrics.RecordSlotsGenerated(plan.TotalSlots())
	s.metrics.SetOpenSlots(query.AgentID, snapshot.OpenSlotCount)

	// Only default-size plans go to the cache; work-order specific slot
	// sizes are computed on demand.
	if slotSize == domain.MiniSlotGranularity {
		if err := s.snapshots.Save(ctx, snapshot); err != nil {
			s.logger.WithError(err).Warn("Failed to cache availability snapshot", "agentId", query.AgentID, "date", query.Date)
		}
		// Targeted update only: this read path holds no lock on the agent,
		// so saving the whole document could overwrite a concurrent
		// assignment's load and version writes.
		if err := s.agents.UpdateOpenSlotCount(ctx, query.AgentID, snapshot.OpenSlotCount); err != nil {
			s.logger.WithError(err).Warn("Failed to update agent open slot count", "agentId", query.AgentID)
		}
	}

	return ToAvailabilityDTO(snapshot), nil
}

// AssignSlots books work orders onto an agent's schedule. Candidate slots
// with gaps of at most five minutes collapse into a single commitment. The
// conflict check runs against the authoritative commitments inside the same
// transaction that bumps the agent's schedule version, so concurrent
// assignments against one agent serialize and at most one of two overlapping
// requests commits.
func (s *SchedulingService) AssignSlots(ctx context.Context, cmd AssignSlotsCommand) (*AssignmentResultDTO, error) {
	if len(cmd.WorkOrderIDs) == 0 {
		return nil, errors.ErrValidation("at least one work order is required")
	}
	if len(cmd.WorkOrderIDs) != len(cmd.Slots) {
		return nil, errors.ErrValidation("workOrderIds and slots must have the same length")
	}

	seen := make(map[string]struct{}, len(cmd.WorkOrderIDs))
	for _, id := range cmd.WorkOrderIDs {
		if _, dup := seen[id]; dup {
			return nil, errors.ErrValidation(fmt.Sprintf("duplicate work order %s in request", id))
		}
		seen[id] = struct{}{}
	}

	candidates := make([]domain.TimeRange, len(cmd.Slots))
	for i, slot := range cmd.Slots {
		r, err := domain.NewTimeRange(slot.StartTime, slot.EndTime)
		if err != nil {
			return nil, errors.ErrValidation(err.Error())
		}
		candidates[i] = r
	}

	var result *AssignmentResultDTO
	err := s.store.ExecuteForAgent(ctx, cmd.AgentID, func(txCtx context.Context, agent *domain.Agent) error {
		dates := make(map[string][]domain.TimeRange)
		for _, c := range candidates {
			date := c.Start.In(agent.Location()).Format(dateLayout)
			dates[date] = append(dates[date], c)
		}
		for date, ranges := range dates {
			window, err := agent.WindowOn(date)
			if err != nil {
				return errors.ErrValidation(err.Error())
			}
			if err := domain.ValidateCandidates(ranges, window); err != nil {
				s.metrics.RecordAssignmentRejected("outside_window")
				return errors.ErrValidation(err.Error())
			}
		}

		workOrders := make([]*domain.WorkOrder, len(cmd.WorkOrderIDs))
		for i, id := range cmd.WorkOrderIDs {
			wo, err := s.workOrders.FindByID(txCtx, id)
			if err != nil {
				return fmt.Errorf("failed to get work order: %w", err)
			}
			if wo == nil {
				return errors.ErrNotFoundWithID("work order", id)
			}
			if wo.Status != domain.WorkOrderStatusOpen {
				s.metrics.RecordAssignmentRejected("not_open")
				return errors.ErrValidation(fmt.Sprintf("work order %s is %s, not Open", id, wo.Status))
			}
			workOrders[i] = wo
		}

		merged := domain.MergeRanges(candidates, domain.MergeGapTolerance)

		existing, err := s.commitments.FindActiveByAgent(txCtx, cmd.AgentID)
		if err != nil {
			return fmt.Errorf("failed to load commitments: %w", err)
		}
		if conflict := domain.FindConflict(merged, existing); conflict != nil {
			s.metrics.RecordAssignmentRejected("conflict")
			return errors.ErrScheduleConflict(conflict.Error(), conflict.CommitmentID)
		}

		now := time.Now().UTC()
		newCommitments := make([]*domain.Commitment, 0, len(merged))
		eventSlots := make([]domain.SlotRange, 0, len(merged))
		commitmentIDs := make([]string, 0, len(merged))

		for _, r := range merged {
			groupIDs := make([]string, 0, len(cmd.WorkOrderIDs))
			group := make([]*domain.WorkOrder, 0, len(cmd.WorkOrderIDs))
			for i, candidate := range candidates {
				if r.Contains(candidate) {
					groupIDs = append(groupIDs, cmd.WorkOrderIDs[i])
					group = append(group, workOrders[i])
				}
			}

			commitment := domain.NewCommitment(uuid.NewString(), cmd.AgentID, groupIDs, r, cmd.AssignedBy)
			for _, wo := range group {
				if err := wo.Assign(cmd.AgentID, commitment.CommitmentID, cmd.AssignedBy); err != nil {
					return errors.ErrValidation(err.Error())
				}
			}

			if err := s.commitments.Save(txCtx, commitment); err != nil {
				return fmt.Errorf("failed to save commitment: %w", err)
			}

			newCommitments = append(newCommitments, commitment)
			commitmentIDs = append(commitmentIDs, commitment.CommitmentID)
			eventSlots = append(eventSlots, domain.SlotRange{StartTime: r.Start, EndTime: r.End})
		}

		for _, wo := range workOrders {
			if err := s.workOrders.Save(txCtx, wo); err != nil {
				return fmt.Errorf("failed to save work order: %w", err)
			}
		}

		agent.IncrementLoad(len(newCommitments))
		agent.AddDomainEvent(&domain.SlotsAssignedEvent{
			AgentID:       cmd.AgentID,
			WorkOrderIDs:  cmd.WorkOrderIDs,
			CommitmentIDs: commitmentIDs,
			Slots:         eventSlots,
			AssignedBy:    cmd.AssignedBy,
			AssignedAt:    now,
		})

		for date := range dates {
			if err := s.snapshots.DeleteByAgentAndDate(txCtx, cmd.AgentID, date); err != nil {
				return fmt.Errorf("failed to invalidate snapshot: %w", err)
			}
		}

		result = &AssignmentResultDTO{
			AgentID:     cmd.AgentID,
			Commitments: ToCommitmentDTOs(newCommitments),
			WorkOrders:  ToWorkOrderDTOs(workOrders),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordAssignmentCommitted()
	s.logger.Info("Committed assignment",
		"agentId", cmd.AgentID,
		"workOrders", len(cmd.WorkOrderIDs),
		"commitments", len(result.Commitments))
	return result, nil
}

// Unassign releases one work order from its active commitment. The work order
// returns to Open; the commitment shrinks, or cancels when the last work
// order leaves it.
func (s *SchedulingService) Unassign(ctx context.Context, cmd UnassignCommand) (*UnassignResultDTO, error) {
	var result *UnassignResultDTO
	err := s.store.ExecuteForAgent(ctx, cmd.AgentID, func(txCtx context.Context, agent *domain.Agent) error {
		wo, err := s.workOrders.FindByID(txCtx, cmd.WorkOrderID)
		if err != nil {
			return fmt.Errorf("failed to get work order: %w", err)
		}
		if wo == nil {
			return errors.ErrNotFoundWithID("work order", cmd.WorkOrderID)
		}

		commitment, err := s.commitments.FindActiveByAgentAndWorkOrder(txCtx, cmd.AgentID, cmd.WorkOrderID)
		if err != nil {
			return fmt.Errorf("failed to load commitment: %w", err)
		}
		if commitment == nil {
			return errors.ErrNotAssigned(cmd.WorkOrderID)
		}

		lastDetached, err := commitment.DetachWorkOrder(cmd.WorkOrderID)
		if err != nil {
			return errors.ErrValidation(err.Error())
		}
		if err := s.commitments.Save(txCtx, commitment); err != nil {
			return fmt.Errorf("failed to save commitment: %w", err)
		}

		if err := wo.Unassign(cmd.ReleasedBy); err != nil {
			return errors.ErrValidation(err.Error())
		}
		if err := s.workOrders.Save(txCtx, wo); err != nil {
			return fmt.Errorf("failed to save work order: %w", err)
		}

		if lastDetached {
			if clamped := agent.DecrementLoad(); clamped {
				s.logger.Warn("Active load clamped at zero during unassign", "agentId", cmd.AgentID, "workOrderId", cmd.WorkOrderID)
			}
		}

		agent.AddDomainEvent(&domain.SlotsReleasedEvent{
			AgentID:             cmd.AgentID,
			WorkOrderID:         cmd.WorkOrderID,
			CommitmentID:        commitment.CommitmentID,
			CommitmentCancelled: lastDetached,
			ReleasedBy:          cmd.ReleasedBy,
			ReleasedAt:          time.Now().UTC(),
		})

		for _, date := range rangeDates(commitment.Range(), agent.Location()) {
			if err := s.snapshots.DeleteByAgentAndDate(txCtx, cmd.AgentID, date); err != nil {
				return fmt.Errorf("failed to invalidate snapshot: %w", err)
			}
		}

		result = &UnassignResultDTO{
			AgentID:             cmd.AgentID,
			WorkOrder:           ToWorkOrderDTO(wo),
			CommitmentID:        commitment.CommitmentID,
			CommitmentCancelled: lastDetached,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordUnassignment()
	s.logger.Info("Released work order", "agentId", cmd.AgentID, "workOrderId", cmd.WorkOrderID,
		"commitmentCancelled", result.CommitmentCancelled)
	return result, nil
}

// ChangeWorkOrderStatus drives the work order state machine. When the work
// order anchors a commitment, the commitment follows: reverting to Open
// detaches it, completing an earlier sibling marks it in progress, and
// completing the last sibling completes it.
func (s *SchedulingService) ChangeWorkOrderStatus(ctx context.Context, cmd ChangeWorkOrderStatusCommand) (*WorkOrderDTO, error) {
	wo, err := s.workOrders.FindByID(ctx, cmd.WorkOrderID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get work order", "workOrderId", cmd.WorkOrderID)
		return nil, fmt.Errorf("failed to get work order: %w", err)
	}
	if wo == nil {
		return nil, errors.ErrNotFoundWithID("work order", cmd.WorkOrderID)
	}

	if wo.AgentID == "" || wo.CommitmentID == "" {
		if err := wo.TransitionTo(cmd.NewStatus, cmd.Role, cmd.ActorID); err != nil {
			return nil, mapTransitionError(err)
		}
		if err := s.workOrders.Save(ctx, wo); err != nil {
			s.logger.WithError(err).Error("Failed to save work order", "workOrderId", cmd.WorkOrderID)
			return nil, fmt.Errorf("failed to save work order: %w", err)
		}
		s.logger.Info("Changed work order status", "workOrderId", cmd.WorkOrderID, "status", cmd.NewStatus)
		return ToWorkOrderDTO(wo), nil
	}

	agentID := wo.AgentID
	commitmentID := wo.CommitmentID

	var dto *WorkOrderDTO
	err = s.store.ExecuteForAgent(ctx, agentID, func(txCtx context.Context, agent *domain.Agent) error {
		wo, err := s.workOrders.FindByID(txCtx, cmd.WorkOrderID)
		if err != nil {
			return fmt.Errorf("failed to get work order: %w", err)
		}
		if wo == nil {
			return errors.ErrNotFoundWithID("work order", cmd.WorkOrderID)
		}

		previous := wo.Status
		if err := wo.TransitionTo(cmd.NewStatus, cmd.Role, cmd.ActorID); err != nil {
			return mapTransitionError(err)
		}
		if err := s.workOrders.Save(txCtx, wo); err != nil {
			return fmt.Errorf("failed to save work order: %w", err)
		}

		commitment, err := s.commitments.FindByID(txCtx, commitmentID)
		if err != nil {
			return fmt.Errorf("failed to load commitment: %w", err)
		}
		if commitment == nil || !commitment.IsActive() {
			dto = ToWorkOrderDTO(wo)
			return nil
		}

		switch {
		case previous == domain.WorkOrderStatusOngoing && cmd.NewStatus == domain.WorkOrderStatusOpen:
			lastDetached, err := commitment.DetachWorkOrder(cmd.WorkOrderID)
			if err != nil {
				return errors.ErrValidation(err.Error())
			}
			if err := s.commitments.Save(txCtx, commitment); err != nil {
				return fmt.Errorf("failed to save commitment: %w", err)
			}
			if lastDetached {
				if clamped := agent.DecrementLoad(); clamped {
					s.logger.Warn("Active load clamped at zero during revert", "agentId", agentID, "workOrderId", cmd.WorkOrderID)
				}
			}
			agent.AddDomainEvent(&domain.SlotsReleasedEvent{
				AgentID:             agentID,
				WorkOrderID:         cmd.WorkOrderID,
				CommitmentID:        commitment.CommitmentID,
				CommitmentCancelled: lastDetached,
				ReleasedBy:          cmd.ActorID,
				ReleasedAt:          time.Now().UTC(),
			})

		case cmd.NewStatus == domain.WorkOrderStatusCompleted:
			done, err := s.siblingsCompleted(txCtx, commitment, cmd.WorkOrderID)
			if err != nil {
				return err
			}
			if done {
				if err := commitment.MarkCompleted(); err != nil {
					return errors.ErrValidation(err.Error())
				}
				if err := s.commitments.Save(txCtx, commitment); err != nil {
					return fmt.Errorf("failed to save commitment: %w", err)
				}
				if clamped := agent.DecrementLoad(); clamped {
					s.logger.Warn("Active load clamped at zero on completion", "agentId", agentID, "commitmentId", commitment.CommitmentID)
				}
			} else {
				// Part of the merge group is done, so work has started on
				// the commitment even though siblings remain.
				if err := commitment.MarkInProgress(); err != nil {
					return errors.ErrValidation(err.Error())
				}
				if err := s.commitments.Save(txCtx, commitment); err != nil {
					return fmt.Errorf("failed to save commitment: %w", err)
				}
			}
		}

		for _, date := range rangeDates(commitment.Range(), agent.Location()) {
			if err := s.snapshots.DeleteByAgentAndDate(txCtx, agentID, date); err != nil {
				return fmt.Errorf("failed to invalidate snapshot: %w", err)
			}
		}

		dto = ToWorkOrderDTO(wo)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Changed work order status", "workOrderId", cmd.WorkOrderID, "status", cmd.NewStatus)
	return dto, nil
}

// siblingsCompleted reports whether every work order in the commitment other
// than the one just completed has reached Completed.
func (s *SchedulingService) siblingsCompleted(ctx context.Context, commitment *domain.Commitment, justCompleted string) (bool, error) {
	for _, id := range commitment.WorkOrderIDs {
		if id == justCompleted {
			continue
		}
		sibling, err := s.workOrders.FindByID(ctx, id)
		if err != nil {
			return false, fmt.Errorf("failed to get work order: %w", err)
		}
		if sibling == nil || sibling.Status != domain.WorkOrderStatusCompleted {
			return false, nil
		}
	}
	return true, nil
}

// rangeDates lists the calendar dates a range touches in the agent's
// timezone. The end is exclusive, so a range ending exactly at midnight does
// not touch the next day.
func rangeDates(r domain.TimeRange, loc *time.Location) []string {
	start := r.Start.In(loc).Format(dateLayout)
	end := r.End.Add(-time.Nanosecond).In(loc).Format(dateLayout)
	if start == end {
		return []string{start}
	}
	return []string{start, end}
}

func mapTransitionError(err error) error {
	var invalid *domain.InvalidTransitionError
	if stderrors.As(err, &invalid) {
		return errors.ErrInvalidTransition(string(invalid.From), string(invalid.To))
	}
	var forbidden *domain.ForbiddenTransitionError
	if stderrors.As(err, &forbidden) {
		return errors.ErrForbidden(forbidden.Error())
	}
	return errors.ErrValidation(err.Error())
}
