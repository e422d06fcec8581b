package application

import "github.com/dispatch-platform/scheduling-service/internal/domain"

// ToAgentDTO converts a domain Agent to AgentDTO
func ToAgentDTO(agent *domain.Agent) *AgentDTO {
	if agent == nil {
		return nil
	}

	return &AgentDTO{
		AgentID:         agent.AgentID,
		OrganizationID:  agent.OrganizationID,
		Name:            agent.Name,
		WorkStart:       agent.WorkStart,
		WorkEnd:         agent.WorkEnd,
		Timezone:        agent.Timezone,
		ActiveLoad:      agent.ActiveLoad,
		OpenSlotCount:   agent.OpenSlotCount,
		ScheduleVersion: agent.ScheduleVersion,
		CreatedAt:       agent.CreatedAt,
		UpdatedAt:       agent.UpdatedAt,
	}
}

// ToWorkOrderDTO converts a domain WorkOrder to WorkOrderDTO
func ToWorkOrderDTO(wo *domain.WorkOrder) *WorkOrderDTO {
	if wo == nil {
		return nil
	}

	return &WorkOrderDTO{
		WorkOrderID:      wo.WorkOrderID,
		OrganizationID:   wo.OrganizationID,
		Title:            wo.Title,
		Description:      wo.Description,
		Priority:         string(wo.Priority),
		DueDate:          wo.DueDate,
		EstimatedMinutes: wo.EstimatedMinutes,
		Status:           string(wo.Status),
		AgentID:          wo.AgentID,
		AssignedBy:       wo.AssignedBy,
		CommitmentID:     wo.CommitmentID,
		CreatedAt:        wo.CreatedAt,
		UpdatedAt:        wo.UpdatedAt,
	}
}

// ToWorkOrderDTOs converts a slice of domain WorkOrders to WorkOrderDTOs
func ToWorkOrderDTOs(workOrders []*domain.WorkOrder) []WorkOrderDTO {
	dtos := make([]WorkOrderDTO, 0, len(workOrders))
	for _, wo := range workOrders {
		if dto := ToWorkOrderDTO(wo); dto != nil {
			dtos = append(dtos, *dto)
		}
	}
	return dtos
}

// ToCommitmentDTO converts a domain Commitment to CommitmentDTO
func ToCommitmentDTO(c *domain.Commitment) *CommitmentDTO {
	if c == nil {
		return nil
	}

	ids := make([]string, len(c.WorkOrderIDs))
	copy(ids, c.WorkOrderIDs)

	return &CommitmentDTO{
		CommitmentID: c.CommitmentID,
		AgentID:      c.AgentID,
		WorkOrderIDs: ids,
		StartTime:    c.StartTime,
		EndTime:      c.EndTime,
		Status:       string(c.Status),
		AssignedBy:   c.AssignedBy,
		CreatedAt:    c.CreatedAt,
	}
}

// ToCommitmentDTOs converts a slice of domain Commitments to CommitmentDTOs
func ToCommitmentDTOs(commitments []*domain.Commitment) []CommitmentDTO {
	dtos := make([]CommitmentDTO, 0, len(commitments))
	for _, c := range commitments {
		if dto := ToCommitmentDTO(c); dto != nil {
			dtos = append(dtos, *dto)
		}
	}
	return dtos
}

// ToAvailabilityDTO converts a domain AvailabilitySnapshot to AvailabilityDTO
func ToAvailabilityDTO(snapshot *domain.AvailabilitySnapshot) *AvailabilityDTO {
	if snapshot == nil {
		return nil
	}

	blocks := make([]HourBlockDTO, 0, len(snapshot.Blocks))
	for _, block := range snapshot.Blocks {
		slots := make([]SlotDTO, 0, len(block.Slots))
		for _, slot := range block.Slots {
			slots = append(slots, SlotDTO{Start: slot.Start, End: slot.End})
		}
		blocks = append(blocks, HourBlockDTO{Start: block.Start, End: block.End, Slots: slots})
	}

	return &AvailabilityDTO{
		AgentID:       snapshot.AgentID,
		Date:          snapshot.Date,
		SlotSize:      snapshot.SlotSize,
		Blocks:        blocks,
		OpenSlotCount: snapshot.OpenSlotCount,
		ComputedAt:    snapshot.ComputedAt,
	}
}
