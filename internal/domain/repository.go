package domain

import "context"

// AgentRepository defines the interface for agent persistence.
// UpdateOpenSlotCount writes only the derived counter so that read paths
// never overwrite load or version fields committed by concurrent writers.
type AgentRepository interface {
	Save(ctx context.Context, agent *Agent) error
	FindByID(ctx context.Context, agentID string) (*Agent, error)
	UpdateOpenSlotCount(ctx context.Context, agentID string, count int) error
}

// WorkOrderRepository defines the interface for work order persistence
type WorkOrderRepository interface {
	Save(ctx context.Context, workOrder *WorkOrder) error
	FindByID(ctx context.Context, workOrderID string) (*WorkOrder, error)
}

// CommitmentRepository defines the interface for commitment persistence
type CommitmentRepository interface {
	Save(ctx context.Context, commitment *Commitment) error
	FindByID(ctx context.Context, commitmentID string) (*Commitment, error)
	FindActiveByAgent(ctx context.Context, agentID string) ([]*Commitment, error)
	FindActiveByAgentInRange(ctx context.Context, agentID string, r TimeRange) ([]*Commitment, error)
	FindActiveByAgentAndWorkOrder(ctx context.Context, agentID, workOrderID string) (*Commitment, error)
}

// SnapshotRepository defines the interface for availability snapshot caching.
// Snapshots are a cache; Delete on a missing document is not an error.
type SnapshotRepository interface {
	Save(ctx context.Context, snapshot *AvailabilitySnapshot) error
	FindByAgentAndDate(ctx context.Context, agentID, date string) (*AvailabilitySnapshot, error)
	DeleteByAgentAndDate(ctx context.Context, agentID, date string) error
}

// AssignmentStore runs a committing schedule mutation for one agent inside a
// single transaction. The agent's schedule version is bumped first so that
// concurrent writers against the same agent serialize, then fn re-checks
// conflicts against the authoritative commitments and stages the writes.
type AssignmentStore interface {
	ExecuteForAgent(ctx context.Context, agentID string, fn func(txCtx context.Context, agent *Agent) error) error
}
