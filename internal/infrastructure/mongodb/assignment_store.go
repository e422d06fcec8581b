package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dispatch-platform/scheduling-service/internal/domain"
	"github.com/dispatch-platform/scheduling-service/pkg/errors"
)

// AssignmentStore runs committing schedule mutations. Every execution bumps
// the agent's schedule version inside the transaction, so two concurrent
// assignments against the same agent conflict at commit time and MongoDB
// aborts one of them; the retried loser then re-checks conflicts against the
// winner's commitments and is rejected cleanly.
type AssignmentStore struct {
	db     *mongo.Database
	agents *AgentRepository
}

func NewAssignmentStore(db *mongo.Database, agents *AgentRepository) *AssignmentStore {
	return &AssignmentStore{db: db, agents: agents}
}

func (s *AssignmentStore) ExecuteForAgent(ctx context.Context, agentID string, fn func(txCtx context.Context, agent *domain.Agent) error) error {
	session, err := s.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		agent, err := s.agents.FindAndBumpVersion(sessCtx, agentID)
		if err != nil {
			return nil, fmt.Errorf("failed to lock agent schedule: %w", err)
		}
		if agent == nil {
			return nil, errors.ErrNotFoundWithID("agent", agentID)
		}

		if err := fn(sessCtx, agent); err != nil {
			return nil, err
		}

		// Persist the mutations fn staged on the agent and drain its
		// domain events to the outbox, all in this transaction.
		if err := s.agents.Save(sessCtx, agent); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}
