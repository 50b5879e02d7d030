package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkhydro/hydrosim/internal/models"
	"github.com/jackc/pgx/v5"
)

type AgentRepository struct {
	pool Pool
}

func NewAgentRepository(pool Pool) *AgentRepository {
	return &AgentRepository{pool: pool}
}

const agentColumns = `
	agent_id, agent_uid, project_id, project_run_id, seed, best_model_path,
	start_time, end_time, ancestor, best_step, best_step_value
`

func scanAgent(row pgx.Row, agent *models.Agent) error {
	return row.Scan(
		&agent.ID, &agent.UID, &agent.ProjectID, &agent.ProjectRunID,
		&agent.Seed, &agent.BestModelPath, &agent.StartTime, &agent.EndTime,
		&agent.Ancestor, &agent.BestStep, &agent.BestStepValue,
	)
}

// BestForRun returns the run's agent with the highest best-step value.
// Ties resolve to the lowest agent id, the first agent created, so the
// selection is deterministic when values are exactly equal.
func (r *AgentRepository) BestForRun(ctx context.Context, runUID string) (*models.Agent, error) {
	query := `
		SELECT ` + agentColumns + `
		FROM agents
		WHERE project_run_id = (SELECT project_run_id FROM project_runs WHERE project_run_uid = $1)
		ORDER BY best_step_value DESC NULLS LAST, agent_id ASC
		LIMIT 1
	`

	var agent models.Agent
	if err := scanAgent(r.pool.QueryRow(ctx, query, runUID), &agent); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get best agent: %w", err)
	}

	return &agent, nil
}

// ListForRun returns all agents belonging to one run.
func (r *AgentRepository) ListForRun(ctx context.Context, runID int64) ([]models.Agent, error) {
	query := `
		SELECT ` + agentColumns + `
		FROM agents
		WHERE project_run_id = $1
		ORDER BY agent_id
	`

	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	var agents []models.Agent
	for rows.Next() {
		var agent models.Agent
		err := rows.Scan(
			&agent.ID, &agent.UID, &agent.ProjectID, &agent.ProjectRunID,
			&agent.Seed, &agent.BestModelPath, &agent.StartTime, &agent.EndTime,
			&agent.Ancestor, &agent.BestStep, &agent.BestStepValue,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		agents = append(agents, agent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating agents: %w", err)
	}

	return agents, nil
}
