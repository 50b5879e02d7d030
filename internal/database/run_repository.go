package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkhydro/hydrosim/internal/models"
	"github.com/jackc/pgx/v5"
)

// RunWithForecast pairs a run with its forecast for list and detail views.
type RunWithForecast struct {
	Run      models.ProjectRun
	Forecast models.Forecast
}

type RunRepository struct {
	pool Pool
}

func NewRunRepository(pool Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

const runColumns = `
	r.project_run_id, r.project_run_uid, r.project_id, r.forecast_id,
	r.start_time, r.end_time, r.settings, r.comment,
	r.evaluated_on, r.previous_run_id, r.previous_qvalue_run_id
`

func scanRun(row pgx.Row, run *models.ProjectRun) error {
	return row.Scan(
		&run.ID, &run.UID, &run.ProjectID, &run.ForecastID,
		&run.StartTime, &run.EndTime, &run.Settings, &run.Comment,
		&run.EvaluatedOn, &run.PreviousRunID, &run.PreviousQValueRunID,
	)
}

func (r *RunRepository) GetByUID(ctx context.Context, uid string) (*models.ProjectRun, error) {
	query := `SELECT ` + runColumns + ` FROM project_runs r WHERE r.project_run_uid = $1`

	var run models.ProjectRun
	if err := scanRun(r.pool.QueryRow(ctx, query, uid), &run); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project run: %w", err)
	}

	return &run, nil
}

// GetByUIDInProject resolves a run scoped to one project. A run that exists
// under a different project is treated as absent.
func (r *RunRepository) GetByUIDInProject(ctx context.Context, uid string, projectID int64) (*models.ProjectRun, error) {
	query := `SELECT ` + runColumns + ` FROM project_runs r WHERE r.project_run_uid = $1 AND r.project_id = $2`

	var run models.ProjectRun
	if err := scanRun(r.pool.QueryRow(ctx, query, uid, projectID), &run); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project run: %w", err)
	}

	return &run, nil
}

// ListForProject returns a project's training runs or its evaluations,
// joined with their forecasts.
func (r *RunRepository) ListForProject(ctx context.Context, projectID int64, evaluations bool) ([]RunWithForecast, error) {
	filter := "r.evaluated_on IS NULL"
	if evaluations {
		filter = "r.evaluated_on IS NOT NULL"
	}

	query := `
		SELECT ` + runColumns + `,
		       f.forecast_id, f.forecast_uid, f.upload_id, f.hydro_system_id, f.name
		FROM project_runs r
		JOIN forecasts f ON f.forecast_id = r.forecast_id
		WHERE r.project_id = $1 AND ` + filter + `
		ORDER BY r.project_run_id
	`

	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project runs: %w", err)
	}
	defer rows.Close()

	var runs []RunWithForecast
	for rows.Next() {
		var rf RunWithForecast
		err := rows.Scan(
			&rf.Run.ID, &rf.Run.UID, &rf.Run.ProjectID, &rf.Run.ForecastID,
			&rf.Run.StartTime, &rf.Run.EndTime, &rf.Run.Settings, &rf.Run.Comment,
			&rf.Run.EvaluatedOn, &rf.Run.PreviousRunID, &rf.Run.PreviousQValueRunID,
			&rf.Forecast.ID, &rf.Forecast.UID, &rf.Forecast.UploadID, &rf.Forecast.HydroSystemID, &rf.Forecast.Name,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project run: %w", err)
		}
		runs = append(runs, rf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project runs: %w", err)
	}

	return runs, nil
}

// Create inserts the run row and its start-volume rows in a single
// transaction, so no reader ever observes a run without its volumes.
func (r *RunRepository) Create(ctx context.Context, run *models.ProjectRun, volumes []models.StartVolume) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	runQuery := `
		INSERT INTO project_runs
			(project_run_uid, project_id, forecast_id, settings, comment,
			 evaluated_on, previous_run_id, previous_qvalue_run_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING project_run_id
	`
	err = tx.QueryRow(ctx, runQuery,
		run.UID, run.ProjectID, run.ForecastID, run.Settings, run.Comment,
		run.EvaluatedOn, run.PreviousRunID, run.PreviousQValueRunID,
	).Scan(&run.ID)
	if err != nil {
		return fmt.Errorf("failed to create project run: %w", err)
	}

	volumeQuery := `
		INSERT INTO project_run_start_volumes (project_run_id, reservoir_id, value)
		VALUES ($1, $2, $3)
	`
	for _, vol := range volumes {
		if _, err := tx.Exec(ctx, volumeQuery, run.ID, vol.ReservoirID, vol.Value); err != nil {
			return fmt.Errorf("failed to create start volume: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit project run: %w", err)
	}

	return nil
}

// Delete removes a run; start volumes and control rows cascade with it.
// Used as compensation when the backend call fails after persistence.
func (r *RunRepository) Delete(ctx context.Context, runID int64) error {
	query := `DELETE FROM project_runs WHERE project_run_id = $1`

	tag, err := r.pool.Exec(ctx, query, runID)
	if err != nil {
		return fmt.Errorf("failed to delete project run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// AppendControl appends one control signal for the backend to consume.
// Existing rows are never updated or removed.
func (r *RunRepository) AppendControl(ctx context.Context, runID int64, signal models.RunSignal) error {
	query := `INSERT INTO project_run_controls (project_run_id, signal) VALUES ($1, $2)`

	if _, err := r.pool.Exec(ctx, query, runID, int(signal)); err != nil {
		return fmt.Errorf("failed to append run control: %w", err)
	}

	return nil
}
