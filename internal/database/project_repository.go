package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkhydro/hydrosim/internal/models"
	"github.com/jackc/pgx/v5"
)

// ProjectWithSystem pairs a project with its hydro system for list views.
type ProjectWithSystem struct {
	Project models.Project
	System  models.HydroSystem
}

type ProjectRepository struct {
	pool Pool
}

func NewProjectRepository(pool Pool) *ProjectRepository {
	return &ProjectRepository{pool: pool}
}

func (r *ProjectRepository) List(ctx context.Context) ([]ProjectWithSystem, error) {
	query := `
		SELECT p.project_id, p.project_uid, p.name, p.hydro_system_id,
		       h.hydro_system_id, h.hydro_system_uid, h.name, h.description
		FROM projects p
		JOIN hydro_systems h ON h.hydro_system_id = p.hydro_system_id
		ORDER BY p.project_id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []ProjectWithSystem
	for rows.Next() {
		var p ProjectWithSystem
		err := rows.Scan(
			&p.Project.ID, &p.Project.UID, &p.Project.Name, &p.Project.HydroSystemID,
			&p.System.ID, &p.System.UID, &p.System.Name, &p.System.Description,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}

	return projects, nil
}

func (r *ProjectRepository) GetByUID(ctx context.Context, uid string) (*models.Project, error) {
	query := `
		SELECT project_id, project_uid, name, hydro_system_id
		FROM projects
		WHERE project_uid = $1
	`

	var project models.Project
	err := r.pool.QueryRow(ctx, query, uid).Scan(&project.ID, &project.UID, &project.Name, &project.HydroSystemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &project, nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, id int64) (*models.Project, error) {
	query := `
		SELECT project_id, project_uid, name, hydro_system_id
		FROM projects
		WHERE project_id = $1
	`

	var project models.Project
	err := r.pool.QueryRow(ctx, query, id).Scan(&project.ID, &project.UID, &project.Name, &project.HydroSystemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &project, nil
}

// NameExists reports whether any project already uses the given name.
// Project names are unique system-wide.
func (r *ProjectRepository) NameExists(ctx context.Context, name string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM projects WHERE name = $1`
	if err := r.pool.QueryRow(ctx, query, name).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check project name: %w", err)
	}
	return count > 0, nil
}

func (r *ProjectRepository) Create(ctx context.Context, uid, name string, hydroSystemID int64) (*models.Project, error) {
	query := `
		INSERT INTO projects (project_uid, name, hydro_system_id)
		VALUES ($1, $2, $3)
		RETURNING project_id
	`

	project := models.Project{UID: uid, Name: name, HydroSystemID: hydroSystemID}
	if err := r.pool.QueryRow(ctx, query, uid, name, hydroSystemID).Scan(&project.ID); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return &project, nil
}
