package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkhydro/hydrosim/internal/models"
	"github.com/jackc/pgx/v5"
)

// HydroSystemRepository reads hydro systems and their reservoirs. Systems
// are seeded out-of-band; the API never mutates them.
type HydroSystemRepository struct {
	pool Pool
}

func NewHydroSystemRepository(pool Pool) *HydroSystemRepository {
	return &HydroSystemRepository{pool: pool}
}

func (r *HydroSystemRepository) List(ctx context.Context) ([]models.HydroSystem, error) {
	query := `
		SELECT hydro_system_id, hydro_system_uid, name, description
		FROM hydro_systems
		ORDER BY hydro_system_id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list hydro systems: %w", err)
	}
	defer rows.Close()

	var systems []models.HydroSystem
	for rows.Next() {
		var system models.HydroSystem
		if err := rows.Scan(&system.ID, &system.UID, &system.Name, &system.Description); err != nil {
			return nil, fmt.Errorf("failed to scan hydro system: %w", err)
		}
		systems = append(systems, system)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hydro systems: %w", err)
	}

	return systems, nil
}

func (r *HydroSystemRepository) GetByUID(ctx context.Context, uid string) (*models.HydroSystem, error) {
	query := `
		SELECT hydro_system_id, hydro_system_uid, name, description
		FROM hydro_systems
		WHERE hydro_system_uid = $1
	`

	var system models.HydroSystem
	err := r.pool.QueryRow(ctx, query, uid).Scan(&system.ID, &system.UID, &system.Name, &system.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get hydro system: %w", err)
	}

	return &system, nil
}

// Reservoirs returns the system's reservoirs ordered by id, which keeps
// validation error messages and start-volume inserts deterministic.
func (r *HydroSystemRepository) Reservoirs(ctx context.Context, hydroSystemID int64) ([]models.Reservoir, error) {
	query := `
		SELECT reservoir_id, reservoir_uid, hydro_system_id, name, min_volume, max_volume
		FROM reservoirs
		WHERE hydro_system_id = $1
		ORDER BY reservoir_id
	`

	rows, err := r.pool.Query(ctx, query, hydroSystemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservoirs: %w", err)
	}
	defer rows.Close()

	var reservoirs []models.Reservoir
	for rows.Next() {
		var res models.Reservoir
		if err := rows.Scan(&res.ID, &res.UID, &res.HydroSystemID, &res.Name, &res.MinVolume, &res.MaxVolume); err != nil {
			return nil, fmt.Errorf("failed to scan reservoir: %w", err)
		}
		reservoirs = append(reservoirs, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reservoirs: %w", err)
	}

	return reservoirs, nil
}
