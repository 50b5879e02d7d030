package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkhydro/hydrosim/internal/models"
	"github.com/jackc/pgx/v5"
)

type ForecastRepository struct {
	pool Pool
}

func NewForecastRepository(pool Pool) *ForecastRepository {
	return &ForecastRepository{pool: pool}
}

func (r *ForecastRepository) ListForSystem(ctx context.Context, hydroSystemID int64) ([]models.Forecast, error) {
	query := `
		SELECT forecast_id, forecast_uid, upload_id, hydro_system_id, name
		FROM forecasts
		WHERE hydro_system_id = $1
		ORDER BY forecast_id
	`

	rows, err := r.pool.Query(ctx, query, hydroSystemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list forecasts: %w", err)
	}
	defer rows.Close()

	var forecasts []models.Forecast
	for rows.Next() {
		var f models.Forecast
		if err := rows.Scan(&f.ID, &f.UID, &f.UploadID, &f.HydroSystemID, &f.Name); err != nil {
			return nil, fmt.Errorf("failed to scan forecast: %w", err)
		}
		forecasts = append(forecasts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating forecasts: %w", err)
	}

	return forecasts, nil
}

func (r *ForecastRepository) GetByUID(ctx context.Context, uid string) (*models.Forecast, error) {
	query := `
		SELECT forecast_id, forecast_uid, upload_id, hydro_system_id, name
		FROM forecasts
		WHERE forecast_uid = $1
	`

	var f models.Forecast
	err := r.pool.QueryRow(ctx, query, uid).Scan(&f.ID, &f.UID, &f.UploadID, &f.HydroSystemID, &f.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get forecast: %w", err)
	}

	return &f, nil
}

// NameExists reports whether the hydro system already has a forecast with
// the given name. Forecast names are unique per system, not globally.
func (r *ForecastRepository) NameExists(ctx context.Context, hydroSystemID int64, name string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM forecasts WHERE hydro_system_id = $1 AND name = $2`
	if err := r.pool.QueryRow(ctx, query, hydroSystemID, name).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check forecast name: %w", err)
	}
	return count > 0, nil
}

// Create inserts the forecast together with its owning upload record in one
// transaction.
func (r *ForecastRepository) Create(ctx context.Context, uid, name, sourceFile string, hydroSystemID int64) (*models.Forecast, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var uploadID int64
	uploadQuery := `
		INSERT INTO uploads (upload_time, source_file)
		VALUES ($1, $2)
		RETURNING upload_id
	`
	if err := tx.QueryRow(ctx, uploadQuery, time.Now().UTC(), sourceFile).Scan(&uploadID); err != nil {
		return nil, fmt.Errorf("failed to create upload: %w", err)
	}

	forecast := models.Forecast{UID: uid, UploadID: uploadID, HydroSystemID: hydroSystemID, Name: name}
	forecastQuery := `
		INSERT INTO forecasts (forecast_uid, upload_id, hydro_system_id, name)
		VALUES ($1, $2, $3, $4)
		RETURNING forecast_id
	`
	if err := tx.QueryRow(ctx, forecastQuery, uid, uploadID, hydroSystemID, name).Scan(&forecast.ID); err != nil {
		return nil, fmt.Errorf("failed to create forecast: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit forecast: %w", err)
	}

	return &forecast, nil
}

// Horizon returns what run validation needs from a forecast: its hydro
// system, scenario count, and the time window of the first scenario's price
// series. A forecast with no uploaded scenarios yields ErrNotFound.
func (r *ForecastRepository) Horizon(ctx context.Context, forecast *models.Forecast) (models.ForecastHorizon, error) {
	horizon := models.ForecastHorizon{HydroSystemID: forecast.HydroSystemID}

	countQuery := `SELECT COUNT(*) FROM series_links WHERE forecast_id = $1`
	if err := r.pool.QueryRow(ctx, countQuery, forecast.ID).Scan(&horizon.ScenarioCount); err != nil {
		return horizon, fmt.Errorf("failed to count scenarios: %w", err)
	}

	windowQuery := `
		SELECT s.start_time, s.end_time
		FROM series_links l
		JOIN time_data_series s ON s.time_data_series_id = l.price_series_id
		WHERE l.forecast_id = $1
		ORDER BY l.series_link_id
		LIMIT 1
	`
	err := r.pool.QueryRow(ctx, windowQuery, forecast.ID).Scan(&horizon.StartTime, &horizon.EndTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return horizon, ErrNotFound
		}
		return horizon, fmt.Errorf("failed to read forecast window: %w", err)
	}

	return horizon, nil
}

// ScenarioNames lists the scenario labels uploaded for a forecast.
func (r *ForecastRepository) ScenarioNames(ctx context.Context, forecastID int64) ([]string, error) {
	query := `
		SELECT s.description
		FROM series_links l
		JOIN time_data_series s ON s.time_data_series_id = l.inflow_series_id
		WHERE l.forecast_id = $1
		ORDER BY l.series_link_id
	`

	rows, err := r.pool.Query(ctx, query, forecastID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan scenario name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scenario names: %w", err)
	}

	return names, nil
}

// Scenario reads back the time index and inflow/price vectors of one
// uploaded scenario.
func (r *ForecastRepository) Scenario(ctx context.Context, forecastID int64, scenario string) (*models.ForecastScenario, error) {
	linkQuery := `
		SELECT l.inflow_series_id, l.price_series_id
		FROM series_links l
		JOIN time_data_series s ON s.time_data_series_id = l.inflow_series_id
		WHERE l.forecast_id = $1 AND s.description = $2
	`

	var inflowID, priceID int64
	err := r.pool.QueryRow(ctx, linkQuery, forecastID, scenario).Scan(&inflowID, &priceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve scenario: %w", err)
	}

	inflowTimes, inflowValues, err := r.seriesValues(ctx, inflowID)
	if err != nil {
		return nil, err
	}
	_, priceValues, err := r.seriesValues(ctx, priceID)
	if err != nil {
		return nil, err
	}

	return &models.ForecastScenario{
		TimeIndex:    inflowTimes,
		InflowSeries: inflowValues,
		PriceSeries:  priceValues,
	}, nil
}

func (r *ForecastRepository) seriesValues(ctx context.Context, seriesID int64) ([]time.Time, []float64, error) {
	query := `
		SELECT time_stamp, value
		FROM time_data_values
		WHERE time_data_series_id = $1
		ORDER BY time_stamp
	`

	rows, err := r.pool.Query(ctx, query, seriesID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read series values: %w", err)
	}
	defer rows.Close()

	var times []time.Time
	var values []float64
	for rows.Next() {
		var ts time.Time
		var v float64
		if err := rows.Scan(&ts, &v); err != nil {
			return nil, nil, fmt.Errorf("failed to scan series value: %w", err)
		}
		times = append(times, ts)
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating series values: %w", err)
	}

	return times, values, nil
}

// ScenarioTimeIndex returns the time index any previously uploaded scenario
// of the upload uses, for the shared-index invariant check. A nil slice
// means no scenario exists yet.
func (r *ForecastRepository) ScenarioTimeIndex(ctx context.Context, uploadID int64) ([]time.Time, error) {
	firstQuery := `
		SELECT time_data_series_id
		FROM time_data_series
		WHERE upload_id = $1
		ORDER BY time_data_series_id
		LIMIT 1
	`

	var seriesID int64
	err := r.pool.QueryRow(ctx, firstQuery, uploadID).Scan(&seriesID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find previous series: %w", err)
	}

	times, _, err := r.seriesValues(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	return times, nil
}

// HasScenario reports whether a scenario label was already uploaded for the
// forecast's upload.
func (r *ForecastRepository) HasScenario(ctx context.Context, uploadID int64, scenario string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM time_data_series WHERE upload_id = $1 AND description = $2`
	if err := r.pool.QueryRow(ctx, query, uploadID, scenario).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check scenario: %w", err)
	}
	return count > 0, nil
}

// AddScenario persists one scenario (inflow series, price series, their
// values and the pairing link) atomically. Multi-row inserts for thousands
// of points ride one transaction so a crash never leaves a torn scenario.
func (r *ForecastRepository) AddScenario(ctx context.Context, forecast *models.Forecast, scenario string, payload *models.ForecastScenario) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	start := payload.TimeIndex[0]
	end := payload.TimeIndex[len(payload.TimeIndex)-1]

	seriesQuery := `
		INSERT INTO time_data_series (upload_id, start_time, end_time, description, series_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING time_data_series_id
	`

	var inflowID int64
	if err := tx.QueryRow(ctx, seriesQuery, forecast.UploadID, start, end, scenario, models.SeriesTypeInflow).Scan(&inflowID); err != nil {
		return fmt.Errorf("failed to create inflow series: %w", err)
	}
	var priceID int64
	if err := tx.QueryRow(ctx, seriesQuery, forecast.UploadID, start, end, scenario, models.SeriesTypePrice).Scan(&priceID); err != nil {
		return fmt.Errorf("failed to create price series: %w", err)
	}

	valueQuery := `
		INSERT INTO time_data_values (time_data_series_id, time_stamp, value)
		VALUES ($1, $2, $3)
	`
	for i, ts := range payload.TimeIndex {
		if _, err := tx.Exec(ctx, valueQuery, inflowID, ts, payload.InflowSeries[i]); err != nil {
			return fmt.Errorf("failed to insert inflow value: %w", err)
		}
		if _, err := tx.Exec(ctx, valueQuery, priceID, ts, payload.PriceSeries[i]); err != nil {
			return fmt.Errorf("failed to insert price value: %w", err)
		}
	}

	linkQuery := `
		INSERT INTO series_links (upload_id, forecast_id, inflow_series_id, price_series_id)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := tx.Exec(ctx, linkQuery, forecast.UploadID, forecast.ID, inflowID, priceID); err != nil {
		return fmt.Errorf("failed to create series link: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit scenario: %w", err)
	}

	return nil
}
