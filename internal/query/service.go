package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dkhydro/hydrosim/internal/database"
	"github.com/dkhydro/hydrosim/internal/models"
	"github.com/dkhydro/hydrosim/internal/validation"
)

const (
	bestReturnSeries = "Best Return"
	scalarSeriesType = "scalars"
)

// Service answers read-side questions about runs and forecasts: training
// progress, logged series, best solutions and cached scenario data. It talks
// to the database directly for the aggregate queries and through the
// repositories for entity lookups.
type Service struct {
	pool      database.Pool
	runs      *database.RunRepository
	agents    *database.AgentRepository
	forecasts *database.ForecastRepository
	cache     *database.RedisClient
	cacheTTL  time.Duration
	logger    *slog.Logger
}

func NewService(
	pool database.Pool,
	runs *database.RunRepository,
	agents *database.AgentRepository,
	forecasts *database.ForecastRepository,
	cache *database.RedisClient,
	cacheTTL time.Duration,
	logger *slog.Logger,
) *Service {
	return &Service{
		pool:      pool,
		runs:      runs,
		agents:    agents,
		forecasts: forecasts,
		cache:     cache,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// Progress reports training progress for a run as a single series: the best
// return logged by any agent at each step.
func (s *Service) Progress(ctx context.Context, runUID string) (*RunDetails, error) {
	if _, err := s.runs.GetByUID(ctx, runUID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT v.step, MAX(v.value)
		FROM project_runs r
		JOIN agents a ON a.project_run_id = r.project_run_id
		JOIN step_series s ON s.agent_id = a.agent_id
		JOIN step_values v ON v.step_series_id = s.step_series_id
		WHERE r.project_run_uid = $1 AND s.series_type = $2 AND s.description = $3
		GROUP BY v.step
		ORDER BY v.step`,
		runUID, scalarSeriesType, bestReturnSeries)
	if err != nil {
		return nil, fmt.Errorf("failed to query run progress: %w", err)
	}
	defer rows.Close()

	series := StepSeriesView{Name: bestReturnSeries}
	for rows.Next() {
		var step, value float64
		if err := rows.Scan(&step, &value); err != nil {
			return nil, fmt.Errorf("failed to scan progress row: %w", err)
		}
		series.Steps = append(series.Steps, step)
		series.Values = append(series.Values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read progress rows: %w", err)
	}

	return &RunDetails{Progress: 100, Status: []StepSeriesView{series}}, nil
}

// Details returns every scalar series logged for a run, one view per series.
func (s *Service) Details(ctx context.Context, runUID string) (*RunDetails, error) {
	if _, err := s.runs.GetByUID(ctx, runUID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT s.step_series_id, s.description, v.step, v.value
		FROM project_runs r
		JOIN agents a ON a.project_run_id = r.project_run_id
		JOIN step_series s ON s.agent_id = a.agent_id
		JOIN step_values v ON v.step_series_id = s.step_series_id
		WHERE r.project_run_uid = $1 AND s.series_type = $2
		ORDER BY s.step_series_id, v.step`,
		runUID, scalarSeriesType)
	if err != nil {
		return nil, fmt.Errorf("failed to query run series: %w", err)
	}
	defer rows.Close()

	details := &RunDetails{Progress: 100}
	var currentID int64 = -1
	for rows.Next() {
		var (
			seriesID    int64
			description string
			step, value float64
		)
		if err := rows.Scan(&seriesID, &description, &step, &value); err != nil {
			return nil, fmt.Errorf("failed to scan series row: %w", err)
		}
		if seriesID != currentID {
			details.Status = append(details.Status, StepSeriesView{Name: description})
			currentID = seriesID
		}
		last := &details.Status[len(details.Status)-1]
		last.Steps = append(last.Steps, step)
		last.Values = append(last.Values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read series rows: %w", err)
	}

	return details, nil
}

// BestSolution returns the report series recorded at the best agent's best
// step, grouped per evaluation episode.
func (s *Service) BestSolution(ctx context.Context, runUID string) (*ReportData, error) {
	if _, err := s.runs.GetByUID(ctx, runUID); err != nil {
		return nil, err
	}

	agent, err := s.agents.BestForRun(ctx, runUID)
	if err != nil {
		return nil, err
	}
	if agent.BestStep == nil {
		return nil, database.ErrNotFound
	}

	return s.reportData(ctx, runUID, agent.ID, *agent.BestStep)
}

// EvaluationResult returns the report series of an evaluation run. Evaluation
// runs replay a single step with the base run's best agent, so the report is
// always read at step one.
func (s *Service) EvaluationResult(ctx context.Context, runUID string) (*ReportData, error) {
	run, err := s.runs.GetByUID(ctx, runUID)
	if err != nil {
		return nil, err
	}
	if !run.IsEvaluation() {
		return nil, &validation.Error{Reason: "project run is not an evaluation run"}
	}

	return s.reportData(ctx, runUID, *run.EvaluatedOn, 1)
}

func (s *Service) reportData(ctx context.Context, runUID string, agentID int64, step int) (*ReportData, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT e.evaluation_episode_id, e.description, rs.description, rv.time_stamp, rv.value
		FROM project_runs r
		JOIN evaluation_episodes e ON e.project_run_id = r.project_run_id
		JOIN report_series rs ON rs.evaluation_episode_id = e.evaluation_episode_id
		JOIN report_values rv ON rv.report_series_id = rs.report_series_id
		WHERE r.project_run_uid = $1 AND e.agent_id = $2 AND rv.step = $3
		ORDER BY e.evaluation_episode_id, rs.report_series_id, rv.time_stamp`,
		runUID, agentID, step)
	if err != nil {
		return nil, fmt.Errorf("failed to query report values: %w", err)
	}
	defer rows.Close()

	data := &ReportData{}
	var currentEpisode int64 = -1
	var currentSeries string
	for rows.Next() {
		var (
			episodeID               int64
			episodeName, seriesName string
			timestamp               time.Time
			value                   float64
		)
		if err := rows.Scan(&episodeID, &episodeName, &seriesName, &timestamp, &value); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		if episodeID != currentEpisode {
			data.Episodes = append(data.Episodes, ReportEpisode{Name: episodeName})
			currentEpisode = episodeID
			currentSeries = ""
		}
		episode := &data.Episodes[len(data.Episodes)-1]
		if seriesName != currentSeries {
			episode.Series = append(episode.Series, TimeSeriesView{Name: seriesName})
			currentSeries = seriesName
		}
		series := &episode.Series[len(episode.Series)-1]
		series.Values = append(series.Values, value)
		// All series of a report share one time index. Collect it once.
		if len(data.Episodes) == 1 && len(episode.Series) == 1 {
			data.TimeStamps = append(data.TimeStamps, timestamp)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read report rows: %w", err)
	}
	if len(data.Episodes) == 0 {
		return nil, database.ErrNotFound
	}

	return data, nil
}

// ScenarioNames lists the scenario names of a forecast, cache-aside through
// Redis when a cache is configured.
func (s *Service) ScenarioNames(ctx context.Context, forecastUID string) ([]string, error) {
	forecast, err := s.forecasts.GetByUID(ctx, forecastUID)
	if err != nil {
		return nil, err
	}

	key := scenarioNamesKey(forecastUID)
	var names []string
	if s.cacheGet(ctx, key, &names) {
		return names, nil
	}

	names, err = s.forecasts.ScenarioNames(ctx, forecast.ID)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, key, names)

	return names, nil
}

// Scenario fetches one scenario's time index and inflow/price vectors.
// Scenarios are immutable after upload, so cached entries never go stale.
func (s *Service) Scenario(ctx context.Context, forecastUID, scenario string) (*models.ForecastScenario, error) {
	forecast, err := s.forecasts.GetByUID(ctx, forecastUID)
	if err != nil {
		return nil, err
	}

	key := scenarioDataKey(forecastUID, scenario)
	var cached models.ForecastScenario
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	payload, err := s.forecasts.Scenario(ctx, forecast.ID, scenario)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, key, payload)

	return payload, nil
}

// InvalidateScenarios drops the cached scenario-name list for a forecast.
// Called after a new scenario upload.
func (s *Service) InvalidateScenarios(ctx context.Context, forecastUID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, scenarioNamesKey(forecastUID)); err != nil {
		s.logger.Warn("failed to invalidate scenario cache", "forecast_uid", forecastUID, "error", err)
	}
}

func scenarioNamesKey(forecastUID string) string {
	return fmt.Sprintf("forecast:%s:scenarios", forecastUID)
}

func scenarioDataKey(forecastUID, scenario string) string {
	return fmt.Sprintf("forecast:%s:scenario:%s", forecastUID, scenario)
}

func (s *Service) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		s.logger.Warn("failed to decode cached value", "key", key, "error", err)
		return false
	}
	return true
}

func (s *Service) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("failed to encode value for cache", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache value", "key", key, "error", err)
	}
}
