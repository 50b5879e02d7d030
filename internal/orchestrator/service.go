// Package orchestrator creates project runs: it validates candidate
// settings against persisted domain state, persists the run atomically, and
// hands the run off to the external compute backend, rolling the run back
// if the handoff fails.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dkhydro/hydrosim/internal/database"
	"github.com/dkhydro/hydrosim/internal/models"
	"github.com/dkhydro/hydrosim/internal/validation"
	"github.com/google/uuid"
)

// Backend is the slice of the compute-service client the orchestrator uses.
type Backend interface {
	StartRun(ctx context.Context, projectUID string, runID int64) error
	Evaluate(ctx context.Context, runUID string) error
}

type Service struct {
	projects  *database.ProjectRepository
	systems   *database.HydroSystemRepository
	forecasts *database.ForecastRepository
	runs      *database.RunRepository
	agents    *database.AgentRepository
	backend   Backend
	logger    *slog.Logger
}

func NewService(
	projects *database.ProjectRepository,
	systems *database.HydroSystemRepository,
	forecasts *database.ForecastRepository,
	runs *database.RunRepository,
	agents *database.AgentRepository,
	backend Backend,
	logger *slog.Logger,
) *Service {
	return &Service{
		projects:  projects,
		systems:   systems,
		forecasts: forecasts,
		runs:      runs,
		agents:    agents,
		backend:   backend,
		logger:    logger,
	}
}

// CreateTrainingRun validates and persists a new training run, then starts
// it on the compute backend. On backend failure the persisted run is
// deleted again; no half-created run stays visible. Every call creates a
// fresh run; duplicate submissions are deliberately not deduplicated.
func (s *Service) CreateTrainingRun(ctx context.Context, projectUID, forecastUID string, settings *models.RunSettings) (*database.RunWithForecast, error) {
	project, err := s.projects.GetByUID(ctx, projectUID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("project with uid '%s' was not found: %w", projectUID, database.ErrNotFound)
		}
		return nil, err
	}

	forecast, reservoirs, err := s.validateRunInputs(ctx, project, forecastUID, settings)
	if err != nil {
		return nil, err
	}

	previousRun, err := s.resolvePrevious(ctx, project, settings.PreviousProjectRunUID, settings)
	if err != nil {
		return nil, err
	}
	previousQValueRun, err := s.resolvePrevious(ctx, project, settings.PreviousQValueProjectRunUID, settings)
	if err != nil {
		return nil, err
	}

	run, err := s.buildRun(project, forecast, settings)
	if err != nil {
		return nil, err
	}
	if previousRun != nil {
		run.PreviousRunID = &previousRun.ID
	}
	if previousQValueRun != nil {
		run.PreviousQValueRunID = &previousQValueRun.ID
	}

	if err := s.runs.Create(ctx, run, startVolumes(reservoirs, settings.StartVolumes)); err != nil {
		return nil, err
	}

	s.logger.Info("project run created",
		"project_uid", projectUID, "run_uid", run.UID, "forecast_uid", forecastUID)

	if err := s.backend.StartRun(ctx, projectUID, run.ID); err != nil {
		s.compensate(ctx, run)
		return nil, err
	}

	return &database.RunWithForecast{Run: *run, Forecast: *forecast}, nil
}

// CreateEvaluationRun persists an evaluation run for the base run's best
// agent and triggers the backend's evaluate job, with the same compensation
// rule as training runs.
func (s *Service) CreateEvaluationRun(ctx context.Context, baseRunUID, forecastUID string, settings *models.RunSettings) (*database.RunWithForecast, error) {
	baseRun, err := s.runs.GetByUID(ctx, baseRunUID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("project run with uid '%s' was not found: %w", baseRunUID, database.ErrNotFound)
		}
		return nil, err
	}

	project, err := s.projects.GetByID(ctx, baseRun.ProjectID)
	if err != nil {
		return nil, err
	}

	forecast, reservoirs, err := s.validateRunInputs(ctx, project, forecastUID, settings)
	if err != nil {
		return nil, err
	}

	agent, err := s.agents.BestForRun(ctx, baseRunUID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("no agents found for project run '%s': %w", baseRunUID, database.ErrNotFound)
		}
		return nil, err
	}

	run, err := s.buildRun(project, forecast, settings)
	if err != nil {
		return nil, err
	}
	run.EvaluatedOn = &agent.ID

	if err := s.runs.Create(ctx, run, startVolumes(reservoirs, settings.StartVolumes)); err != nil {
		return nil, err
	}

	s.logger.Info("evaluation run created",
		"base_run_uid", baseRunUID, "run_uid", run.UID, "agent_uid", agent.UID)

	if err := s.backend.Evaluate(ctx, run.UID); err != nil {
		s.compensate(ctx, run)
		return nil, err
	}

	return &database.RunWithForecast{Run: *run, Forecast: *forecast}, nil
}

// validateRunInputs resolves the forecast and reservoir set and runs the
// settings checks shared by training and evaluation creation.
func (s *Service) validateRunInputs(ctx context.Context, project *models.Project, forecastUID string, settings *models.RunSettings) (*models.Forecast, []models.Reservoir, error) {
	forecast, err := s.forecasts.GetByUID(ctx, forecastUID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil, fmt.Errorf("forecast with uid '%s' was not found: %w", forecastUID, database.ErrNotFound)
		}
		return nil, nil, err
	}

	reservoirs, err := s.systems.Reservoirs(ctx, project.HydroSystemID)
	if err != nil {
		return nil, nil, err
	}

	horizon, err := s.forecasts.Horizon(ctx, forecast)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil, &validation.Error{Reason: fmt.Sprintf("forecast '%s' has no uploaded scenarios", forecast.Name)}
		}
		return nil, nil, err
	}

	if err := validation.ValidateSettings(settings, project, reservoirs, horizon); err != nil {
		return nil, nil, err
	}

	return forecast, reservoirs, nil
}

// resolvePrevious loads one optional lineage reference scoped to the
// project and checks the episode-horizon bound against it.
func (s *Service) resolvePrevious(ctx context.Context, project *models.Project, previousUID *string, settings *models.RunSettings) (*models.ProjectRun, error) {
	if previousUID == nil {
		return nil, nil
	}

	previous, err := s.runs.GetByUIDInProject(ctx, *previousUID, project.ID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("previous run with uid '%s' was not found in project: %w", *previousUID, database.ErrNotFound)
		}
		return nil, err
	}

	var previousSettings models.RunSettings
	if err := json.Unmarshal([]byte(previous.Settings), &previousSettings); err != nil {
		return nil, fmt.Errorf("failed to decode settings of previous run '%s': %w", *previousUID, err)
	}

	if err := validation.ValidateAgainstPrevious(settings, &previousSettings); err != nil {
		return nil, err
	}

	return previous, nil
}

func (s *Service) buildRun(project *models.Project, forecast *models.Forecast, settings *models.RunSettings) (*models.ProjectRun, error) {
	blob, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize run settings: %w", err)
	}

	return &models.ProjectRun{
		UID:        uuid.NewString(),
		ProjectID:  project.ID,
		ForecastID: forecast.ID,
		Settings:   string(blob),
		Comment:    settings.Comment,
	}, nil
}

// compensate deletes a run whose backend handoff failed. Start volumes
// cascade with the run. A failed delete is logged and otherwise swallowed:
// the caller already has the backend error to report.
func (s *Service) compensate(ctx context.Context, run *models.ProjectRun) {
	if err := s.runs.Delete(ctx, run.ID); err != nil {
		s.logger.Error("failed to roll back project run after backend failure",
			"run_uid", run.UID, "error", err)
		return
	}
	s.logger.Warn("project run rolled back after backend failure", "run_uid", run.UID)
}

func startVolumes(reservoirs []models.Reservoir, volumes map[string]float64) []models.StartVolume {
	result := make([]models.StartVolume, 0, len(reservoirs))
	for _, res := range reservoirs {
		result = append(result, models.StartVolume{ReservoirID: res.ID, Value: volumes[res.Name]})
	}
	return result
}
