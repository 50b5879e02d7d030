// Package validation decides whether candidate run settings are acceptable
// for a project and forecast before anything is persisted. All functions are
// pure; rejections are client-correctable unless noted otherwise.
package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dkhydro/hydrosim/internal/models"
)

// Error is a structured rejection of a run-settings candidate. It maps to a
// bad-request response at the transport layer.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

func reject(format string, args ...interface{}) *Error {
	return &Error{Reason: fmt.Sprintf(format, args...)}
}

// ValidateSettings runs the acceptance checks in order, short-circuiting on
// the first failure:
//
//  1. the forecast belongs to the project's hydro system,
//  2. the episode horizon fits inside the forecast horizon,
//  3. the forecast has enough scenarios for the requested evaluation episodes,
//  4. start volumes are present,
//  5. start volumes cover every reservoir of the hydro system, and
//  6. every start volume lies within its reservoir's bounds.
//
// A *Error return is a client error; any other error is an internal defect
// (unhandled step resolution).
func ValidateSettings(settings *models.RunSettings, project *models.Project, reservoirs []models.Reservoir, forecast models.ForecastHorizon) error {
	if project.HydroSystemID != forecast.HydroSystemID {
		return reject("forecast is not valid for the specified project and its linked hydrosystem")
	}

	span, err := EpisodeSpan(settings.StepResolution, settings.StepFrequency, settings.StepsInEpisode)
	if err != nil {
		return err
	}
	episodeEnd := forecast.StartTime.Add(span)
	if episodeEnd.After(forecast.EndTime) {
		return reject("end time of episode %s comes after end time of forecast %s; consider reducing stepResolution, stepFrequency or stepsInEpisode",
			episodeEnd.Format("2006-01-02T15:04:05Z07:00"), forecast.EndTime.Format("2006-01-02T15:04:05Z07:00"))
	}

	if settings.EvaluationEpisodes > forecast.ScenarioCount {
		return reject("the forecast contains %d scenarios; value for evaluationEpisodes has to be less than or equal to that", forecast.ScenarioCount)
	}

	if len(settings.StartVolumes) == 0 {
		return reject("start volumes must be specified for all reservoirs")
	}

	expected := make([]string, 0, len(reservoirs))
	matched := 0
	for _, res := range reservoirs {
		expected = append(expected, res.Name)
		if _, ok := settings.StartVolumes[res.Name]; ok {
			matched++
		}
	}
	if matched != len(reservoirs) {
		supplied := make([]string, 0, len(settings.StartVolumes))
		for name := range settings.StartVolumes {
			supplied = append(supplied, name)
		}
		sort.Strings(supplied)
		return reject("expected volumes for reservoirs %s, but got %s",
			strings.Join(expected, ","), strings.Join(supplied, ","))
	}

	for _, res := range reservoirs {
		vol := settings.StartVolumes[res.Name]
		if vol < res.MinVolume || vol > res.MaxVolume {
			return reject("expected start volume for reservoir %s to be >= %g and <= %g, but got %g",
				res.Name, res.MinVolume, res.MaxVolume, vol)
		}
	}

	return nil
}

// ValidateAgainstPrevious enforces the lineage bound: a run chained onto a
// previous run cannot cover a longer episode horizon than that run did.
func ValidateAgainstPrevious(current, previous *models.RunSettings) error {
	currentSpan, err := EpisodeSpan(current.StepResolution, current.StepFrequency, current.StepsInEpisode)
	if err != nil {
		return err
	}
	previousSpan, err := EpisodeSpan(previous.StepResolution, previous.StepFrequency, previous.StepsInEpisode)
	if err != nil {
		return err
	}

	if currentSpan > previousSpan {
		return reject("time period for current run cannot be longer than previous runs; verify stepResolution, stepFrequency or stepsInEpisode")
	}

	return nil
}
