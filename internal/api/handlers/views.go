package handlers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dkhydro/hydrosim/internal/database"
	"github.com/dkhydro/hydrosim/internal/models"
)

// ForecastView is the forecast reference embedded in run payloads.
type ForecastView struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
}

// RunView is the API shape of a project run. Name carries the submitted
// comment; the persisted settings blob is decoded back into its typed form.
type RunView struct {
	UID       string             `json:"uid"`
	Name      string             `json:"name"`
	StartTime *time.Time         `json:"startTime"`
	EndTime   *time.Time         `json:"endTime"`
	Settings  models.RunSettings `json:"settings"`
	Forecast  ForecastView       `json:"forecast"`
}

func newRunView(rf database.RunWithForecast) (RunView, error) {
	var settings models.RunSettings
	if err := json.Unmarshal([]byte(rf.Run.Settings), &settings); err != nil {
		return RunView{}, fmt.Errorf("failed to decode settings of run '%s': %w", rf.Run.UID, err)
	}

	return RunView{
		UID:       rf.Run.UID,
		Name:      rf.Run.Comment,
		StartTime: rf.Run.StartTime,
		EndTime:   rf.Run.EndTime,
		Settings:  settings,
		Forecast:  ForecastView{UID: rf.Forecast.UID, Name: rf.Forecast.Name},
	}, nil
}

func newRunViews(rfs []database.RunWithForecast) ([]RunView, error) {
	views := make([]RunView, 0, len(rfs))
	for _, rf := range rfs {
		view, err := newRunView(rf)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// ProjectView pairs a project with its hydro system for list responses.
type ProjectView struct {
	UID         string          `json:"uid"`
	Name        string          `json:"name"`
	HydroSystem HydroSystemView `json:"hydroSystem"`
}

type HydroSystemView struct {
	UID         string `json:"uid"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
