package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkhydro/hydrosim/internal/backend"
	"github.com/dkhydro/hydrosim/internal/models"
)

func TestListProjects(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectQuery("FROM projects p").
		WillReturnRows(pgxmock.NewRows([]string{
			"project_id", "project_uid", "name", "hydro_system_id",
			"hydro_system_id", "hydro_system_uid", "name", "description",
		}).AddRow(int64(7), "proj-1", "Glomma study", int64(3),
			int64(3), "sys-1", "Glomma", "Glomma river system"))

	rec := env.do(http.MethodGet, "/api/v1/projects", "")
	requireStatus(t, rec, http.StatusOK)

	var views []ProjectView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "proj-1", views[0].UID)
	assert.Equal(t, "sys-1", views[0].HydroSystem.UID)
}

func TestCreateProjectMissingName(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/projects?hydrosystemUid=sys-1", "")
	requireStatus(t, rec, http.StatusBadRequest)
	assert.Contains(t, rec.Body.String(), "'name'")
}

func TestCreateProjectUnknownSystem(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectQuery("FROM hydro_systems").
		WithArgs("nope").
		WillReturnRows(pgxmock.NewRows([]string{"hydro_system_id", "hydro_system_uid", "name", "description"}))

	rec := env.do(http.MethodPost, "/api/v1/projects?name=Test&hydrosystemUid=nope", "")
	requireStatus(t, rec, http.StatusNotFound)
}

func TestCreateProjectDuplicateName(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectQuery("FROM hydro_systems").WithArgs("sys-1").WillReturnRows(systemRows())
	env.mock.ExpectQuery("COUNT").WithArgs("Glomma study").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	rec := env.do(http.MethodPost, "/api/v1/projects?name=Glomma+study&hydrosystemUid=sys-1", "")
	requireStatus(t, rec, http.StatusBadRequest)
	assert.Contains(t, rec.Body.String(), "already exists")
}

func TestCreateProject(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectQuery("FROM hydro_systems").WithArgs("sys-1").WillReturnRows(systemRows())
	env.mock.ExpectQuery("COUNT").WithArgs("New study").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	env.mock.ExpectQuery("INSERT INTO projects").
		WillReturnRows(pgxmock.NewRows([]string{"project_id"}).AddRow(int64(8)))

	rec := env.do(http.MethodPost, "/api/v1/projects?name=New+study&hydrosystemUid=sys-1", "")
	requireStatus(t, rec, http.StatusOK)

	var view ProjectView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.NotEmpty(t, view.UID)
	assert.Equal(t, "New study", view.Name)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestSettingsTemplateSeedsMinVolumes(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectQuery("FROM projects").WithArgs("proj-1").WillReturnRows(projectRows())
	env.mock.ExpectQuery("FROM reservoirs").WithArgs(int64(3)).WillReturnRows(reservoirRows())

	rec := env.do(http.MethodGet, "/api/v1/projects/proj-1/runsettingstemplate", "")
	requireStatus(t, rec, http.StatusOK)

	var settings models.RunSettings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &settings))
	assert.Equal(t, map[string]float64{"Upper": 10, "Lower": 0}, settings.StartVolumes)
	assert.Equal(t, 104, settings.StepsInEpisode)
	assert.Equal(t, models.ResolutionWeek, settings.StepResolution)
	assert.Equal(t, 10000, settings.TrainEpisodes)
}

func TestListRunsFiltersEvaluations(t *testing.T) {
	env := newTestEnv(t)

	settingsBlob, err := json.Marshal(models.TemplateRunSettings(nil))
	require.NoError(t, err)

	env.mock.ExpectQuery("FROM projects").WithArgs("proj-1").WillReturnRows(projectRows())
	env.mock.ExpectQuery("evaluated_on IS NULL").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{
			"project_run_id", "project_run_uid", "project_id", "forecast_id",
			"start_time", "end_time", "settings", "comment",
			"evaluated_on", "previous_run_id", "previous_qvalue_run_id",
			"forecast_id", "forecast_uid", "upload_id", "hydro_system_id", "name",
		}).AddRow(int64(42), "run-1", int64(7), int64(11), nil, nil, string(settingsBlob), "baseline",
			nil, nil, nil, int64(11), "fc-1", int64(4), int64(3), "inflow-2025"))

	rec := env.do(http.MethodGet, "/api/v1/projects/proj-1/projectruns", "")
	requireStatus(t, rec, http.StatusOK)

	var views []RunView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "run-1", views[0].UID)
	assert.Equal(t, "baseline", views[0].Name)
	assert.Equal(t, "fc-1", views[0].Forecast.UID)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestStartRunMissingForecastArgument(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPut, "/api/v1/projects/proj-1/run", "{}")
	requireStatus(t, rec, http.StatusBadRequest)
	assert.Contains(t, rec.Body.String(), "'forecastUid'")
}

func TestStartRunProjectNotFound(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectQuery("FROM projects").WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"project_id", "project_uid", "name", "hydro_system_id"}))

	body, _ := json.Marshal(models.TemplateRunSettings(nil))
	rec := env.do(http.MethodPut, "/api/v1/projects/missing/run?forecastUid=fc-1", string(body))
	requireStatus(t, rec, http.StatusNotFound)
}

func TestStartRunBackendFailureProxiesStatus(t *testing.T) {
	env := newTestEnv(t)
	env.backend.startErr = &backend.StatusError{StatusCode: http.StatusBadGateway, Body: "queue full"}

	settings := trainingSettings()
	expectTrainingRunQueries(env.mock)
	env.mock.ExpectExec("DELETE FROM project_runs").
		WithArgs(int64(42)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	body, err := json.Marshal(settings)
	require.NoError(t, err)
	rec := env.do(http.MethodPut, "/api/v1/projects/proj-1/run?forecastUid=fc-1", string(body))

	requireStatus(t, rec, http.StatusBadGateway)
	assert.Contains(t, rec.Body.String(), "Internal problem. Please contact support.")
	// The proxied body never leaks the backend's own message.
	assert.NotContains(t, rec.Body.String(), "queue full")
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestStartRun(t *testing.T) {
	env := newTestEnv(t)

	settings := trainingSettings()
	expectTrainingRunQueries(env.mock)

	body, err := json.Marshal(settings)
	require.NoError(t, err)
	rec := env.do(http.MethodPut, "/api/v1/projects/proj-1/run?forecastUid=fc-1", string(body))
	requireStatus(t, rec, http.StatusOK)

	var view RunView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.NotEmpty(t, view.UID)
	assert.Equal(t, settings.StartVolumes, view.Settings.StartVolumes)
	assert.Equal(t, "inflow-2025", view.Forecast.Name)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

// trainingSettings is a settings payload that passes validation against the
// fixture project, reservoirs and forecast horizon.
func trainingSettings() models.RunSettings {
	settings := models.TemplateRunSettings([]models.Reservoir{
		{ID: 1, Name: "Upper", MinVolume: 10, MaxVolume: 100},
		{ID: 2, Name: "Lower", MinVolume: 0, MaxVolume: 50},
	})
	settings.StepsInEpisode = 10
	return settings
}

func expectTrainingRunQueries(mock pgxmock.PgxPoolIface) {
	mock.ExpectQuery("FROM projects").WithArgs("proj-1").WillReturnRows(projectRows())
	mock.ExpectQuery("FROM forecasts").WithArgs("fc-1").WillReturnRows(forecastLookupRows())
	mock.ExpectQuery("FROM reservoirs").WithArgs(int64(3)).WillReturnRows(reservoirRows())
	mock.ExpectQuery("FROM series_links WHERE forecast_id").
		WithArgs(int64(11)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectQuery("JOIN time_data_series").
		WithArgs(int64(11)).
		WillReturnRows(pgxmock.NewRows([]string{"start_time", "end_time"}).
			AddRow(testTime(2025, 1, 1), testTime(2025, 12, 31)))
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO project_runs").
		WillReturnRows(pgxmock.NewRows([]string{"project_run_id"}).AddRow(int64(42)))
	mock.ExpectExec("INSERT INTO project_run_start_volumes").
		WithArgs(int64(42), int64(1), 10.0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO project_run_start_volumes").
		WithArgs(int64(42), int64(2), 0.0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
}
