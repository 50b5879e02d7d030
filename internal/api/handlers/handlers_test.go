package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/dkhydro/hydrosim/internal/database"
	"github.com/dkhydro/hydrosim/internal/orchestrator"
	"github.com/dkhydro/hydrosim/internal/query"
)

type fakeBackend struct {
	startErr    error
	evaluateErr error
}

func (f *fakeBackend) StartRun(context.Context, string, int64) error { return f.startErr }
func (f *fakeBackend) Evaluate(context.Context, string) error        { return f.evaluateErr }

type testEnv struct {
	mock    pgxmock.PgxPoolIface
	backend *fakeBackend
	router  *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	projects := database.NewProjectRepository(mock)
	systems := database.NewHydroSystemRepository(mock)
	forecasts := database.NewForecastRepository(mock)
	runs := database.NewRunRepository(mock)
	agents := database.NewAgentRepository(mock)

	be := &fakeBackend{}
	orch := orchestrator.NewService(projects, systems, forecasts, runs, agents, be, logger)
	queries := query.NewService(mock, runs, agents, forecasts, nil, time.Minute, logger)

	projectHandler := NewProjectHandler(projects, systems, runs, orch, logger)
	runHandler := NewRunHandler(runs, orch, queries, logger)
	systemHandler := NewHydroSystemHandler(systems, forecasts, logger)
	forecastHandler := NewForecastHandler(systems, forecasts, queries, logger)

	router := gin.New()
	v1 := router.Group("/api/v1")
	v1.GET("/projects", projectHandler.List)
	v1.POST("/projects", projectHandler.Create)
	v1.GET("/projects/:projectUid/projectruns", projectHandler.ListRuns)
	v1.GET("/projects/:projectUid/evaluations", projectHandler.ListEvaluations)
	v1.GET("/projects/:projectUid/runsettingstemplate", projectHandler.SettingsTemplate)
	v1.PUT("/projects/:projectUid/run", projectHandler.StartRun)
	v1.PUT("/projectruns/:projectRunUid/evaluate", runHandler.Evaluate)
	v1.GET("/projectruns/:projectRunUid/progress", runHandler.Progress)
	v1.GET("/projectruns/:projectRunUid/rundetails", runHandler.Details)
	v1.GET("/projectruns/:projectRunUid/solution", runHandler.Solution)
	v1.PUT("/projectruns/:projectRunUid/terminate", runHandler.Terminate)
	v1.PUT("/projectruns/:projectRunUid/signal", runHandler.Signal)
	v1.GET("/evaluations/:evaluationUid", runHandler.EvaluationResult)
	v1.GET("/hydrosystems", systemHandler.List)
	v1.GET("/hydrosystems/:hydrosystemUid/reservoirs", systemHandler.Reservoirs)
	v1.GET("/hydrosystems/:hydrosystemUid/forecasts", systemHandler.Forecasts)
	v1.POST("/forecasts", forecastHandler.Create)
	v1.POST("/forecasts/:forecastUid", forecastHandler.AddScenario)
	v1.GET("/forecasts/:forecastUid", forecastHandler.Scenarios)
	v1.GET("/forecasts/:forecastUid/scenarios/:scenario", forecastHandler.Scenario)

	return &testEnv{mock: mock, backend: be, router: router}
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func projectRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"project_id", "project_uid", "name", "hydro_system_id"}).
		AddRow(int64(7), "proj-1", "Glomma study", int64(3))
}

func systemRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"hydro_system_id", "hydro_system_uid", "name", "description"}).
		AddRow(int64(3), "sys-1", "Glomma", "Glomma river system")
}

func reservoirRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"reservoir_id", "reservoir_uid", "hydro_system_id", "name", "min_volume", "max_volume"}).
		AddRow(int64(1), "res-upper", int64(3), "Upper", 10.0, 100.0).
		AddRow(int64(2), "res-lower", int64(3), "Lower", 0.0, 50.0)
}

func forecastLookupRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"forecast_id", "forecast_uid", "upload_id", "hydro_system_id", "name"}).
		AddRow(int64(11), "fc-1", int64(4), int64(3), "inflow-2025")
}

func runLookupRows(id int64, uid, settings string, evaluatedOn *int64) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{
		"project_run_id", "project_run_uid", "project_id", "forecast_id",
		"start_time", "end_time", "settings", "comment",
		"evaluated_on", "previous_run_id", "previous_qvalue_run_id",
	})
	if uid != "" {
		rows.AddRow(id, uid, int64(7), int64(11), nil, nil, settings, "", evaluatedOn, nil, nil)
	}
	return rows
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, rec.Code, "body: %s", rec.Body.String())
}

func testTime(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
