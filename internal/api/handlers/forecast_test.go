package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkhydro/hydrosim/internal/models"
)

func scenarioBody(t *testing.T, points int) (models.ForecastScenario, string) {
	t.Helper()

	payload := models.ForecastScenario{}
	for i := 0; i < points; i++ {
		payload.TimeIndex = append(payload.TimeIndex, testTime(2025, 1, 1).Add(time.Duration(i)*7*24*time.Hour))
		payload.InflowSeries = append(payload.InflowSeries, float64(i))
		payload.PriceSeries = append(payload.PriceSeries, float64(i)*2)
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return payload, string(body)
}

func TestCreateForecastDuplicateName(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectQuery("FROM hydro_systems").WithArgs("sys-1").WillReturnRows(systemRows())
	env.mock.ExpectQuery("COUNT").WithArgs(int64(3), "inflow-2025").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	rec := env.do(http.MethodPost, "/api/v1/forecasts?hydrosystemUid=sys-1&forecastName=inflow-2025", "")
	requireStatus(t, rec, http.StatusBadRequest)
	assert.Contains(t, rec.Body.String(), "already exists")
}

func TestCreateForecast(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectQuery("FROM hydro_systems").WithArgs("sys-1").WillReturnRows(systemRows())
	env.mock.ExpectQuery("COUNT").WithArgs(int64(3), "inflow-2026").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	env.mock.ExpectBegin()
	env.mock.ExpectQuery("INSERT INTO uploads").
		WillReturnRows(pgxmock.NewRows([]string{"upload_id"}).AddRow(int64(5)))
	env.mock.ExpectQuery("INSERT INTO forecasts").
		WillReturnRows(pgxmock.NewRows([]string{"forecast_id"}).AddRow(int64(12)))
	env.mock.ExpectCommit()

	rec := env.do(http.MethodPost, "/api/v1/forecasts?hydrosystemUid=sys-1&forecastName=inflow-2026", "")
	requireStatus(t, rec, http.StatusOK)

	var forecast models.Forecast
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &forecast))
	assert.NotEmpty(t, forecast.UID)
	assert.Equal(t, "inflow-2026", forecast.Name)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestAddScenarioLengthMismatch(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectQuery("FROM forecasts").WithArgs("fc-1").WillReturnRows(forecastLookupRows())

	payload, _ := scenarioBody(t, 3)
	payload.PriceSeries = payload.PriceSeries[:2]
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	rec := env.do(http.MethodPost, "/api/v1/forecasts/fc-1?scenario=1990", string(body))
	requireStatus(t, rec, http.StatusBadRequest)
	assert.Contains(t, rec.Body.String(), "same length")
}

func TestAddScenarioDuplicateName(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectQuery("FROM forecasts").WithArgs("fc-1").WillReturnRows(forecastLookupRows())
	env.mock.ExpectQuery("COUNT").WithArgs(int64(4), "1990").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	_, body := scenarioBody(t, 3)
	rec := env.do(http.MethodPost, "/api/v1/forecasts/fc-1?scenario=1990", body)
	requireStatus(t, rec, http.StatusBadRequest)
	assert.Contains(t, rec.Body.String(), "already exists")
}

func TestAddScenarioDivergentTimeIndex(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectQuery("FROM forecasts").WithArgs("fc-1").WillReturnRows(forecastLookupRows())
	env.mock.ExpectQuery("COUNT").WithArgs(int64(4), "1991").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	env.mock.ExpectQuery("FROM time_data_series").
		WithArgs(int64(4)).
		WillReturnRows(pgxmock.NewRows([]string{"time_data_series_id"}).AddRow(int64(21)))
	// Existing index starts a day later than the submitted one.
	env.mock.ExpectQuery("FROM time_data_values").
		WithArgs(int64(21)).
		WillReturnRows(pgxmock.NewRows([]string{"time_stamp", "value"}).
			AddRow(testTime(2025, 1, 2), 0.0).
			AddRow(testTime(2025, 1, 9), 1.0).
			AddRow(testTime(2025, 1, 16), 2.0))

	_, body := scenarioBody(t, 3)
	rec := env.do(http.MethodPost, "/api/v1/forecasts/fc-1?scenario=1991", body)
	requireStatus(t, rec, http.StatusBadRequest)
	assert.Contains(t, rec.Body.String(), "time index")
}

func TestAddScenario(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectQuery("FROM forecasts").WithArgs("fc-1").WillReturnRows(forecastLookupRows())
	env.mock.ExpectQuery("COUNT").WithArgs(int64(4), "1990").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	env.mock.ExpectQuery("FROM time_data_series").
		WithArgs(int64(4)).
		WillReturnRows(pgxmock.NewRows([]string{"time_data_series_id"}))

	env.mock.ExpectBegin()
	env.mock.ExpectQuery("INSERT INTO time_data_series").
		WillReturnRows(pgxmock.NewRows([]string{"time_data_series_id"}).AddRow(int64(21)))
	env.mock.ExpectQuery("INSERT INTO time_data_series").
		WillReturnRows(pgxmock.NewRows([]string{"time_data_series_id"}).AddRow(int64(22)))
	for i := 0; i < 2; i++ {
		env.mock.ExpectExec("INSERT INTO time_data_values").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		env.mock.ExpectExec("INSERT INTO time_data_values").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	env.mock.ExpectExec("INSERT INTO series_links").
		WithArgs(int64(4), int64(11), int64(21), int64(22)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	env.mock.ExpectCommit()

	_, body := scenarioBody(t, 2)
	rec := env.do(http.MethodPost, "/api/v1/forecasts/fc-1?scenario=1990", body)
	requireStatus(t, rec, http.StatusOK)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestForecastScenarioNames(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectQuery("FROM forecasts").WithArgs("fc-1").WillReturnRows(forecastLookupRows())
	env.mock.ExpectQuery("FROM series_links").
		WithArgs(int64(11)).
		WillReturnRows(pgxmock.NewRows([]string{"description"}).AddRow("1990").AddRow("1991"))

	rec := env.do(http.MethodGet, "/api/v1/forecasts/fc-1", "")
	requireStatus(t, rec, http.StatusOK)

	var names []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &names))
	assert.Equal(t, []string{"1990", "1991"}, names)
}
