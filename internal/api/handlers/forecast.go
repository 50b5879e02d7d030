package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dkhydro/hydrosim/internal/database"
	"github.com/dkhydro/hydrosim/internal/models"
	"github.com/dkhydro/hydrosim/internal/query"
)

type ForecastHandler struct {
	systems   *database.HydroSystemRepository
	forecasts *database.ForecastRepository
	queries   *query.Service
	logger    *slog.Logger
}

func NewForecastHandler(
	systems *database.HydroSystemRepository,
	forecasts *database.ForecastRepository,
	queries *query.Service,
	logger *slog.Logger,
) *ForecastHandler {
	return &ForecastHandler{systems: systems, forecasts: forecasts, queries: queries, logger: logger}
}

// Create registers an empty forecast and its upload record for a hydro
// system. Scenario data arrives through subsequent scenario uploads.
func (h *ForecastHandler) Create(c *gin.Context) {
	systemUID, ok := requireQuery(c, "hydrosystemUid")
	if !ok {
		return
	}
	name, ok := requireQuery(c, "forecastName")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	system, err := h.systems.GetByUID(ctx, systemUID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	exists, err := h.forecasts.NameExists(ctx, system.ID, name)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if exists {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: fmt.Sprintf("a forecast with name '%s' already exists for this hydrosystem", name),
		})
		return
	}

	sourceFile := c.Query("sourceFile")
	if sourceFile == "" {
		sourceFile = name
	}

	forecast, err := h.forecasts.Create(ctx, uuid.NewString(), name, sourceFile, system.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("forecast created", "forecast_uid", forecast.UID, "hydrosystem_uid", systemUID)
	c.JSON(http.StatusOK, forecast)
}

// AddScenario uploads one named scenario: a shared time index with inflow
// and price vectors, inserted atomically. Every scenario of a forecast must
// carry the same time index.
func (h *ForecastHandler) AddScenario(c *gin.Context) {
	scenario, ok := requireQuery(c, "scenario")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	forecast, err := h.forecasts.GetByUID(ctx, c.Param("forecastUid"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var payload models.ForecastScenario
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid scenario payload: " + err.Error()})
		return
	}
	if len(payload.InflowSeries) != len(payload.TimeIndex) || len(payload.PriceSeries) != len(payload.TimeIndex) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "timeIndex, inflowSeries and priceSeries must have the same length",
		})
		return
	}

	exists, err := h.forecasts.HasScenario(ctx, forecast.UploadID, scenario)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if exists {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: fmt.Sprintf("scenario '%s' already exists for this forecast", scenario),
		})
		return
	}

	existingIndex, err := h.forecasts.ScenarioTimeIndex(ctx, forecast.UploadID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if existingIndex != nil && !sameTimeIndex(existingIndex, payload.TimeIndex) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "time index does not match the previously uploaded scenarios of this forecast",
		})
		return
	}

	if err := h.forecasts.AddScenario(ctx, forecast, scenario, &payload); err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.queries.InvalidateScenarios(ctx, forecast.UID)

	h.logger.Info("scenario uploaded",
		"forecast_uid", forecast.UID, "scenario", scenario, "points", len(payload.TimeIndex))
	c.Status(http.StatusOK)
}

// Scenarios returns the scenario names of a forecast.
func (h *ForecastHandler) Scenarios(c *gin.Context) {
	names, err := h.queries.ScenarioNames(c.Request.Context(), c.Param("forecastUid"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, names)
}

// Scenario returns one scenario's time index and series data.
func (h *ForecastHandler) Scenario(c *gin.Context) {
	payload, err := h.queries.Scenario(c.Request.Context(), c.Param("forecastUid"), c.Param("scenario"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, payload)
}

func sameTimeIndex(a, b []time.Time) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
