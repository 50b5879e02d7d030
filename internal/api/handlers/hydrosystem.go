package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dkhydro/hydrosim/internal/database"
)

type HydroSystemHandler struct {
	systems   *database.HydroSystemRepository
	forecasts *database.ForecastRepository
	logger    *slog.Logger
}

func NewHydroSystemHandler(
	systems *database.HydroSystemRepository,
	forecasts *database.ForecastRepository,
	logger *slog.Logger,
) *HydroSystemHandler {
	return &HydroSystemHandler{systems: systems, forecasts: forecasts, logger: logger}
}

// List returns every registered hydro system.
func (h *HydroSystemHandler) List(c *gin.Context) {
	systems, err := h.systems.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, systems)
}

// Reservoirs returns the reservoirs of one hydro system.
func (h *HydroSystemHandler) Reservoirs(c *gin.Context) {
	ctx := c.Request.Context()
	system, err := h.systems.GetByUID(ctx, c.Param("hydrosystemUid"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	reservoirs, err := h.systems.Reservoirs(ctx, system.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, reservoirs)
}

// Forecasts returns the forecasts uploaded for one hydro system.
func (h *HydroSystemHandler) Forecasts(c *gin.Context) {
	ctx := c.Request.Context()
	system, err := h.systems.GetByUID(ctx, c.Param("hydrosystemUid"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	forecasts, err := h.forecasts.ListForSystem(ctx, system.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, forecasts)
}
