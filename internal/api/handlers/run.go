package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dkhydro/hydrosim/internal/database"
	"github.com/dkhydro/hydrosim/internal/models"
	"github.com/dkhydro/hydrosim/internal/orchestrator"
	"github.com/dkhydro/hydrosim/internal/query"
)

type RunHandler struct {
	runs         *database.RunRepository
	orchestrator *orchestrator.Service
	queries      *query.Service
	logger       *slog.Logger
}

func NewRunHandler(
	runs *database.RunRepository,
	orch *orchestrator.Service,
	queries *query.Service,
	logger *slog.Logger,
) *RunHandler {
	return &RunHandler{
		runs:         runs,
		orchestrator: orch,
		queries:      queries,
		logger:       logger,
	}
}

// Evaluate creates an evaluation run for the base run's best agent.
func (h *RunHandler) Evaluate(c *gin.Context) {
	forecastUID, ok := requireQuery(c, "forecastUid")
	if !ok {
		return
	}

	var settings models.RunSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid run settings: " + err.Error()})
		return
	}

	result, err := h.orchestrator.CreateEvaluationRun(c.Request.Context(), c.Param("projectRunUid"), forecastUID, &settings)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	view, err := newRunView(*result)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// Progress returns the best-return-per-step series for a run.
func (h *RunHandler) Progress(c *gin.Context) {
	details, err := h.queries.Progress(c.Request.Context(), c.Param("projectRunUid"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// Details returns every logged scalar series for a run.
func (h *RunHandler) Details(c *gin.Context) {
	details, err := h.queries.Details(c.Request.Context(), c.Param("projectRunUid"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// Solution returns the best agent's report series at its best step.
func (h *RunHandler) Solution(c *gin.Context) {
	data, err := h.queries.BestSolution(c.Request.Context(), c.Param("projectRunUid"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

// EvaluationResult returns the report series of an evaluation run.
func (h *RunHandler) EvaluationResult(c *gin.Context) {
	data, err := h.queries.EvaluationResult(c.Request.Context(), c.Param("evaluationUid"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

// Terminate appends a terminate control row for the backend to consume.
func (h *RunHandler) Terminate(c *gin.Context) {
	h.appendSignal(c, models.SignalTerminate)
}

// Signal appends an arbitrary control signal named by the query argument.
func (h *RunHandler) Signal(c *gin.Context) {
	name, ok := requireQuery(c, "signal")
	if !ok {
		return
	}

	signal, ok := models.ParseRunSignal(name)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown signal '" + name + "'"})
		return
	}

	h.appendSignal(c, signal)
}

func (h *RunHandler) appendSignal(c *gin.Context, signal models.RunSignal) {
	ctx := c.Request.Context()
	run, err := h.runs.GetByUID(ctx, c.Param("projectRunUid"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.runs.AppendControl(ctx, run.ID, signal); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("run control appended", "run_uid", run.UID, "signal", int(signal))
	c.Status(http.StatusOK)
}
