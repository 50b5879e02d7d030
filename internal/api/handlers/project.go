package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dkhydro/hydrosim/internal/database"
	"github.com/dkhydro/hydrosim/internal/models"
	"github.com/dkhydro/hydrosim/internal/orchestrator"
)

type ProjectHandler struct {
	projects     *database.ProjectRepository
	systems      *database.HydroSystemRepository
	runs         *database.RunRepository
	orchestrator *orchestrator.Service
	logger       *slog.Logger
}

func NewProjectHandler(
	projects *database.ProjectRepository,
	systems *database.HydroSystemRepository,
	runs *database.RunRepository,
	orch *orchestrator.Service,
	logger *slog.Logger,
) *ProjectHandler {
	return &ProjectHandler{
		projects:     projects,
		systems:      systems,
		runs:         runs,
		orchestrator: orch,
		logger:       logger,
	}
}

// List returns every project together with its hydro system.
func (h *ProjectHandler) List(c *gin.Context) {
	pairs, err := h.projects.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	views := make([]ProjectView, 0, len(pairs))
	for _, pair := range pairs {
		views = append(views, ProjectView{
			UID:  pair.Project.UID,
			Name: pair.Project.Name,
			HydroSystem: HydroSystemView{
				UID:         pair.System.UID,
				Name:        pair.System.Name,
				Description: pair.System.Description,
			},
		})
	}

	c.JSON(http.StatusOK, views)
}

// Create adds a project for an existing hydro system. Project names are
// unique across all systems.
func (h *ProjectHandler) Create(c *gin.Context) {
	name, ok := requireQuery(c, "name")
	if !ok {
		return
	}
	systemUID, ok := requireQuery(c, "hydrosystemUid")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	system, err := h.systems.GetByUID(ctx, systemUID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	exists, err := h.projects.NameExists(ctx, name)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if exists {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "a project withName '" + name + "' already exists"})
		return
	}

	project, err := h.projects.Create(ctx, uuid.NewString(), name, system.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("project created", "project_uid", project.UID, "name", name)
	c.JSON(http.StatusOK, ProjectView{
		UID:  project.UID,
		Name: project.Name,
		HydroSystem: HydroSystemView{
			UID:         system.UID,
			Name:        system.Name,
			Description: system.Description,
		},
	})
}

// ListRuns returns the project's training runs.
func (h *ProjectHandler) ListRuns(c *gin.Context) {
	h.listRuns(c, false)
}

// ListEvaluations returns the project's evaluation runs.
func (h *ProjectHandler) ListEvaluations(c *gin.Context) {
	h.listRuns(c, true)
}

func (h *ProjectHandler) listRuns(c *gin.Context, evaluations bool) {
	ctx := c.Request.Context()
	project, err := h.projects.GetByUID(ctx, c.Param("projectUid"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	runs, err := h.runs.ListForProject(ctx, project.ID, evaluations)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	views, err := newRunViews(runs)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, views)
}

// SettingsTemplate returns a run-settings starting point for the project,
// with start volumes seeded at each reservoir's minimum.
func (h *ProjectHandler) SettingsTemplate(c *gin.Context) {
	ctx := c.Request.Context()
	project, err := h.projects.GetByUID(ctx, c.Param("projectUid"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	reservoirs, err := h.systems.Reservoirs(ctx, project.HydroSystemID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.TemplateRunSettings(reservoirs))
}

// StartRun validates the submitted settings and creates a training run.
func (h *ProjectHandler) StartRun(c *gin.Context) {
	forecastUID, ok := requireQuery(c, "forecastUid")
	if !ok {
		return
	}

	var settings models.RunSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid run settings: " + err.Error()})
		return
	}

	result, err := h.orchestrator.CreateTrainingRun(c.Request.Context(), c.Param("projectUid"), forecastUID, &settings)
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
