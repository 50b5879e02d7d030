package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dkhydro/hydrosim/internal/api/handlers"
	"github.com/dkhydro/hydrosim/internal/database"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Services  Services  `json:"services"`
}

type Services struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
	Backend  string `json:"backend"`
}

// BackendPinger is the health probe slice of the compute-service client.
type BackendPinger interface {
	Ping(ctx context.Context) error
}

// Handlers bundles the route handlers wired in main.
type Handlers struct {
	Projects     *handlers.ProjectHandler
	Runs         *handlers.RunHandler
	HydroSystems *handlers.HydroSystemHandler
	Forecasts    *handlers.ForecastHandler
}

func SetupRoutes(router *gin.Engine, db *database.PostgresDB, redis *database.RedisClient, backend BackendPinger, h Handlers) {
	// Health check endpoint
	router.GET("/health", healthCheck(db, redis, backend))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		projects := v1.Group("/projects")
		{
			projects.GET("", h.Projects.List)
			projects.POST("", h.Projects.Create)
			projects.GET("/:projectUid/projectruns", h.Projects.ListRuns)
			projects.GET("/:projectUid/evaluations", h.Projects.ListEvaluations)
			projects.GET("/:projectUid/runsettingstemplate", h.Projects.SettingsTemplate)
			projects.PUT("/:projectUid/run", h.Projects.StartRun)
		}

		runs := v1.Group("/projectruns")
		{
			runs.PUT("/:projectRunUid/evaluate", h.Runs.Evaluate)
			runs.GET("/:projectRunUid/progress", h.Runs.Progress)
			runs.GET("/:projectRunUid/rundetails", h.Runs.Details)
			runs.GET("/:projectRunUid/solution", h.Runs.Solution)
			runs.PUT("/:projectRunUid/terminate", h.Runs.Terminate)
			runs.PUT("/:projectRunUid/signal", h.Runs.Signal)
		}

		v1.GET("/evaluations/:evaluationUid", h.Runs.EvaluationResult)

		systems := v1.Group("/hydrosystems")
		{
			systems.GET("", h.HydroSystems.List)
			systems.GET("/:hydrosystemUid/reservoirs", h.HydroSystems.Reservoirs)
			systems.GET("/:hydrosystemUid/forecasts", h.HydroSystems.Forecasts)
		}

		forecasts := v1.Group("/forecasts")
		{
			forecasts.POST("", h.Forecasts.Create)
			forecasts.POST("/:forecastUid", h.Forecasts.AddScenario)
			forecasts.GET("/:forecastUid", h.Forecasts.Scenarios)
			forecasts.GET("/:forecastUid/scenarios/:scenario", h.Forecasts.Scenario)
		}
	}
}

func healthCheck(db *database.PostgresDB, redis *database.RedisClient, backend BackendPinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := HealthResponse{
			Status:    "ok",
			Timestamp: time.Now(),
			Version:   "1.0.0",
			Services: Services{
				Database: "ok",
				Redis:    "ok",
				Backend:  "ok",
			},
		}

		// Check database health
		if err := db.HealthCheck(c.Request.Context()); err != nil {
			response.Services.Database = "error"
			response.Status = "degraded"
		}

		// Check Redis health
		if err := redis.HealthCheck(c.Request.Context()); err != nil {
			response.Services.Redis = "error"
			response.Status = "degraded"
		}

		// Check compute backend reachability
		if err := backend.Ping(c.Request.Context()); err != nil {
			response.Services.Backend = "error"
			response.Status = "degraded"
		}

		statusCode := http.StatusOK
		if response.Status == "degraded" {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, response)
	}
}
