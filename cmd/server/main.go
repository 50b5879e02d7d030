package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/dkhydro/hydrosim/internal/api"
	"github.com/dkhydro/hydrosim/internal/api/handlers"
	"github.com/dkhydro/hydrosim/internal/backend"
	"github.com/dkhydro/hydrosim/internal/config"
	"github.com/dkhydro/hydrosim/internal/database"
	"github.com/dkhydro/hydrosim/internal/logging"
	"github.com/dkhydro/hydrosim/internal/orchestrator"
	"github.com/dkhydro/hydrosim/internal/query"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.Environment)
	logging.ConfigureLogrus(cfg.LogLevel)

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize Redis
	redis, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	// Compute backend client
	compute := backend.NewClient(cfg.Backend)
	logger.Info("compute backend configured", "url", compute.BaseURL())

	// Repositories
	projects := database.NewProjectRepository(db.Pool)
	systems := database.NewHydroSystemRepository(db.Pool)
	forecasts := database.NewForecastRepository(db.Pool)
	runs := database.NewRunRepository(db.Pool)
	agents := database.NewAgentRepository(db.Pool)

	// Services
	orch := orchestrator.NewService(projects, systems, forecasts, runs, agents, compute, logger)
	queries := query.NewService(db.Pool, runs, agents, forecasts, redis, cfg.CacheTTL(), logger)

	// Setup Gin router
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	api.SetupRoutes(router, db, redis, compute, api.Handlers{
		Projects:     handlers.NewProjectHandler(projects, systems, runs, orch, logger),
		Runs:         handlers.NewRunHandler(runs, orch, queries, logger),
		HydroSystems: handlers.NewHydroSystemHandler(systems, forecasts, logger),
		Forecasts:    handlers.NewForecastHandler(systems, forecasts, queries, logger),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("server exited")
}
