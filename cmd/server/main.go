/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the attendance engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Build the logrus logger
  3. Initialize SQLite store
  4. Create API handler with dependencies
  5. Optionally load a demo scenario
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port       HTTP server port (default: 8080, env PORT)
  -db         SQLite database path (default: attendance.db, env DATABASE_PATH)
              Use ":memory:" for in-memory database
  -log-level  debug | info | warn | error (env LOG_LEVEL)
  -seed       Scenario to load at startup (env SEED_SCENARIO)

ENVIRONMENT:
  LOG_FORMAT    text | json
  TIME_ZONE     IANA zone used for "today" and clock times (default UTC)
  CORS_ORIGINS  Comma-separated allowed origins

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with in-memory database and demo data
  ./server -db=":memory:" -seed=attendance-demo

  # Run on different port with JSON logs
  LOG_FORMAT=json ./server -port=3000

SEE ALSO:
  - config/config.go: Configuration loading
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/config"
	"github.com/warp/attendance-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	logger := cfg.Logger()

	// Initialize store
	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize handler
	handler := api.NewHandler(store, api.Options{
		Logger:      logger,
		Clock:       cfg.Clock(),
		CORSOrigins: cfg.CORSOrigins,
	})

	if cfg.SeedScenario != "" {
		if err := handler.LoadScenarioByID(context.Background(), cfg.SeedScenario); err != nil {
			logger.WithError(err).Fatalf("Failed to load scenario %s", cfg.SeedScenario)
		}
	}

	// Create server
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.WithFields(logrus.Fields{
			"addr":      cfg.Addr(),
			"db":        cfg.DatabasePath,
			"time_zone": cfg.Location().String(),
		}).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server stopped")
}
