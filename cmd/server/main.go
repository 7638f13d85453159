/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the delivery engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load YAML configuration, apply flag overrides
  3. Initialize structured logging
  4. Open SQLite ledger gateway
  5. Create artifact store and manager
  6. Create API handler with dependencies
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config     Path to YAML config file (optional)
  -port       HTTP server port (overrides config)
  -db         SQLite database path (overrides config)
              Use ":memory:" for in-memory database
  -artifacts  Artifact directory (overrides config)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with config file
  ./server -config=config.yaml

  # Run with in-memory database
  ./server -db=":memory:"

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration format
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/retailops/delivery-engine/api"
	"github.com/retailops/delivery-engine/artifact"
	"github.com/retailops/delivery-engine/config"
	"github.com/retailops/delivery-engine/directory"
	"github.com/retailops/delivery-engine/invoice"
	"github.com/retailops/delivery-engine/pkg/logger"
	"github.com/retailops/delivery-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "path to YAML config file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	artifactsDir := flag.String("artifacts", "", "artifact directory (overrides config)")
	flag.Parse()

	// Configuration
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg = config.Default()
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *artifactsDir != "" {
		cfg.Artifacts.Dir = *artifactsDir
	}

	logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	// Ledger gateway
	gateway, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		slog.Error("failed to open database", "path", cfg.Database.Path, "error", err)
		os.Exit(1)
	}
	defer gateway.Close()

	// Directory
	users := make([]directory.User, len(cfg.Users))
	for i, u := range cfg.Users {
		users[i] = directory.User{
			ID:       u.ID,
			Name:     u.Name,
			Email:    u.Email,
			Password: u.Password,
			Store:    u.Store,
			Role:     directory.Role(u.Role),
		}
	}
	dir := directory.New(users, cfg.StoreCodes())

	// Artifacts
	artifactStore, err := artifact.NewDirStore(cfg.Artifacts.Dir)
	if err != nil {
		slog.Error("failed to prepare artifact directory", "dir", cfg.Artifacts.Dir, "error", err)
		os.Exit(1)
	}
	artifacts := artifact.NewManager(artifactStore, gateway, dir.StoreCode)

	// Domain services
	recorder := invoice.NewRecorder(gateway)
	stateMachine := invoice.NewStateMachine(gateway, artifacts)

	// HTTP
	handler := api.NewHandler(gateway, recorder, stateMachine, artifacts, dir, api.AuthConfig{
		Secret:   cfg.Auth.JWTSecret,
		TokenTTL: time.Duration(cfg.Auth.TokenExpireHours) * time.Hour,
	})
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second, // ZIP exports can be slow
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting",
			"port", cfg.Server.Port,
			"db", cfg.Database.Path,
			"artifacts", cfg.Artifacts.Dir,
			"users", dir.Len())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
