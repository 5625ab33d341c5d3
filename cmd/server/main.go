/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the attendance export server (leave report and
  project assignment list).
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Build the logger
  3. Initialize SQLite store
  4. Assemble the data source chain
  5. Create API handler and router
  6. Start the snapshot scheduler (API mode only)
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port, overrides APP_ADDR
  -db      SQLite database path, overrides DB_PATH
           Use ":memory:" for in-memory database
  -env     .env file to load (default: ./.env when present)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Stop the scheduler
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Fixtures only
  ./server -db="./data/attendance.db"

  # Records service
  USE_API_CALLS=true THIRD_PARTY_API_URL=http://records.local:50001/items/ \
  THIRD_PARTY_API_KEY=... ./server -port=3000

SEE ALSO:
  - config/config.go: Environment keys
  - api/server.go: Router configuration
  - source/source.go: Data source chain
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-export/api"
	"github.com/warp/attendance-export/config"
	"github.com/warp/attendance-export/logging"
	"github.com/warp/attendance-export/source"
	"github.com/warp/attendance-export/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 0, "HTTP server port (overrides APP_ADDR)")
	dbPath := flag.String("db", "", "SQLite database path (overrides DB_PATH)")
	envFile := flag.String("env", "", "env file to load")
	flag.Parse()

	if err := run(*port, *dbPath, *envFile); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run(port int, dbPath, envFile string) error {
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return err
	}
	if port != 0 {
		cfg.Addr = fmt.Sprintf(":%d", port)
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	log, logCloser, err := logging.New(logging.Options{
		Format:     cfg.LogFormat,
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	if err != nil {
		return err
	}
	defer logCloser.Close()

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	// Data sources
	src := source.New(source.Options{
		UseAPI:            cfg.UseAPI,
		BaseURL:           cfg.APIURL,
		APIKey:            cfg.APIKey,
		EmployeeSiteID:    cfg.EmployeeSiteID,
		LeaveSiteID:       cfg.LeaveSiteID,
		ProjectSiteID:     cfg.ProjectSiteID,
		WorkingTimeSiteID: cfg.WorkingTimeSiteID,
		Timeout:           cfg.APITimeout,
		FixtureDir:        cfg.FixtureDir,
	}, store, log)

	// Handler and router
	handler := api.NewHandler(store, src, log)
	handler.DefaultMonth = cfg.DefaultMonth
	handler.DefaultYear = cfg.DefaultYear
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins:   cfg.CORSOrigins,
		ExportsPerMinute: cfg.ExportRateLimit,
		RequestTimeout:   2 * cfg.APITimeout,
	})

	scheduler := api.NewSnapshotScheduler(src, store, log)
	scheduler.Keep = cfg.SnapshotKeep
	scheduler.FetchTimeout = 2 * cfg.APITimeout
	scheduler.Enabled = cfg.UseAPI
	scheduler.Start()
	defer scheduler.Stop()

	// Create server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2*cfg.APITimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	errc := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":     cfg.Addr,
			"use_api":  cfg.UseAPI,
			"fixtures": cfg.FixtureDir,
		}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errc:
		return fmt.Errorf("server failed: %w", err)
	}

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
