/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the report engine server. Handles configuration,
  dependency wiring, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and environment config
  2. Initialize the SQLite store (migrates on open)
  3. Install built-in system reports
  4. Optionally seed demo business data
  5. Configure the HTTP router
  6. Start the server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for an in-memory database
  -seed    Seed demo business data on startup

ENVIRONMENT:
  PORT, DB_PATH, JWT_SECRET, SKIP_AUTH, DEFAULT_PAGE_SIZE, MAX_PAGE_SIZE,
  STRICT_VISIBILITY, CORS_ORIGIN. A .env file is honored when present.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the database
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/text"

	"github.com/warp/report-engine/api"
	"github.com/warp/report-engine/config"
	"github.com/warp/report-engine/reporting"
	"github.com/warp/report-engine/store/sqlite"
)

func main() {
	log.SetHandler(text.New(os.Stderr))

	cfg := config.Load()

	port := flag.String("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	seed := flag.Bool("seed", false, "seed demo business data")
	flag.Parse()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	registry := reporting.NewRegistry()

	ctx := context.Background()
	if err := reporting.InstallSystemReports(ctx, store, registry); err != nil {
		log.WithError(err).Fatal("failed to install system reports")
	}
	if *seed {
		if err := store.SeedDemoData(ctx); err != nil {
			log.WithError(err).Fatal("failed to seed demo data")
		}
		log.Info("demo data seeded")
	}

	compiler := reporting.NewCompiler(registry, cfg.DefaultPageSize, cfg.MaxPageSize)
	runner := reporting.NewRunner(store.DB(), registry)

	handler := api.NewHandler(store, registry, compiler, runner)
	handler.StrictVisibility = cfg.StrictVisibility

	router := api.NewRouter(handler, api.RouterOptions{
		JWTSecret:      cfg.JWTSecret,
		SkipAuth:       cfg.SkipAuth,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", *port).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server stopped")
}
