package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/gastomail/internal/api/handlers"
	"github.com/dvloznov/gastomail/internal/api/middleware"
	"github.com/dvloznov/gastomail/internal/archive"
	"github.com/dvloznov/gastomail/internal/config"
	"github.com/dvloznov/gastomail/internal/gmail"
	infraBQ "github.com/dvloznov/gastomail/internal/infra/bigquery"
	"github.com/dvloznov/gastomail/internal/insights"
	"github.com/dvloznov/gastomail/internal/jobs"
	"github.com/dvloznov/gastomail/internal/jobs/inmemory"
	"github.com/dvloznov/gastomail/internal/logger"
	"github.com/dvloznov/gastomail/internal/parser"
	"github.com/dvloznov/gastomail/internal/pipeline"
)

func main() {
	// Parse command-line flags
	var (
		port       = flag.String("port", "8080", "HTTP server port")
		configPath = flag.String("config", "gastomail.yaml", "Path to config file")
	)
	flag.Parse()

	// Initialize logger
	log := logger.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.BigQuery.ProjectID == "" {
		log.Fatal().Msg("BigQuery project is required (set GASTOMAIL_BQ_PROJECT or bigquery.project_id)")
	}

	ctx := context.Background()
	ctx = logger.WithContext(ctx, log)

	// Initialize repositories
	repo, err := infraBQ.NewRepository(ctx, cfg.BigQuery.ProjectID, cfg.BigQuery.Dataset, cfg.BigQuery.Table)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create movement repository")
	}
	defer repo.Close()

	mailbox, err := gmail.NewClient(ctx, cfg.Gmail.CredentialsFile, cfg.Gmail.TokenFile, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gmail client")
	}

	var archiver pipeline.Archiver
	if cfg.Archive.Bucket != "" {
		arch, err := archive.New(ctx, cfg.Archive.Bucket, cfg.Archive.Prefix)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create archive")
		}
		defer arch.Close()
		archiver = arch
	} else {
		log.Warn().Msg("No archive bucket configured - raw message archival is disabled")
	}

	syncPipeline := pipeline.NewMailboxSyncPipeline(mailbox, parser.New(cfg.ParserOptions()), archiver, repo)

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	// Start worker in background to process sync jobs
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := newSyncJobHandler(syncPipeline, cfg)

	go func() {
		log.Info().Msg("Starting sync job worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Sync job worker stopped with error")
		}
	}()

	// Initialize handlers
	movementsHandler := handlers.NewMovementsHandler(repo, log)
	syncHandler := handlers.NewSyncHandler(jobQueue, cfg.Gmail.Query, cfg.Gmail.MaxResults, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)
	insightsHandler := handlers.NewInsightsHandler(repo, insights.NewNarrator(cfg.Insights.Model), log)

	// Create router
	mux := http.NewServeMux()

	// Movements endpoints
	mux.HandleFunc("/api/movements", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			movementsHandler.ListMovements(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/movements/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		movementID := handlers.ExtractMovementID(r.URL.Path)
		if movementID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Movement ID is required")
			return
		}
		movementsHandler.UpdateStatus(w, r, movementID)
	})

	// Sync endpoint
	mux.HandleFunc("/api/sync", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			syncHandler.EnqueueSync(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Insights endpoint
	mux.HandleFunc("/api/insights", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			insightsHandler.GetInsights(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// Extract job ID from path
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Cancel worker context
	cancelWorker()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}

// newSyncJobHandler builds the job handler that runs the sync pipeline for
// each published job and records the counters on the job record.
func newSyncJobHandler(syncPipeline *pipeline.Pipeline, cfg *config.Config) jobs.JobHandler {
	return func(ctx context.Context, job jobs.Job) error {
		syncJob, ok := job.(*jobs.SyncMailboxJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log := logger.FromContext(ctx)
		log.Info().
			Str("job_id", syncJob.JobID).
			Str("query", syncJob.Query).
			Msg("Processing sync job")

		state := &pipeline.PipelineState{
			Query:      syncJob.Query,
			MaxResults: syncJob.MaxResults,
		}
		if state.Query == "" {
			state.Query = cfg.Gmail.Query
		}
		if state.MaxResults <= 0 {
			state.MaxResults = cfg.Gmail.MaxResults
		}

		if err := syncPipeline.Execute(ctx, state); err != nil {
			log.Error().Err(err).Str("job_id", syncJob.JobID).Msg("Sync pipeline failed")
			return err
		}

		syncJob.MessagesFetched = len(state.Messages)
		syncJob.MovementsStored = len(state.Movements)

		log.Info().
			Str("job_id", syncJob.JobID).
			Int("messages", syncJob.MessagesFetched).
			Int("movements", syncJob.MovementsStored).
			Msg("Sync completed")

		return nil
	}
}
