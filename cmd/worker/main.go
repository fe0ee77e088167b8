package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/gastomail/internal/archive"
	"github.com/dvloznov/gastomail/internal/config"
	"github.com/dvloznov/gastomail/internal/gmail"
	infraBQ "github.com/dvloznov/gastomail/internal/infra/bigquery"
	"github.com/dvloznov/gastomail/internal/jobs"
	"github.com/dvloznov/gastomail/internal/jobs/inmemory"
	"github.com/dvloznov/gastomail/internal/logger"
	"github.com/dvloznov/gastomail/internal/parser"
	"github.com/dvloznov/gastomail/internal/pipeline"
)

// The worker runs the sync pipeline on a fixed interval, publishing one job
// per tick. It is the headless alternative to triggering syncs through the
// API.
func main() {
	var (
		configPath = flag.String("config", "gastomail.yaml", "Path to config file")
		interval   = flag.Duration("interval", time.Hour, "How often to sync the mailbox")
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

	log.Info().Msg("Starting worker service")

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logger.WithContext(ctx, log)

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
	}

	syncPipeline := pipeline.NewMailboxSyncPipeline(mailbox, parser.New(cfg.ParserOptions()), archiver, repo)

	// Initialize job store and queue
	// In production, this would be replaced with Cloud Tasks or Pub/Sub
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	handler := func(ctx context.Context, job jobs.Job) error {
		syncJob, ok := job.(*jobs.SyncMailboxJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", syncJob.JobID).
			Str("query", syncJob.Query).
			Msg("Processing sync job")

		state := &pipeline.PipelineState{
			Query:      syncJob.Query,
			MaxResults: syncJob.MaxResults,
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

	// Start consuming jobs
	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	// Publish one sync job per tick, starting immediately.
	publish := func() {
		job := &jobs.SyncMailboxJob{
			Query:      cfg.Gmail.Query,
			MaxResults: cfg.Gmail.MaxResults,
		}
		if err := jobQueue.PublishSyncMailbox(ctx, job); err != nil {
			log.Error().Err(err).Msg("Failed to publish sync job")
		}
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	go func() {
		publish()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				publish()
			}
		}
	}()

	log.Info().Dur("interval", *interval).Msg("Worker service started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	// Cancel context to stop workers
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Worker service exited")
}
