package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/gastomail/internal/config"
	"github.com/dvloznov/gastomail/internal/logger"
)

// migration is a single versioned SQL file, with project and dataset
// placeholders already substituted.
type migration struct {
	Version  int
	Name     string
	SQL      string
	Checksum string
}

var migrationFilePattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// The migrate command applies the versioned DDL under migrations/bigquery to
// the configured dataset. Applied versions are recorded in a
// schema_migrations ledger table so reruns are idempotent.
func main() {
	var (
		configPath = flag.String("config", "gastomail.yaml", "Path to config file")
		dir        = flag.String("dir", "migrations/bigquery", "Path to migrations directory")
		appliedBy  = flag.String("applied-by", "migrate-cli", "Recorded as the applier of each migration")
	)
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.BigQuery.ProjectID == "" {
		log.Fatal().Msg("BigQuery project is required (set GASTOMAIL_BQ_PROJECT or bigquery.project_id)")
	}

	ctx := context.Background()

	client, err := bigquery.NewClient(ctx, cfg.BigQuery.ProjectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer client.Close()

	log.Info().
		Str("project", cfg.BigQuery.ProjectID).
		Str("dataset", cfg.BigQuery.Dataset).
		Msg("Connected to BigQuery")

	if err := ensureLedgerTable(ctx, client, cfg.BigQuery.ProjectID, cfg.BigQuery.Dataset); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure schema_migrations table")
	}

	migrations, err := loadMigrations(*dir, cfg.BigQuery.ProjectID, cfg.BigQuery.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read migrations")
	}

	applied, err := appliedVersions(ctx, client, cfg.BigQuery.ProjectID, cfg.BigQuery.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list applied migrations")
	}

	count := 0
	for _, m := range migrations {
		if applied[m.Version] {
			log.Info().Int("version", m.Version).Str("name", m.Name).Msg("Already applied, skipping")
			continue
		}

		log.Info().Int("version", m.Version).Str("name", m.Name).Msg("Applying migration")
		if err := runStatement(ctx, client, m.SQL, nil); err != nil {
			log.Fatal().Err(err).Int("version", m.Version).Msg("Migration failed")
		}
		if err := recordMigration(ctx, client, cfg.BigQuery.ProjectID, cfg.BigQuery.Dataset, m, *appliedBy); err != nil {
			log.Fatal().Err(err).Int("version", m.Version).Msg("Failed to record migration")
		}
		count++
	}

	if count == 0 {
		log.Info().Msg("No new migrations to apply")
	} else {
		log.Info().Int("applied", count).Msg("Migrations applied")
	}
}

// loadMigrations reads every versioned .sql file in dir, substitutes the
// project and dataset placeholders, and returns the set sorted by version.
// The checksum is taken over the raw file content so it stays stable across
// projects.
func loadMigrations(dir, projectID, dataset string) ([]migration, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []migration
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		matches := migrationFilePattern.FindStringSubmatch(file.Name())
		if matches == nil {
			continue
		}
		version, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file.Name(), err)
		}

		sql := string(content)
		sql = strings.ReplaceAll(sql, "{{PROJECT_ID}}", projectID)
		sql = strings.ReplaceAll(sql, "{{DATASET_ID}}", dataset)

		migrations = append(migrations, migration{
			Version:  version,
			Name:     matches[2],
			SQL:      sql,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

func ensureLedgerTable(ctx context.Context, client *bigquery.Client, projectID, dataset string) error {
	sql := fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s.%s.schema_migrations` ("+
		"version INT64 NOT NULL, name STRING NOT NULL, applied_at TIMESTAMP NOT NULL, "+
		"checksum STRING, applied_by STRING)", projectID, dataset)
	return runStatement(ctx, client, sql, nil)
}

func appliedVersions(ctx context.Context, client *bigquery.Client, projectID, dataset string) (map[int]bool, error) {
	sql := fmt.Sprintf("SELECT version FROM `%s.%s.schema_migrations`", projectID, dataset)

	it, err := client.Query(sql).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	applied := make(map[int]bool)
	for {
		var row struct {
			Version int64 `bigquery:"version"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating applied migrations: %w", err)
		}
		applied[int(row.Version)] = true
	}
	return applied, nil
}

func recordMigration(ctx context.Context, client *bigquery.Client, projectID, dataset string, m migration, appliedBy string) error {
	sql := fmt.Sprintf("INSERT INTO `%s.%s.schema_migrations` "+
		"(version, name, applied_at, checksum, applied_by) "+
		"VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)", projectID, dataset)

	params := []bigquery.QueryParameter{
		{Name: "version", Value: m.Version},
		{Name: "name", Value: m.Name},
		{Name: "checksum", Value: m.Checksum},
		{Name: "applied_by", Value: appliedBy},
	}
	return runStatement(ctx, client, sql, params)
}

// runStatement executes one DDL/DML statement and waits for the job result.
func runStatement(ctx context.Context, client *bigquery.Client, sql string, params []bigquery.QueryParameter) error {
	query := client.Query(sql)
	query.Parameters = params

	job, err := query.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
