package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/gastomail/internal/archive"
	"github.com/dvloznov/gastomail/internal/config"
	"github.com/dvloznov/gastomail/internal/gmail"
	infraBQ "github.com/dvloznov/gastomail/internal/infra/bigquery"
	"github.com/dvloznov/gastomail/internal/insights"
	"github.com/dvloznov/gastomail/internal/logger"
	"github.com/dvloznov/gastomail/internal/parser"
	"github.com/dvloznov/gastomail/internal/pipeline"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "parse":
		runParse(log)
	case "sync":
		runSync(log)
	case "insights":
		runInsights(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Gastomail CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  parse     Extract a movement from a single email (flags or stdin)")
	fmt.Println("  sync      Fetch matching emails and store the extracted movements")
	fmt.Println("  insights  Summarize stored movements and print recommendations")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func loadConfig(path string, log zerolog.Logger) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	return cfg
}

// runParse extracts a movement from one email and prints it as JSON.
// The email comes either from flags or, with -stdin, from a JSON object on
// standard input.
func runParse(log zerolog.Logger) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	configPath := fs.String("config", "gastomail.yaml", "Path to config file")
	id := fs.String("id", "", "Message ID")
	subject := fs.String("subject", "", "Email subject")
	body := fs.String("body", "", "Email body")
	sender := fs.String("sender", "", "Email sender")
	date := fs.String("date", "", "Email date (YYYY-MM-DD or RFC 3339)")
	fromStdin := fs.Bool("stdin", false, "Read a JSON email object from stdin")
	fs.Parse(os.Args[2:])

	email := struct {
		ID      string `json:"id"`
		Subject string `json:"subject"`
		Body    string `json:"body"`
		Sender  string `json:"sender"`
		Date    string `json:"date"`
	}{*id, *subject, *body, *sender, *date}

	if *fromStdin {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read stdin")
		}
		if err := json.Unmarshal(data, &email); err != nil {
			log.Fatal().Err(err).Msg("Failed to parse email JSON")
		}
	}

	cfg := loadConfig(*configPath, log)
	p := parser.New(cfg.ParserOptions())

	movement := p.Parse(email.ID, email.Subject, email.Body, email.Sender, email.Date)

	out, err := json.MarshalIndent(movement, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode movement")
	}
	fmt.Println(string(out))
}

// runSync fetches matching emails and stores the extracted movements,
// running the whole pipeline synchronously.
func runSync(log zerolog.Logger) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	configPath := fs.String("config", "gastomail.yaml", "Path to config file")
	query := fs.String("query", "", "Mailbox search query (defaults to the configured query)")
	maxResults := fs.Int("max-results", 0, "Maximum messages to fetch (defaults to the configured limit)")
	fs.Parse(os.Args[2:])

	cfg := loadConfig(*configPath, log)
	if cfg.BigQuery.ProjectID == "" {
		log.Fatal().Msg("BigQuery project is required (set GASTOMAIL_BQ_PROJECT or bigquery.project_id)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
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

	state := &pipeline.PipelineState{
		Query:      cfg.Gmail.Query,
		MaxResults: cfg.Gmail.MaxResults,
	}
	if *query != "" {
		state.Query = *query
	}
	if *maxResults > 0 {
		state.MaxResults = *maxResults
	}

	log.Info().Str("query", state.Query).Msg("Starting mailbox sync")

	p := pipeline.NewMailboxSyncPipeline(mailbox, parser.New(cfg.ParserOptions()), archiver, repo)
	if err := p.Execute(ctx, state); err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Printf("Synced %d messages, stored %d movements.\n", len(state.Messages), len(state.Movements))
}

// runInsights prints the aggregated spending summary for stored movements.
func runInsights(log zerolog.Logger) {
	fs := flag.NewFlagSet("insights", flag.ExitOnError)
	configPath := fs.String("config", "gastomail.yaml", "Path to config file")
	narrative := fs.Bool("narrative", false, "Also generate a model-written commentary")
	fs.Parse(os.Args[2:])

	cfg := loadConfig(*configPath, log)
	if cfg.BigQuery.ProjectID == "" {
		log.Fatal().Msg("BigQuery project is required (set GASTOMAIL_BQ_PROJECT or bigquery.project_id)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := infraBQ.NewRepository(ctx, cfg.BigQuery.ProjectID, cfg.BigQuery.Dataset, cfg.BigQuery.Table)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create movement repository")
	}
	defer repo.Close()

	movements, err := repo.ListMovements(ctx, infraBQ.MovementFilter{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list movements")
	}

	summary := insights.Aggregate(movements, insights.Options{})

	fmt.Printf("\n=== Spending Summary ===\n")
	fmt.Printf("Total spent: %.0f\n", summary.TotalSpent)
	for _, ct := range summary.CategoryTotals {
		fmt.Printf("  %-15s %.0f\n", ct.Category, ct.Amount)
	}

	fmt.Printf("\n=== Insights ===\n")
	for i, in := range summary.Insights {
		fmt.Printf("%d. %s\n   %s\n", i+1, in.Title, in.Description)
	}

	if *narrative {
		text, err := insights.NewNarrator(cfg.Insights.Model).Narrate(ctx, summary)
		if err != nil {
			log.Error().Err(err).Msg("Narrative generation failed")
		} else {
			fmt.Printf("\n=== Commentary ===\n%s\n", text)
		}
	}
	fmt.Println()
}
