package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Gmail.Query != DefaultQuery {
		t.Errorf("Gmail.Query = %q, want default query", cfg.Gmail.Query)
	}
	if cfg.Gmail.MaxResults != 100 {
		t.Errorf("Gmail.MaxResults = %d, want 100", cfg.Gmail.MaxResults)
	}
	if cfg.BigQuery.Dataset != "finance" {
		t.Errorf("BigQuery.Dataset = %q, want finance", cfg.BigQuery.Dataset)
	}
	if cfg.BigQuery.Table != "movements" {
		t.Errorf("BigQuery.Table = %q, want movements", cfg.BigQuery.Table)
	}
	if cfg.Insights.Model != "gemini-2.5-flash" {
		t.Errorf("Insights.Model = %q, want gemini-2.5-flash", cfg.Insights.Model)
	}
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed for missing file: %v", err)
	}
	if cfg.Gmail.Query == "" {
		t.Error("Expected defaults to apply for missing file")
	}
}

func TestLoad_FromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
parser:
  default_currency: ARS
  max_plausible_amount: 5000000
  extra_service_providers: [edesur, metrogas-ar]
  extra_category_keywords:
    Transporte: [sube]
gmail:
  max_results: 25
bigquery:
  project_id: my-project
archive:
  bucket: my-bucket
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Parser.DefaultCurrency != "ARS" {
		t.Errorf("DefaultCurrency = %q, want ARS", cfg.Parser.DefaultCurrency)
	}
	if cfg.Gmail.MaxResults != 25 {
		t.Errorf("Gmail.MaxResults = %d, want 25", cfg.Gmail.MaxResults)
	}
	if cfg.BigQuery.ProjectID != "my-project" {
		t.Errorf("BigQuery.ProjectID = %q, want my-project", cfg.BigQuery.ProjectID)
	}
	if cfg.Archive.Bucket != "my-bucket" {
		t.Errorf("Archive.Bucket = %q, want my-bucket", cfg.Archive.Bucket)
	}
	// Untouched sections still get defaults.
	if cfg.Gmail.Query != DefaultQuery {
		t.Errorf("Gmail.Query = %q, want default query", cfg.Gmail.Query)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GASTOMAIL_BQ_PROJECT", "env-project")
	t.Setenv("GASTOMAIL_DEFAULT_CURRENCY", "MXN")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.BigQuery.ProjectID != "env-project" {
		t.Errorf("BigQuery.ProjectID = %q, want env-project", cfg.BigQuery.ProjectID)
	}
	if cfg.Parser.DefaultCurrency != "MXN" {
		t.Errorf("DefaultCurrency = %q, want MXN", cfg.Parser.DefaultCurrency)
	}
}

func TestParserOptions_MergesTables(t *testing.T) {
	cfg := &Config{}
	cfg.Parser.DefaultCurrency = "ARS"
	cfg.Parser.ExtraServiceProviders = []string{"edesur"}
	cfg.Parser.ExtraCategoryKeywords = map[string][]string{
		"Transporte": {"sube"},
	}
	cfg.applyDefaults()

	opts := cfg.ParserOptions()
	if opts.DefaultCurrency != "ARS" {
		t.Errorf("DefaultCurrency = %q, want ARS", opts.DefaultCurrency)
	}

	found := false
	for _, pr := range opts.Tables.ServiceProviders {
		if pr == "edesur" {
			found = true
		}
	}
	if !found {
		t.Error("extra service provider not merged into tables")
	}

	for _, rule := range opts.Tables.Categories {
		if rule.Name != "Transporte" {
			continue
		}
		found = false
		for _, kw := range rule.Keywords {
			if kw == "sube" {
				found = true
			}
		}
		if !found {
			t.Error("extra category keyword not merged into taxonomy")
		}
	}
}
