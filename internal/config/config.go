// Package config loads the application configuration from a YAML file with
// environment-variable overrides for deployment-specific values.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dvloznov/gastomail/internal/parser"
)

// Config is the full application configuration. Zero values fall back to
// the defaults applied in Load.
type Config struct {
	Parser   ParserConfig   `yaml:"parser"`
	Gmail    GmailConfig    `yaml:"gmail"`
	BigQuery BigQueryConfig `yaml:"bigquery"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Insights InsightsConfig `yaml:"insights"`
}

// ParserConfig tunes the extraction engine for the deployment locale. The
// plausibility bounds and year list mirror parser.Options; the keyword
// extensions are merged into the default lookup tables.
type ParserConfig struct {
	DefaultCurrency    string    `yaml:"default_currency"`
	MinPlausibleAmount float64   `yaml:"min_plausible_amount"`
	MaxPlausibleAmount float64   `yaml:"max_plausible_amount"`
	YearLikeAmounts    []float64 `yaml:"year_like_amounts"`

	ExtraServiceProviders []string            `yaml:"extra_service_providers"`
	ExtraCategoryKeywords map[string][]string `yaml:"extra_category_keywords"`
}

// GmailConfig configures the mailbox collaborator.
type GmailConfig struct {
	Query           string `yaml:"query"`
	MaxResults      int    `yaml:"max_results"`
	CredentialsFile string `yaml:"credentials_file"`
	TokenFile       string `yaml:"token_file"`
}

// BigQueryConfig locates the movements table.
type BigQueryConfig struct {
	ProjectID string `yaml:"project_id"`
	Dataset   string `yaml:"dataset"`
	Table     string `yaml:"table"`
}

// ArchiveConfig configures raw-message archival to GCS. An empty bucket
// disables archival.
type ArchiveConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

// InsightsConfig configures the Gemini-backed insights generator.
type InsightsConfig struct {
	Model string `yaml:"model"`
}

// DefaultQuery is the deep-search Gmail query for financial mail: bills,
// utilities, invoices and LatAm payment-platform notifications.
const DefaultQuery = `subject:(pago OR comprobante OR recibo OR receipt OR invoice OR bill OR factura OR boleta OR vencimiento OR cargo OR "estado de cuenta" OR "payment confirmed" OR "transferencia recibida") OR "total a pagar" OR "fecha de vencimiento" OR "monto pagado" OR "detalle de su cuenta"`

// Load reads the YAML file at path (skipped when path is empty or the file
// does not exist), applies environment overrides, then defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("GASTOMAIL_BQ_PROJECT"); v != "" {
		c.BigQuery.ProjectID = v
	}
	if v := os.Getenv("GASTOMAIL_BQ_DATASET"); v != "" {
		c.BigQuery.Dataset = v
	}
	if v := os.Getenv("GASTOMAIL_ARCHIVE_BUCKET"); v != "" {
		c.Archive.Bucket = v
	}
	if v := os.Getenv("GASTOMAIL_DEFAULT_CURRENCY"); v != "" {
		c.Parser.DefaultCurrency = v
	}
}

func (c *Config) applyDefaults() {
	if c.Gmail.Query == "" {
		c.Gmail.Query = DefaultQuery
	}
	if c.Gmail.MaxResults == 0 {
		c.Gmail.MaxResults = 100
	}
	if c.Gmail.CredentialsFile == "" {
		c.Gmail.CredentialsFile = "credentials.json"
	}
	if c.Gmail.TokenFile == "" {
		c.Gmail.TokenFile = "token.json"
	}
	if c.BigQuery.Dataset == "" {
		c.BigQuery.Dataset = "finance"
	}
	if c.BigQuery.Table == "" {
		c.BigQuery.Table = "movements"
	}
	if c.Archive.Prefix == "" {
		c.Archive.Prefix = "raw"
	}
	if c.Insights.Model == "" {
		c.Insights.Model = "gemini-2.5-flash"
	}
}

// ParserOptions converts the parser section into parser.Options, merging
// the keyword extensions into the default tables.
func (c *Config) ParserOptions() parser.Options {
	tables := parser.DefaultTables()
	tables.ServiceProviders = append(tables.ServiceProviders, c.Parser.ExtraServiceProviders...)
	for i, rule := range tables.Categories {
		if extra, ok := c.Parser.ExtraCategoryKeywords[rule.Name]; ok {
			tables.Categories[i].Keywords = append(rule.Keywords, extra...)
		}
	}

	return parser.Options{
		DefaultCurrency:    c.Parser.DefaultCurrency,
		MinPlausibleAmount: c.Parser.MinPlausibleAmount,
		MaxPlausibleAmount: c.Parser.MaxPlausibleAmount,
		YearLikeAmounts:    c.Parser.YearLikeAmounts,
		Tables:             tables,
	}
}
