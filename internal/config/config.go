// Package config loads process configuration from BUDGET_* environment
// variables, with an optional .env file for local runs.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const envPrefix = "budget"

// Backend names.
const (
	StorageS3     = "s3"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"

	NotifySNS  = "sns"
	NotifyAMQP = "amqp"
	NotifyLog  = "log"
)

type Config struct {
	// Ledger
	LedgerBucket      string `envconfig:"LEDGER_BUCKET"`
	LedgerKey         string `envconfig:"LEDGER_KEY" default:"budget.csv"`
	LedgerTemplateKey string `envconfig:"LEDGER_TEMPLATE_KEY" default:"budget-template.csv"`
	ScratchDir        string `envconfig:"SCRATCH_DIR"`

	// Inbound mail
	EmailBucket    string   `envconfig:"EMAIL_BUCKET"`
	EmailPrefix    string   `envconfig:"EMAIL_PREFIX"`
	AllowedSenders []string `envconfig:"ALLOWED_SENDERS"`
	ExtractWorkers int      `envconfig:"EXTRACT_WORKERS" default:"5"`
	Timezone       string   `envconfig:"TIMEZONE" default:"Local"`

	// Budget
	PeriodBudget decimal.Decimal `envconfig:"PERIOD_BUDGET" default:"250"`
	DryRun       bool            `envconfig:"DRY_RUN"`

	// Storage backend
	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"s3"`
	SQLiteDBPath   string `envconfig:"SQLITE_DB_PATH" default:"./data/budget.db"`
	AWSRegion      string `envconfig:"AWS_REGION"`
	S3Endpoint     string `envconfig:"S3_ENDPOINT"`

	// Notification channel
	NotifyBackend  string `envconfig:"NOTIFY_BACKEND" default:"sns"`
	TopicARN       string `envconfig:"SNS_TOPIC_ARN"`
	AMQPURL        string `envconfig:"AMQP_URL"`
	AMQPExchange   string `envconfig:"AMQP_EXCHANGE" default:"budget"`
	AMQPRoutingKey string `envconfig:"AMQP_ROUTING_KEY" default:"budget.notifications"`

	// Ledger export
	ExportSender     string   `envconfig:"EXPORT_SENDER"`
	ExportRecipients []string `envconfig:"EXPORT_RECIPIENTS"`

	// Spreadsheet mirror
	SheetsSpreadsheetID   string `envconfig:"SHEETS_SPREADSHEET_ID"`
	SheetsSheetName       string `envconfig:"SHEETS_SHEET_NAME" default:"Ledger"`
	SheetsCredentialsFile string `envconfig:"SHEETS_CREDENTIALS_FILE"`
	SheetsCredentialsJSON string `envconfig:"SHEETS_CREDENTIALS_JSON"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
}

// LoadEnvFile loads .env for local development. A missing file is ignored.
func LoadEnvFile(files ...string) {
	_ = godotenv.Load(files...)
}

// Load reads and validates the configuration from the environment, after
// loading .env when present. Variables already set take precedence.
func Load() (*Config, error) {
	LoadEnvFile()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.AllowedSenders = trimList(c.AllowedSenders)
	c.ExportRecipients = trimList(c.ExportRecipients)
	c.StorageBackend = strings.ToLower(strings.TrimSpace(c.StorageBackend))
	c.NotifyBackend = strings.ToLower(strings.TrimSpace(c.NotifyBackend))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
}

func trimList(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks every field and returns a combined error.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.LedgerBucket, validation.Required),
		validation.Field(&c.LedgerKey, validation.Required),
		validation.Field(&c.LedgerTemplateKey, validation.Required,
			validation.NotIn(c.LedgerKey).Error("must differ from the ledger key")),
		validation.Field(&c.EmailBucket, validation.Required),
		validation.Field(&c.AllowedSenders, validation.Required, validation.Each(is.EmailFormat)),
		validation.Field(&c.ExtractWorkers, validation.Min(1), validation.Max(32)),
		validation.Field(&c.Timezone, validation.By(validLocation)),
		validation.Field(&c.PeriodBudget, validation.By(nonNegative)),
		validation.Field(&c.StorageBackend, validation.In(StorageS3, StorageSQLite, StorageMemory)),
		validation.Field(&c.SQLiteDBPath, validation.When(c.StorageBackend == StorageSQLite, validation.Required)),
		validation.Field(&c.S3Endpoint, is.URL),
		validation.Field(&c.NotifyBackend, validation.In(NotifySNS, NotifyAMQP, NotifyLog)),
		validation.Field(&c.TopicARN, validation.When(c.NotifyBackend == NotifySNS, validation.Required)),
		validation.Field(&c.AMQPURL, validation.When(c.NotifyBackend == NotifyAMQP, validation.Required, validation.By(amqpURL))),
		validation.Field(&c.AMQPExchange, validation.When(c.NotifyBackend == NotifyAMQP, validation.Required)),
		validation.Field(&c.AMQPRoutingKey, validation.When(c.NotifyBackend == NotifyAMQP, validation.Required)),
		validation.Field(&c.ExportSender, validation.When(len(c.ExportRecipients) > 0, validation.Required), is.EmailFormat),
		validation.Field(&c.ExportRecipients, validation.Each(is.EmailFormat)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.LogFormat, validation.In("text", "json")),
	)
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if c.StorageBackend == StorageSQLite {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("cannot create SQLite database directory '%s': %w", dir, err)
			}
		}
	}
	return nil
}

// Location resolves Timezone. "Local" and "" mean the process zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// ExportEnabled reports whether the ledger is emailed at period close.
func (c *Config) ExportEnabled() bool { return len(c.ExportRecipients) > 0 }

// MirrorEnabled reports whether appended entries go to a spreadsheet.
func (c *Config) MirrorEnabled() bool { return c.SheetsSpreadsheetID != "" }

func validLocation(value any) error {
	tz, _ := value.(string)
	if tz == "" || strings.EqualFold(tz, "local") {
		return nil
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return errors.New("must be an IANA time zone name")
	}
	return nil
}

func nonNegative(value any) error {
	d, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("must be a decimal")
	}
	if d.IsNegative() {
		return errors.New("must not be negative")
	}
	return nil
}

func amqpURL(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if !strings.HasPrefix(s, "amqp://") && !strings.HasPrefix(s, "amqps://") {
		return errors.New("must use the amqp or amqps scheme")
	}
	return nil
}
