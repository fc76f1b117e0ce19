// Package backend wires storage, notification, export and mirror
// collaborators from configuration.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"budgetmail/internal/amqp"
	"budgetmail/internal/config"
	"budgetmail/internal/export"
	blog "budgetmail/internal/log"
	"budgetmail/internal/notify"
	snspub "budgetmail/internal/notify/sns"
	objmem "budgetmail/internal/objstore/memory"
	s3store "budgetmail/internal/objstore/s3"
	gsheet "budgetmail/internal/sheets/google"
	"budgetmail/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
	// LoadAWS is replaceable in tests.
	LoadAWS func(ctx context.Context, region string) (aws.Config, error)
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger, LoadAWS: loadAWSConfig}
}

var _ Factory = (*DefaultFactory)(nil)

func loadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// Create builds every collaborator. On failure, anything already opened is
// closed before returning.
func (f *DefaultFactory) Create(ctx context.Context, cfg *config.Config) (*Collaborators, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	c := &Collaborators{}
	var closers []func() error
	c.Cleanup = func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (*Collaborators, error) {
		_ = c.Cleanup()
		return nil, err
	}

	var awsCfg *aws.Config
	awsConfig := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		loaded, err := f.LoadAWS(ctx, cfg.AWSRegion)
		if err != nil {
			return aws.Config{}, fmt.Errorf("load aws config: %w", err)
		}
		awsCfg = &loaded
		return loaded, nil
	}

	storageLog := blog.WithComponent(f.logger, blog.ComponentStorage)
	switch cfg.StorageBackend {
	case config.StorageS3:
		ac, err := awsConfig()
		if err != nil {
			return fail(err)
		}
		c.Objects = s3store.NewFromConfig(ac, cfg.S3Endpoint)
		storageLog.Info("Initialized S3 object storage", "endpoint", cfg.S3Endpoint)
	case config.StorageSQLite:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return fail(fmt.Errorf("failed to initialize SQLite repository: %w", err))
		}
		closers = append(closers, repo.Close)
		c.Objects = repo
		storageLog.Info("Initialized SQLite object storage", "db_path", cfg.SQLiteDBPath)
	case config.StorageMemory:
		c.Objects = objmem.New()
		storageLog.Info("Initialized memory object storage")
	default:
		return fail(fmt.Errorf("unsupported storage backend: %s", cfg.StorageBackend))
	}

	switch cfg.NotifyBackend {
	case config.NotifySNS:
		ac, err := awsConfig()
		if err != nil {
			return fail(err)
		}
		c.Publisher = snspub.NewFromConfig(ac, cfg.TopicARN)
		c.Topic = cfg.TopicARN
	case config.NotifyAMQP:
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
		if err != nil {
			return fail(fmt.Errorf("failed to initialize AMQP client: %w", err))
		}
		closers = append(closers, client.Close)
		c.Publisher = client
		c.Topic = cfg.AMQPExchange + "/" + cfg.AMQPRoutingKey
		f.logger.Info("Initialized AMQP client",
			"exchange", cfg.AMQPExchange,
			"routing_key", cfg.AMQPRoutingKey)
	case config.NotifyLog:
		c.Publisher = notify.NewLogPublisher(f.logger)
		c.Topic = "log"
	default:
		return fail(fmt.Errorf("unsupported notify backend: %s", cfg.NotifyBackend))
	}

	if cfg.ExportEnabled() {
		ac, err := awsConfig()
		if err != nil {
			return fail(err)
		}
		loc, err := cfg.Location()
		if err != nil {
			return fail(fmt.Errorf("load timezone: %w", err))
		}
		c.Exporter = export.NewFromConfig(ac, cfg.ExportSender, cfg.ExportRecipients, loc,
			blog.WithComponent(f.logger, blog.ComponentExport))
		f.logger.Info("Ledger export enabled", "recipients", len(cfg.ExportRecipients))
	}

	if cfg.MirrorEnabled() {
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.SheetsSpreadsheetID,
			SheetName:       cfg.SheetsSheetName,
			CredentialsFile: cfg.SheetsCredentialsFile,
			CredentialsJSON: cfg.SheetsCredentialsJSON,
		})
		if err != nil {
			return fail(fmt.Errorf("failed to initialize Google Sheets client: %w", err))
		}
		c.Mirror = client
		blog.WithComponent(f.logger, blog.ComponentSheets).Info("Spreadsheet mirror enabled", "sheet", cfg.SheetsSheetName)
	}

	return c, nil
}
