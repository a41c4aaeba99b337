package backend

import (
	"context"
	"fmt"

	"invoicer/internal/amqp"
	"invoicer/internal/log"
	"invoicer/internal/records"
	"invoicer/internal/records/google"
	"invoicer/internal/records/memory"
	"invoicer/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	repo, err := f.createRecords(ctx, config)
	if err != nil {
		return nil, err
	}
	f.logger.InfoContext(ctx, "Initialized record backend", log.FieldBackend, config.Type.String())

	res := &Result{Records: repo}

	// AMQP is optional: without it exports still work, notify does not
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without notify", log.FieldError, err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			res.AMQP = client
		}
	}

	res.Cleanup = func() error {
		if res.AMQP != nil {
			if err := res.AMQP.Close(); err != nil {
				f.logger.Warn("Failed to close AMQP client", log.FieldError, err)
			}
		}
		return repo.Close()
	}
	return res, nil
}

func (f *DefaultFactory) createRecords(ctx context.Context, config Config) (records.Repository, error) {
	switch config.Type {
	case MemoryBackend:
		return memory.New(), nil
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		return repo, nil
	case PostgresBackend:
		repo, err := storage.NewPostgresRepository(ctx, config.DatabaseURL, config.MaxConns, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		return repo, nil
	case SheetsBackend:
		client, err := google.New(ctx, google.Config{
			SpreadsheetID:    config.GoogleSpreadsheetID,
			SheetName:        config.GoogleSheetName,
			ProfileSheetName: config.GoogleProfileSheetName,
			CredentialsJSON:  config.GoogleServiceAccountJSON,
			CredentialsFile:  config.GoogleServiceAccountFile,
		}, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
