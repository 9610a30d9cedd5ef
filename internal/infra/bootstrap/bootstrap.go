// Package bootstrap builds the configured adapters for the binaries.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/apex/log"

	"github.com/bryanwahyu/metaselect/internal/config"
	domain "github.com/bryanwahyu/metaselect/internal/domain/analysis"
	"github.com/bryanwahyu/metaselect/internal/infra/ai/openai"
	"github.com/bryanwahyu/metaselect/internal/infra/classifier"
	mysqlp "github.com/bryanwahyu/metaselect/internal/infra/db/mysql"
	"github.com/bryanwahyu/metaselect/internal/infra/db/postgres"
	"github.com/bryanwahyu/metaselect/internal/infra/db/sqlite"
	"github.com/bryanwahyu/metaselect/internal/infra/storage"
	"github.com/bryanwahyu/metaselect/internal/infra/store/memory"
)

// NewClassifier returns the Classification Service adapter named by classifier.provider.
func NewClassifier(cfg *config.Config) (domain.Classifier, error) {
	switch cfg.Classifier.Provider {
	case "http":
		return classifier.NewClient(cfg.Classifier.URL, cfg.ClassifierTimeout()), nil
	case "openai":
		o := cfg.Classifier.OpenAI
		return openai.NewClient(o.APIKey, o.BaseURL, o.Model), nil
	default:
		return nil, fmt.Errorf("unknown classifier provider %q", cfg.Classifier.Provider)
	}
}

// NewHistoryStore connects the store named by history.driver. The returned
// close func releases its resources and is never nil.
func NewHistoryStore(ctx context.Context, cfg *config.Config) (domain.HistoryStore, func() error, error) {
	noop := func() error { return nil }
	logger := log.WithField("driver", cfg.History.Driver)

	switch cfg.History.Driver {
	case "memory":
		logger.Warn("history is kept in memory and is lost on exit")
		return memory.New(), noop, nil

	case "sqlite":
		s, err := sqlite.Open(cfg.History.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		logger.WithField("path", cfg.History.SQLitePath).Info("history store ready")
		return s, s.Close, nil

	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, noop, fmt.Errorf("mysql connect: %w", err)
		}
		if err := mysqlp.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, noop, fmt.Errorf("mysql schema: %w", err)
		}
		logger.WithField("host", cfg.Database.Host).Info("history store ready")
		return mysqlp.NewHistoryRepository(db), db.Close, nil

	case "postgres":
		db, err := postgres.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, noop, fmt.Errorf("postgres connect: %w", err)
		}
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, noop, fmt.Errorf("postgres schema: %w", err)
		}
		logger.WithField("host", cfg.Database.Host).Info("history store ready")
		return postgres.NewHistoryRepository(db), db.Close, nil

	case "minio":
		m := cfg.Minio
		s, err := storage.New(ctx, m.Endpoint, m.Region, m.BucketName, m.AccessKey, m.SecretKey, m.Prefix, m.UseSSL)
		if err != nil {
			return nil, noop, fmt.Errorf("minio init: %w", err)
		}
		logger.WithField("bucket", m.BucketName).Info("history store ready")
		return s, noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown history driver %q", cfg.History.Driver)
	}
}
