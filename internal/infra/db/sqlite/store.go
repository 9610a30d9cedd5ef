// Package sqlite stores history logs in a local SQLite file through gorm.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	domain "github.com/bryanwahyu/metaselect/internal/domain/analysis"
)

type historyRecord struct {
	HistoryKey string `gorm:"primaryKey;size:191"`
	Payload    string `gorm:"type:text;not null"`
	UpdatedAt  time.Time
}

func (historyRecord) TableName() string { return "analysis_history" }

type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the database at path and migrates the history table.
// Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&historyRecord{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Load(ctx context.Context, key string) ([]domain.HistoryEntry, error) {
	var rec historyRecord
	err := s.db.WithContext(ctx).Where("history_key = ?", key).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return domain.DecodeHistory([]byte(rec.Payload))
}

func (s *Store) Save(ctx context.Context, key string, entries []domain.HistoryEntry) error {
	b, err := domain.EncodeHistory(entries)
	if err != nil {
		return err
	}
	rec := historyRecord{HistoryKey: key, Payload: string(b), UpdatedAt: time.Now().UTC()}
	return s.db.WithContext(ctx).Save(&rec).Error
}

// PutRaw writes an arbitrary payload under key; used to seed damaged data.
func (s *Store) PutRaw(ctx context.Context, key, payload string) error {
	rec := historyRecord{HistoryKey: key, Payload: payload, UpdatedAt: time.Now().UTC()}
	return s.db.WithContext(ctx).Save(&rec).Error
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
