package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/bryanwahyu/metaselect/internal/domain/analysis"
)

type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Load reads the log stored under key; no row means an empty log.
func (r *HistoryRepository) Load(ctx context.Context, key string) ([]domain.HistoryEntry, error) {
	const q = `
SELECT payload
FROM analysis_history
WHERE history_key=?
LIMIT 1;`
	var payload string
	err := r.db.QueryRowContext(ctx, q, keyOrDefault(key)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return domain.DecodeHistory([]byte(payload))
}

// Save upserts the whole log under key.
func (r *HistoryRepository) Save(ctx context.Context, key string, entries []domain.HistoryEntry) error {
	const q = `
INSERT INTO analysis_history
  (history_key, payload, entries, updated_at)
VALUES (?,?,?,?)
ON DUPLICATE KEY UPDATE
  payload=VALUES(payload), entries=VALUES(entries), updated_at=VALUES(updated_at);
`
	b, err := domain.EncodeHistory(entries)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, q, keyOrDefault(key), string(b), len(entries), time.Now().UTC())
	return err
}
