package postgres

import (
	"context"
	"database/sql"
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
WHERE history_key=$1
LIMIT 1;`
	var payload []byte
	if err := r.db.QueryRowContext(ctx, q, keyOrDefault(key)).Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return domain.DecodeHistory(payload)
}

// Save inserts or replaces the whole log under key.
func (r *HistoryRepository) Save(ctx context.Context, key string, entries []domain.HistoryEntry) error {
	const q = `
INSERT INTO analysis_history
  (history_key, payload, entries, updated_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (history_key) DO UPDATE SET
  payload=EXCLUDED.payload,
  entries=EXCLUDED.entries,
  updated_at=EXCLUDED.updated_at;
`
	b, err := domain.EncodeHistory(entries)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, q, keyOrDefault(key), string(b), len(entries), time.Now().UTC())
	return err
}
