package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/apex/log"

	domain "github.com/bryanwahyu/metaselect/internal/domain/analysis"
	"github.com/bryanwahyu/metaselect/internal/metrics"
)

// HistoryLog is the bounded, newest-first log stored under one key.
// One instance exists per key so every session of a user appends through the same lock.
type HistoryLog struct {
	store    domain.HistoryStore
	key      string
	capacity int

	mu      sync.Mutex
	loaded  bool
	entries []domain.HistoryEntry
}

func NewHistoryLog(store domain.HistoryStore, key string, capacity int) *HistoryLog {
	if capacity <= 0 {
		capacity = domain.DefaultHistoryCapacity
	}
	return &HistoryLog{store: store, key: key, capacity: capacity}
}

func (l *HistoryLog) Key() string { return l.key }

// Entries returns a copy of the log, reading the store until a read succeeds.
// While the store is unreachable only entries appended by this process are shown.
func (l *HistoryLog) Entries(ctx context.Context) []domain.HistoryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensureLoaded(ctx)
	return append([]domain.HistoryEntry(nil), l.entries...)
}

// Append puts a new entry at the head of the log and persists it.
// The entry is kept in memory even when Save fails; that failure is returned
// as a *domain.PersistenceWarning. While the stored log cannot be read the
// store is left untouched, so a read outage never overwrites older entries.
func (l *HistoryLog) Append(ctx context.Context, fileName string, res *domain.Result, now time.Time) (domain.HistoryEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	loadErr := l.ensureLoaded(ctx)

	id := now.UnixMilli()
	if len(l.entries) > 0 && id <= l.entries[0].ID {
		id = l.entries[0].ID + 1
	}
	entry := domain.HistoryEntry{
		ID:         id,
		FileName:   fileName,
		CreatedAt:  now.UTC(),
		Diagnosis:  res.Diagnosis(),
		Confidence: res.Confidence(),
		Result:     res,
	}

	keep := len(l.entries)
	if keep > l.capacity-1 {
		keep = l.capacity - 1
	}
	next := make([]domain.HistoryEntry, 0, keep+1)
	next = append(next, entry)
	next = append(next, l.entries[:keep]...)
	l.entries = next

	if loadErr != nil {
		metrics.HistoryWriteFailuresTotal.Inc()
		log.WithError(loadErr).WithFields(log.Fields{
			"key":      l.key,
			"entry_id": entry.ID,
		}).Warn("history not loaded, write skipped")
		return entry, &domain.PersistenceWarning{Err: loadErr}
	}
	if err := l.store.Save(ctx, l.key, append([]domain.HistoryEntry(nil), next...)); err != nil {
		metrics.HistoryWriteFailuresTotal.Inc()
		log.WithError(err).WithFields(log.Fields{
			"key":      l.key,
			"entry_id": entry.ID,
		}).Warn("history write failed")
		return entry, &domain.PersistenceWarning{Err: err}
	}
	return entry, nil
}

// ensureLoaded reads the stored log once. Undecodable data is dropped for
// good; any other error leaves the log unloaded so the next call retries.
// Entries appended while unloaded are kept and merged ahead of the stored
// ones once a read succeeds. l.mu must be held.
func (l *HistoryLog) ensureLoaded(ctx context.Context) error {
	if l.loaded {
		return nil
	}

	stored, err := l.store.Load(context.WithoutCancel(ctx), l.key)
	switch {
	case errors.Is(err, domain.ErrCorruptHistory):
		metrics.HistoryLoadFailuresTotal.Inc()
		log.WithError(err).WithField("key", l.key).Warn("history unreadable, starting with an empty log")
		stored = nil
	case err != nil:
		metrics.HistoryLoadFailuresTotal.Inc()
		log.WithError(err).WithField("key", l.key).Warn("history load failed, will retry")
		return err
	}
	l.loaded = true

	merged := append(l.entries, stored...)
	if len(merged) > l.capacity {
		merged = merged[:l.capacity]
	}
	l.entries = merged
	return nil
}
