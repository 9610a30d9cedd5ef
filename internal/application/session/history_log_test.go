package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/metaselect/internal/domain/analysis"
)

var errConnRefused = errors.New("dial tcp 127.0.0.1:3306: connection refused")

// seedHistory writes n entries under key through a separate log.
func seedHistory(t *testing.T, store domain.HistoryStore, key string, n int) {
	t.Helper()
	res, err := domain.NewResult(domain.ResultInput{Diagnosis: domain.DiagnosisBenign, Confidence: 0.7})
	require.NoError(t, err)
	seed := NewHistoryLog(store, key, domain.DefaultHistoryCapacity)
	start := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		_, err := seed.Append(context.Background(), fmt.Sprintf("old-%d.png", i), res, start.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}
}

func TestHistoryLogRetriesAfterLoadFailure(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	seedHistory(t, store, "k", 5)
	store.failLoads(1, errConnRefused)

	l := NewHistoryLog(store, "k", domain.DefaultHistoryCapacity)
	assert.Empty(t, l.Entries(ctx))

	// the store is back: the stored entries show up
	require.Len(t, l.Entries(ctx), 5)

	res, err := domain.NewResult(domain.ResultInput{Diagnosis: domain.DiagnosisMalignant, Confidence: 0.9})
	require.NoError(t, err)
	_, err = l.Append(ctx, "new.png", res, time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	stored, err := store.Store.Load(ctx, "k")
	require.NoError(t, err)
	require.Len(t, stored, 6)
	assert.Equal(t, "new.png", stored[0].FileName)
}

func TestHistoryLogAppendDuringOutageKeepsStoredEntries(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	seedHistory(t, store, "k", 5)
	store.failLoads(1, errConnRefused)
	savesBefore := store.saves

	l := NewHistoryLog(store, "k", domain.DefaultHistoryCapacity)
	res, err := domain.NewResult(domain.ResultInput{Diagnosis: domain.DiagnosisMalignant, Confidence: 0.9})
	require.NoError(t, err)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	entry, err := l.Append(ctx, "during.png", res, now)
	var warn *domain.PersistenceWarning
	require.ErrorAs(t, err, &warn)
	assert.ErrorIs(t, err, errConnRefused)
	assert.Equal(t, "during.png", entry.FileName)
	assert.Equal(t, savesBefore, store.saves)

	stored, err := store.Store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Len(t, stored, 5)

	// once readable, the unsaved entry sits ahead of the stored ones
	hist := l.Entries(ctx)
	require.Len(t, hist, 6)
	assert.Equal(t, "during.png", hist[0].FileName)

	_, err = l.Append(ctx, "after.png", res, now.Add(time.Minute))
	require.NoError(t, err)
	stored, err = store.Store.Load(ctx, "k")
	require.NoError(t, err)
	require.Len(t, stored, 7)
	assert.Equal(t, "after.png", stored[0].FileName)
	assert.Equal(t, "during.png", stored[1].FileName)
}

func TestHistoryLogLoadIgnoresCallerCancel(t *testing.T) {
	store := newFlakyStore()
	seedHistory(t, store, "k", 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := NewHistoryLog(store, "k", domain.DefaultHistoryCapacity)
	require.Len(t, l.Entries(ctx), 2)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.NotNil(t, store.loadCtx)
	assert.NoError(t, store.loadCtx.Err())
}

func TestHistoryLogCorruptDataIsDroppedOnce(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	store.Put("k", []byte(`{"broken"`))

	l := NewHistoryLog(store, "k", domain.DefaultHistoryCapacity)
	assert.Empty(t, l.Entries(ctx))
	assert.Empty(t, l.Entries(ctx))
	assert.Equal(t, 1, store.loads)
}
