package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/metaselect/internal/domain/analysis"
)

func TestStore(t *testing.T) {
	s := New()
	ctx := context.Background()

	got, err := s.Load(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)

	res, err := domain.NewResult(domain.ResultInput{Diagnosis: domain.DiagnosisBenign, Confidence: 0.5})
	require.NoError(t, err)
	e := domain.HistoryEntry{ID: 7, FileName: "a.png", CreatedAt: time.Now().UTC(), Diagnosis: domain.DiagnosisBenign, Confidence: 0.5, Result: res}
	require.NoError(t, s.Save(ctx, "k", []domain.HistoryEntry{e}))

	got, err = s.Load(ctx, "k")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].ID)

	raw, ok := s.Raw("k")
	assert.True(t, ok)
	assert.Contains(t, string(raw), `"fileName":"a.png"`)

	s.Put("k", []byte("garbage"))
	_, err = s.Load(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrCorruptHistory)
}
