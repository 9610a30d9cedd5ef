package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/metaselect/internal/domain/analysis"
	"github.com/bryanwahyu/metaselect/internal/domain/auth"
)

func TestServiceOpenGetClose(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	m := f.open(t, analyst)
	got, err := f.svc.Get(m.ID())
	require.NoError(t, err)
	assert.Same(t, m, got)

	_, err = f.svc.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, f.svc.Close(ctx, m.ID()))
	_, err = f.svc.Get(m.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, f.svc.Close(ctx, m.ID()), ErrSessionNotFound)

	_, ok := m.User(ctx)
	assert.False(t, ok)
}

func TestSessionsOfOneUserShareHistory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a := f.ready(t, analyst)
	b := f.ready(t, analyst)
	other := f.ready(t, &auth.User{ID: "u2", Name: "Budi"})

	_, err := a.Submit(ctx, selectPNG(t, a, "from-a.png"))
	require.NoError(t, err)
	_, err = b.Submit(ctx, selectPNG(t, b, "from-b.png"))
	require.NoError(t, err)

	hist := a.LoadHistory(ctx)
	require.Len(t, hist, 2)
	assert.Equal(t, "from-b.png", hist[0].FileName)
	assert.Equal(t, hist, b.LoadHistory(ctx))
	assert.Empty(t, other.LoadHistory(ctx))
}

func TestServiceModelInfo(t *testing.T) {
	f := newFixture()
	info, err := f.svc.ModelInfo(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"model_loaded":true}`, string(info))
}

func TestSweep(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.open(t, nil)
	b := f.open(t, nil)

	assert.Zero(t, f.svc.Sweep(ctx, time.Hour))
	assert.Equal(t, 2, f.svc.Sweep(ctx, 0))

	_, err := f.svc.Get(a.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.svc.Get(b.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSweepSignsOutAndDropsUnusedLogs(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	idle := f.ready(t, analyst)
	_, err := idle.Submit(ctx, selectPNG(t, idle, "a.png"))
	require.NoError(t, err)

	// the stepping clock makes every later reading newer
	assert.Equal(t, 1, f.svc.Sweep(ctx, 0))
	_, ok := idle.User(ctx)
	assert.False(t, ok)

	f.svc.mu.Lock()
	assert.Empty(t, f.svc.logs)
	f.svc.mu.Unlock()

	// a new session of the same user reads the history back from the store
	again := f.open(t, analyst)
	assert.Len(t, again.LoadHistory(ctx), 1)
}

func TestSweepKeepsBusySessions(t *testing.T) {
	f := newFixture()
	m := f.ready(t, nil)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	f.classifier.predict = func(ctx context.Context, r *domain.Request) (*domain.Result, error) {
		close(started)
		<-release
		return domain.NewResult(domain.ResultInput{Diagnosis: domain.DiagnosisBenign, Confidence: 0.7})
	}
	req := selectPNG(t, m, "a.png")
	done := make(chan error, 1)
	go func() {
		_, err := m.Submit(ctx, req)
		done <- err
	}()
	<-started

	assert.Zero(t, f.svc.Sweep(ctx, 0))
	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, f.svc.Sweep(ctx, 0))
}

func TestRunJanitorStopsWithContext(t *testing.T) {
	f := newFixture()
	m := f.open(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		f.svc.RunJanitor(ctx, time.Millisecond, 0)
		close(stopped)
	}()

	require.Eventually(t, func() bool {
		_, err := f.svc.Get(m.ID())
		return errors.Is(err, ErrSessionNotFound)
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
