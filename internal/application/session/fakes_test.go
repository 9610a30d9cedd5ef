package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/metaselect/internal/domain/analysis"
	"github.com/bryanwahyu/metaselect/internal/domain/auth"
	infraauth "github.com/bryanwahyu/metaselect/internal/infra/auth"
	"github.com/bryanwahyu/metaselect/internal/infra/store/memory"
)

var (
	pngBytes  = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)
	jpegBytes = append([]byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, make([]byte, 32)...)
)

type fakeClassifier struct {
	mu        sync.Mutex
	health    string
	healthErr error
	predict   func(ctx context.Context, req *domain.Request) (*domain.Result, error)
	calls     int
}

func newFakeClassifier() *fakeClassifier {
	return &fakeClassifier{
		health: "healthy",
		predict: func(ctx context.Context, req *domain.Request) (*domain.Result, error) {
			return domain.NewResult(domain.ResultInput{
				Diagnosis:    domain.DiagnosisBenign,
				Confidence:   0.87,
				Explanations: []domain.Explanation{{Title: "Cells", Description: "Uniform cells"}},
			})
		},
	}
}

func (f *fakeClassifier) Health(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.health, f.healthErr
}

func (f *fakeClassifier) ModelInfo(ctx context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{"model_loaded":true}`), nil
}

func (f *fakeClassifier) Predict(ctx context.Context, req *domain.Request) (*domain.Result, error) {
	f.mu.Lock()
	f.calls++
	p := f.predict
	f.mu.Unlock()
	return p(ctx, req)
}

func (f *fakeClassifier) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// flakyStore wraps the memory store with switchable failures.
type flakyStore struct {
	*memory.Store
	mu        sync.Mutex
	saveErr   error
	saves     int
	loadErr   error
	loadFails int
	loads     int
	loadCtx   context.Context
}

func newFlakyStore() *flakyStore {
	return &flakyStore{Store: memory.New()}
}

func (s *flakyStore) Save(ctx context.Context, key string, entries []domain.HistoryEntry) error {
	s.mu.Lock()
	s.saves++
	err := s.saveErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Store.Save(ctx, key, entries)
}

func (s *flakyStore) Load(ctx context.Context, key string) ([]domain.HistoryEntry, error) {
	s.mu.Lock()
	s.loads++
	s.loadCtx = ctx
	var err error
	if s.loadFails > 0 {
		s.loadFails--
		err = s.loadErr
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.Store.Load(ctx, key)
}

// failLoads makes the next n loads return err.
func (s *flakyStore) failLoads(n int, err error) {
	s.mu.Lock()
	s.loadErr, s.loadFails = err, n
	s.mu.Unlock()
}

func (s *flakyStore) failSaves(err error) {
	s.mu.Lock()
	s.saveErr = err
	s.mu.Unlock()
}

// stepClock advances by one second on every reading.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

var errBoom = errors.New("boom")

type fixture struct {
	classifier *fakeClassifier
	store      *flakyStore
	svc        *Service
}

func newFixture() *fixture {
	c := newFakeClassifier()
	s := newFlakyStore()
	return &fixture{
		classifier: c,
		store:      s,
		svc: &Service{
			Classifier: c,
			Store:      s,
			Clock:      &stepClock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)},
			Capacity:   domain.DefaultHistoryCapacity,
		},
	}
}

func (f *fixture) open(t *testing.T, u *auth.User) *Manager {
	t.Helper()
	return f.svc.Open(context.Background(), infraauth.NewSessionProvider(u))
}

// ready opens a session and marks the service connected.
func (f *fixture) ready(t *testing.T, u *auth.User) *Manager {
	t.Helper()
	m := f.open(t, u)
	require.Equal(t, domain.StatusConnected, m.CheckServiceHealth(context.Background()))
	return m
}

func selectPNG(t *testing.T, m *Manager, name string) *domain.Request {
	t.Helper()
	req, err := m.SelectFile(domain.Payload{FileName: name, MediaType: "image/png", Data: pngBytes})
	require.NoError(t, err)
	return req
}
