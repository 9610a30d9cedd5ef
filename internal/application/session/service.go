package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"

	"github.com/bryanwahyu/metaselect/internal/application"
	domain "github.com/bryanwahyu/metaselect/internal/domain/analysis"
	"github.com/bryanwahyu/metaselect/internal/domain/auth"
	"github.com/bryanwahyu/metaselect/internal/metrics"
)

// ErrSessionNotFound is returned for unknown or expired session IDs.
var ErrSessionNotFound = errors.New("session not found")

// DefaultHistoryKey is the store key used when a session has no user.
const DefaultHistoryKey = "analysis_history"

// Service implements use-cases untuk session analisis.
// Service is safe for concurrent use; each Manager it hands out is one session.
type Service struct {
	Classifier domain.Classifier
	Store      domain.HistoryStore
	Clock      application.Clock
	Capacity   int
	HistoryKey string

	mu       sync.Mutex
	sessions map[string]*Manager
	logs     map[string]*HistoryLog
}

// Open creates a session bound to provider. Sessions of the same user share one history log.
func (s *Service) Open(ctx context.Context, provider auth.Provider) *Manager {
	key := s.historyKey(ctx, provider)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.init()

	hl, ok := s.logs[key]
	if !ok {
		hl = NewHistoryLog(s.Store, key, s.Capacity)
		s.logs[key] = hl
	}
	m := NewManager(uuid.New().String(), s.Classifier, hl, provider, s.clock())
	s.sessions[m.ID()] = m
	metrics.SessionsOpen.Set(float64(len(s.sessions)))

	log.WithFields(log.Fields{"session": m.ID(), "history_key": key}).Info("session opened")
	return m
}

// Get ambil session by id
func (s *Service) Get(id string) (*Manager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return m, nil
}

// Close removes the session and signs its user out.
func (s *Service) Close(ctx context.Context, id string) error {
	s.mu.Lock()
	m, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
		metrics.SessionsOpen.Set(float64(len(s.sessions)))
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	log.WithField("session", id).Info("session closed")
	return m.SignOut(ctx)
}

// ModelInfo passes the classifier's model description through unchanged.
func (s *Service) ModelInfo(ctx context.Context) (json.RawMessage, error) {
	info, err := s.Classifier.ModelInfo(ctx)
	if err != nil {
		return nil, normalizeFailure(err)
	}
	return info, nil
}

// Sweep removes sessions idle for longer than idle and signs their users out,
// the same as Close. Sessions with a submit in flight are kept. History logs
// no remaining session uses are dropped; the store still holds them.
// It returns the number removed.
func (s *Service) Sweep(ctx context.Context, idle time.Duration) int {
	now := s.clock().Now()

	s.mu.Lock()
	var expired []*Manager
	for id, m := range s.sessions {
		busy, touched := m.busy()
		if busy || now.Sub(touched) <= idle {
			continue
		}
		delete(s.sessions, id)
		expired = append(expired, m)
	}
	if len(expired) > 0 {
		s.pruneLogs()
		metrics.SessionsOpen.Set(float64(len(s.sessions)))
	}
	s.mu.Unlock()

	for _, m := range expired {
		if err := m.SignOut(ctx); err != nil {
			log.WithError(err).WithField("session", m.ID()).Warn("sign out of expired session failed")
		}
	}
	if len(expired) > 0 {
		log.WithField("removed", len(expired)).Info("idle sessions expired")
	}
	return len(expired)
}

// pruneLogs drops history logs without a session; s.mu must be held.
func (s *Service) pruneLogs() {
	inUse := make(map[string]bool, len(s.sessions))
	for _, m := range s.sessions {
		inUse[m.history.Key()] = true
	}
	for key := range s.logs {
		if !inUse[key] {
			delete(s.logs, key)
		}
	}
}

// RunJanitor sweeps idle sessions every interval until ctx is done.
func (s *Service) RunJanitor(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx, idle)
		}
	}
}

func (s *Service) historyKey(ctx context.Context, provider auth.Provider) string {
	base := s.HistoryKey
	if base == "" {
		base = DefaultHistoryKey
	}
	if provider == nil {
		return base
	}
	if u, ok := provider.CurrentUser(ctx); ok && u.ID != "" {
		return base + ":" + u.ID
	}
	return base
}

func (s *Service) clock() application.Clock {
	if s.Clock == nil {
		return application.SystemClock{}
	}
	return s.Clock
}

// init lazily allocates the maps; s.mu must be held.
func (s *Service) init() {
	if s.sessions == nil {
		s.sessions = make(map[string]*Manager)
	}
	if s.logs == nil {
		s.logs = make(map[string]*HistoryLog)
	}
}
