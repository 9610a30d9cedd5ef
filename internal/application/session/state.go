package session

import (
	"time"

	domain "github.com/bryanwahyu/metaselect/internal/domain/analysis"
)

// RequestInfo describes a request without its bytes.
type RequestInfo struct {
	ID        uint64 `json:"id"`
	FileName  string `json:"file_name"`
	MediaType string `json:"media_type"`
	Size      int    `json:"size"`
}

// State is a point-in-time copy of a session.
type State struct {
	SessionID     string               `json:"session_id"`
	Phase         Phase                `json:"phase"`
	ServiceStatus domain.ServiceStatus `json:"service_status"`
	CheckedAt     *time.Time           `json:"checked_at,omitempty"`
	Pending       *RequestInfo         `json:"pending,omitempty"`
	InFlight      *RequestInfo         `json:"in_flight,omitempty"`
	Last          *Outcome             `json:"-"`
	Error         string               `json:"error,omitempty"`
	Warning       string               `json:"warning,omitempty"`
}

// State returns a snapshot of the session.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := State{
		SessionID:     m.id,
		ServiceStatus: m.status,
		Pending:       info(m.pending),
		InFlight:      info(m.inFlight),
		Last:          m.last,
	}
	if !m.checkedAt.IsZero() {
		t := m.checkedAt
		st.CheckedAt = &t
	}
	if m.lastErr != nil {
		st.Error = m.lastErr.Error()
	}
	if m.lastWarning != nil && m.lastErr == nil {
		st.Warning = m.lastWarning.Error()
	}

	switch {
	case m.inFlight != nil:
		st.Phase = PhaseAnalyzing
	case m.lastErr != nil:
		st.Phase = PhaseError
	case m.last != nil && m.pending == nil:
		st.Phase = PhaseResult
	case m.pending != nil:
		st.Phase = PhaseSelected
	default:
		st.Phase = PhaseIdle
	}
	return st
}

func info(r *domain.Request) *RequestInfo {
	if r == nil {
		return nil
	}
	return &RequestInfo{ID: r.ID, FileName: r.FileName, MediaType: r.MediaType, Size: r.Size}
}
