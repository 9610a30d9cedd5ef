package session

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/bryanwahyu/metaselect/internal/application"
	"github.com/bryanwahyu/metaselect/internal/application/report"
	domain "github.com/bryanwahyu/metaselect/internal/domain/analysis"
	"github.com/bryanwahyu/metaselect/internal/domain/auth"
	"github.com/bryanwahyu/metaselect/internal/metrics"
)

const healthyStatus = "healthy"

// Phase is the coarse state of a session.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseSelected  Phase = "selected"
	PhaseAnalyzing Phase = "analyzing"
	PhaseResult    Phase = "result"
	PhaseError     Phase = "error"
)

// Outcome is what a successful Submit delivers.
type Outcome struct {
	RequestID uint64
	Result    *domain.Result
	Entry     domain.HistoryEntry
	// Warning is a *domain.PersistenceWarning when the history write failed.
	Warning error
}

// Manager owns the lifecycle of classification attempts for one session:
// file selection, submission, result or error, and the history append.
// At most one request is in flight at a time.
type Manager struct {
	id         string
	classifier domain.Classifier
	history    *HistoryLog
	auth       auth.Provider
	clock      application.Clock

	mu          sync.Mutex
	lastReqID   uint64
	pending     *domain.Request
	inFlight    *domain.Request
	status      domain.ServiceStatus
	healthSeq   uint64
	healthSet   uint64
	checkedAt   time.Time
	last        *Outcome
	lastErr     error
	lastWarning error
	touched     time.Time
}

// NewManager builds a session. history may be shared with other sessions.
func NewManager(id string, classifier domain.Classifier, history *HistoryLog, provider auth.Provider, clock application.Clock) *Manager {
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &Manager{
		id:         id,
		classifier: classifier,
		history:    history,
		auth:       provider,
		clock:      clock,
		status:     domain.StatusUnknown,
		touched:    clock.Now(),
	}
}

func (m *Manager) ID() string { return m.id }

// SelectFile validates p and makes it the pending request, replacing any
// earlier selection that was not submitted and clearing the last failure.
// An in-flight request is untouched.
func (m *Manager) SelectFile(p domain.Payload) (*domain.Request, error) {
	typ, err := resolveMediaType(p.MediaType, p.Data)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(filepath.Base(p.FileName))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "upload"
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastReqID++
	req := &domain.Request{
		ID:        m.lastReqID,
		FileName:  name,
		MediaType: typ,
		Size:      len(p.Data),
		Data:      append([]byte(nil), p.Data...),
	}
	m.pending = req
	m.lastErr = nil
	m.touched = m.clock.Now()
	return req, nil
}

// CheckServiceHealth asks the classifier for its status. It never fails:
// any error or a status other than "healthy" reads as Disconnected.
func (m *Manager) CheckServiceHealth(ctx context.Context) domain.ServiceStatus {
	m.mu.Lock()
	m.healthSeq++
	seq := m.healthSeq
	m.mu.Unlock()

	status := domain.StatusDisconnected
	s, err := m.classifier.Health(ctx)
	switch {
	case err != nil:
		log.WithError(err).WithField("session", m.id).Warn("classification service health check failed")
	case s == healthyStatus:
		status = domain.StatusConnected
	default:
		log.WithFields(log.Fields{"session": m.id, "status": s}).Warn("classification service not healthy")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// An older check finishing late must not overwrite a newer one.
	if seq > m.healthSet {
		m.healthSet = seq
		m.status = status
		m.checkedAt = m.clock.Now()
		metrics.ServiceConnected.Set(metrics.BoolGauge(status == domain.StatusConnected))
	}
	return status
}

// Submit sends req to the classifier and waits for the outcome. Cancelling
// ctx does not abort the prediction or the history write.
//
// Rejections happen before any network call: *domain.AlreadyInFlightError when
// another submit is running, *domain.NotReadyError when req is not the pending
// selection or the service is not connected. Every classifier failure comes
// back as *domain.AnalysisFailedError and leaves the history untouched.
func (m *Manager) Submit(ctx context.Context, req *domain.Request) (*Outcome, error) {
	m.mu.Lock()
	if err := m.admit(req); err != nil {
		m.mu.Unlock()
		metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}
	m.inFlight = m.pending
	req = m.inFlight
	m.lastErr = nil
	m.touched = m.clock.Now()
	m.mu.Unlock()

	logger := log.WithFields(log.Fields{
		"session":    m.id,
		"request_id": req.ID,
		"file":       req.FileName,
		"bytes":      req.Size,
	})

	// An in-flight submit is not cancellable; the classifier's own timeout bounds it.
	start := time.Now()
	res, err := m.classifier.Predict(context.WithoutCancel(ctx), req)
	if err == nil && res == nil {
		err = domain.NewAnalysisFailed("", errors.New("classifier returned no result"))
	}
	if err != nil {
		failure := normalizeFailure(err)
		metrics.PredictDurationSeconds.WithLabelValues("failed").Observe(time.Since(start).Seconds())
		metrics.SubmissionsTotal.WithLabelValues("failed").Inc()
		logger.WithError(err).Error("analysis failed")

		m.mu.Lock()
		m.finish(req)
		m.lastErr = failure
		m.mu.Unlock()
		return nil, failure
	}
	metrics.PredictDurationSeconds.WithLabelValues("success").Observe(time.Since(start).Seconds())

	// The result has been delivered by the service; record it even if the caller goes away.
	entry, warn := m.history.Append(context.WithoutCancel(ctx), req.FileName, res, m.clock.Now())
	out := &Outcome{RequestID: req.ID, Result: res, Entry: entry, Warning: warn}

	m.mu.Lock()
	m.finish(req)
	m.last = out
	m.lastErr = nil
	m.lastWarning = warn
	if m.pending != nil && m.pending.ID == req.ID {
		m.pending = nil
	}
	m.mu.Unlock()

	metrics.SubmissionsTotal.WithLabelValues("success").Inc()
	logger.WithFields(log.Fields{
		"diagnosis":  res.Diagnosis(),
		"confidence": res.Confidence(),
		"entry_id":   entry.ID,
	}).Info("analysis completed")
	return out, nil
}

// SubmitPending submits whatever is currently selected.
func (m *Manager) SubmitPending(ctx context.Context) (*Outcome, error) {
	m.mu.Lock()
	req := m.pending
	m.mu.Unlock()
	return m.Submit(ctx, req)
}

// admit runs the submit preconditions; m.mu must be held.
func (m *Manager) admit(req *domain.Request) error {
	if m.inFlight != nil {
		return &domain.AlreadyInFlightError{RequestID: m.inFlight.ID}
	}
	if req == nil || m.pending == nil {
		return &domain.NotReadyError{Reason: "no file selected"}
	}
	if m.pending.ID != req.ID {
		return &domain.NotReadyError{Reason: "file selection has changed; submit the current selection"}
	}
	if m.status != domain.StatusConnected {
		return &domain.NotReadyError{Reason: "classification service is not connected"}
	}
	return nil
}

// finish clears the in-flight marker if it still belongs to req; m.mu must be held.
func (m *Manager) finish(req *domain.Request) {
	if m.inFlight != nil && m.inFlight.ID == req.ID {
		m.inFlight = nil
	}
	m.touched = m.clock.Now()
}

// LoadHistory returns the history log, newest first. It never fails.
func (m *Manager) LoadHistory(ctx context.Context) []domain.HistoryEntry {
	return m.history.Entries(ctx)
}

// Stats summarizes the history log.
func (m *Manager) Stats(ctx context.Context) domain.Stats {
	return domain.Summarize(m.history.Entries(ctx))
}

// ExportReport renders the latest result, attributed to the signed-in user.
func (m *Manager) ExportReport(ctx context.Context) (string, []byte, error) {
	user, ok := m.currentUser(ctx)
	if !ok {
		return "", nil, &domain.NotSignedInError{}
	}
	m.mu.Lock()
	last := m.last
	m.mu.Unlock()
	if last == nil {
		return "", nil, &domain.NotReadyError{Reason: "no analysis result to export"}
	}
	return report.FileName(last.Entry), report.Export(last.Entry, user), nil
}

// User is the signed-in user of this session, if any.
func (m *Manager) User(ctx context.Context) (*auth.User, bool) {
	return m.currentUser(ctx)
}

// SignOut ends the user's sign-in through the provider.
func (m *Manager) SignOut(ctx context.Context) error {
	if m.auth == nil {
		return nil
	}
	return m.auth.SignOut(ctx)
}

func (m *Manager) currentUser(ctx context.Context) (*auth.User, bool) {
	if m.auth == nil {
		return nil, false
	}
	return m.auth.CurrentUser(ctx)
}

// busy reports whether a submit is running and when the session was last used.
func (m *Manager) busy() (bool, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inFlight != nil, m.touched
}

func normalizeFailure(err error) *domain.AnalysisFailedError {
	var afe *domain.AnalysisFailedError
	if errors.As(err, &afe) {
		return afe
	}
	return domain.NewAnalysisFailed("", err)
}
