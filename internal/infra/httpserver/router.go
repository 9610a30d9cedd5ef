package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/apex/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appsession "github.com/bryanwahyu/metaselect/internal/application/session"
	"github.com/bryanwahyu/metaselect/internal/config"
	domain "github.com/bryanwahyu/metaselect/internal/domain/analysis"
	infraauth "github.com/bryanwahyu/metaselect/internal/infra/auth"
	"github.com/bryanwahyu/metaselect/internal/middleware"
)

type Router struct {
	sessions       *appsession.Service
	maxUploadBytes int64
}

// NewRouter wires the session API behind the middleware chain configured in cfg.
func NewRouter(sessions *appsession.Service, cfg *config.Config) http.Handler {
	r := &Router{
		sessions:       sessions,
		maxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
	}
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.APIKeyAuth(cfg.APIKeys()))
	mux.Use(middleware.RateLimitMiddleware(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSecond))

	mux.Get("/health", middleware.HealthHandler(map[string]middleware.HealthChecker{
		"classifier": &middleware.ClassifierHealthChecker{Classifier: sessions.Classifier},
	}))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	mux.Handle("/metrics", middleware.MetricsHandler())

	mux.Route("/v1", func(rt chi.Router) {
		rt.Get("/model-info", r.wrap(r.handleModelInfo))
		rt.Post("/sessions", r.wrap(r.handleOpen))
		rt.Route("/sessions/{id}", func(rs chi.Router) {
			rs.Get("/", r.wrap(r.handleState))
			rs.Delete("/", r.wrap(r.handleClose))
			rs.Post("/file", r.wrap(r.handleSelectFile))
			rs.Post("/health", r.wrap(r.handleCheckHealth))
			rs.Post("/submit", r.wrap(r.handleSubmit))
			rs.Get("/history", r.wrap(r.handleHistory))
			rs.Get("/stats", r.wrap(r.handleStats))
			rs.Get("/report", r.wrap(r.handleReport))
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			code := statusFor(err)
			if code >= http.StatusInternalServerError && code != http.StatusBadGateway {
				log.WithError(err).WithField("path", req.URL.Path).Error("request failed")
			}
			writeJSON(w, code, map[string]string{"error": err.Error()})
		}
	}
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, appsession.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotSignedIn):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotReady), errors.Is(err, domain.ErrAlreadyInFlight):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAnalysisFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// session looks up {id}. A session opened by one user is invisible to another.
func (r *Router) session(req *http.Request) (*appsession.Manager, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateSessionID(id); err != nil {
		return nil, fmt.Errorf("%w: %s", appsession.ErrSessionNotFound, id)
	}
	m, err := r.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	if caller := middleware.UserFromContext(req.Context()); caller != nil {
		owner, ok := m.User(req.Context())
		if ok && owner.ID != caller.ID {
			return nil, fmt.Errorf("%w: %s", appsession.ErrSessionNotFound, id)
		}
	}
	return m, nil
}

// GET /v1/model-info
func (r *Router) handleModelInfo(w http.ResponseWriter, req *http.Request) error {
	info, err := r.sessions.ModelInfo(req.Context())
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(info)
	return err
}

// POST /v1/sessions
// The session starts with a health check so the client knows whether it can submit.
func (r *Router) handleOpen(w http.ResponseWriter, req *http.Request) error {
	provider := infraauth.NewSessionProvider(middleware.UserFromContext(req.Context()))
	m := r.sessions.Open(req.Context(), provider)
	m.CheckServiceHealth(req.Context())
	return writeJSON(w, http.StatusCreated, newStateView(m.State()))
}

// GET /v1/sessions/{id}
func (r *Router) handleState(w http.ResponseWriter, req *http.Request) error {
	m, err := r.session(req)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, newStateView(m.State()))
}

// DELETE /v1/sessions/{id}
func (r *Router) handleClose(w http.ResponseWriter, req *http.Request) error {
	m, err := r.session(req)
	if err != nil {
		return err
	}
	if err := r.sessions.Close(req.Context(), m.ID()); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// POST /v1/sessions/{id}/file
// Body: multipart/form-data with the image in field "file".
func (r *Router) handleSelectFile(w http.ResponseWriter, req *http.Request) error {
	m, err := r.session(req)
	if err != nil {
		return err
	}

	req.Body = http.MaxBytesReader(w, req.Body, r.maxUploadBytes)
	file, header, err := req.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return &domain.InvalidInputError{Reason: "multipart field \"file\" is required"}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	sel, err := m.SelectFile(domain.Payload{
		FileName:  middleware.SanitizeFileName(header.Filename),
		MediaType: header.Header.Get("Content-Type"),
		Data:      data,
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, appsession.RequestInfo{
		ID:        sel.ID,
		FileName:  sel.FileName,
		MediaType: sel.MediaType,
		Size:      sel.Size,
	})
}

// POST /v1/sessions/{id}/health
func (r *Router) handleCheckHealth(w http.ResponseWriter, req *http.Request) error {
	m, err := r.session(req)
	if err != nil {
		return err
	}
	m.CheckServiceHealth(req.Context())
	st := m.State()
	return writeJSON(w, http.StatusOK, map[string]any{
		"service_status": st.ServiceStatus,
		"checked_at":     st.CheckedAt,
	})
}

// POST /v1/sessions/{id}/submit
// Body (optional): {"request_id": <id>} to submit a specific selection.
func (r *Router) handleSubmit(w http.ResponseWriter, req *http.Request) error {
	m, err := r.session(req)
	if err != nil {
		return err
	}

	var body struct {
		RequestID uint64 `json:"request_id"`
	}
	if req.ContentLength != 0 {
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return &domain.InvalidInputError{Reason: "invalid JSON body"}
		}
	}

	var out *appsession.Outcome
	if body.RequestID != 0 {
		out, err = m.Submit(req.Context(), &domain.Request{ID: body.RequestID})
	} else {
		out, err = m.SubmitPending(req.Context())
	}
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, newOutcomeView(out))
}

// GET /v1/sessions/{id}/history
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	m, err := r.session(req)
	if err != nil {
		return err
	}
	entries := m.LoadHistory(req.Context())
	views := make([]entryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, newEntryView(e))
	}
	return writeJSON(w, http.StatusOK, views)
}

// GET /v1/sessions/{id}/stats
func (r *Router) handleStats(w http.ResponseWriter, req *http.Request) error {
	m, err := r.session(req)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, m.Stats(req.Context()))
}

// GET /v1/sessions/{id}/report
func (r *Router) handleReport(w http.ResponseWriter, req *http.Request) error {
	m, err := r.session(req)
	if err != nil {
		return err
	}
	name, body, err := m.ExportReport(req.Context())
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	_, err = w.Write(body)
	return err
}

func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}
