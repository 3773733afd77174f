package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/servermonitor/internal/domain"
	apimw "github.com/hamed0406/servermonitor/internal/httpapi/middleware"
	"github.com/hamed0406/servermonitor/internal/metrics"
	"github.com/hamed0406/servermonitor/internal/monitor"
)

type Server struct {
	Logger  *zap.Logger
	Engine  *monitor.Engine
	Metrics *metrics.Collector
}

func NewServer(l *zap.Logger, e *monitor.Engine, m *metrics.Collector) *Server {
	return &Server{Logger: l, Engine: e, Metrics: m}
}

// Router builds the HTTP surface. An empty origins list allows any origin;
// rpm <= 0 disables rate limiting.
func (s *Server) Router(origins []string, rpm, burst int) http.Handler {
	r := chi.NewRouter()
	if len(origins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         300,
		}))
	}
	r.Use(apimw.AccessLog(s.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", s.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(apimw.RateLimit(rpm, burst))

		r.Get("/targets", s.handleListTargets)
		r.Post("/targets", s.handleAddTarget)
		r.Delete("/targets", s.handleClearTargets)
		r.Get("/targets/{id}", s.handleGetTarget)
		r.Delete("/targets/{id}", s.handleRemoveTarget)
		r.Post("/targets/{id}/probe", s.handleProbe)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleUpdateSettings)

		r.Get("/monitoring", s.handleMonitoringStatus)
		r.Post("/monitoring/start", s.handleStart)
		r.Post("/monitoring/stop", s.handleStop)

		r.Post("/notifications/test", s.handleTestNotification)
	})
	return r
}

type addPayload struct {
	ID string `json:"id"`
}

func (s *Server) handleAddTarget(w http.ResponseWriter, r *http.Request) {
	var p addPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad payload"})
		return
	}
	t, err := s.Engine.AddTarget(r.Context(), p.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.ListTargets())
}

func (s *Server) handleGetTarget(w http.ResponseWriter, r *http.Request) {
	t, ok := s.Engine.Target(chi.URLParam(r, "id"))
	if !ok {
		s.writeError(w, domain.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleRemoveTarget(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.RemoveTarget(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearTargets(w http.ResponseWriter, r *http.Request) {
	n := s.Engine.ClearTargets(r.Context())
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	ch, err := s.Engine.ProbeOnce(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	select {
	case o := <-ch:
		writeJSON(w, http.StatusOK, probeResponse{
			ID:        o.TargetID,
			Reachable: o.Reachable,
			LatencyMS: o.LatencyMS,
			Message:   o.Message,
		})
	case <-r.Context().Done():
	}
}

type probeResponse struct {
	ID        string `json:"id"`
	Reachable bool   `json:"reachable"`
	LatencyMS int    `json:"latency_ms"`
	Message   string `json:"message,omitempty"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.Settings())
}

type settingsPayload struct {
	CheckInterval *int `json:"check_interval"`
	MaxFailures   *int `json:"max_failures"`
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var p settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad payload"})
		return
	}
	cfg := s.Engine.Settings()
	if p.CheckInterval != nil {
		cfg.CheckIntervalSeconds = *p.CheckInterval
	}
	if p.MaxFailures != nil {
		cfg.MaxConsecutiveFailures = *p.MaxFailures
	}
	if err := s.Engine.UpdateSettings(r.Context(), cfg); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Engine.Settings())
}

type monitoringStatus struct {
	Running       bool   `json:"running"`
	Targets       int    `json:"targets"`
	Channel       string `json:"channel"`
	ChannelUsable bool   `json:"channel_usable"`
}

func (s *Server) status() monitoringStatus {
	return monitoringStatus{
		Running:       s.Engine.Monitoring(),
		Targets:       len(s.Engine.ListTargets()),
		Channel:       s.Engine.NotifierName(),
		ChannelUsable: s.Engine.NotifierUsable(),
	}
}

func (s *Server) handleMonitoringStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.StartMonitoring(); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.StopMonitoring(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	ch, err := s.Engine.SendTestNotification(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	select {
	case err := <-ch:
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sent": true, "channel": s.Engine.NotifierName()})
	case <-time.After(30 * time.Second):
		writeJSON(w, http.StatusGatewayTimeout, map[string]string{"error": "notification still pending"})
	case <-r.Context().Done():
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateTarget),
		errors.Is(err, domain.ErrAlreadyRunning),
		errors.Is(err, domain.ErrNotRunning):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidTarget),
		errors.Is(err, domain.ErrInvalidSettings),
		errors.Is(err, domain.ErrNoTargets):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrChannelUnusable):
		return http.StatusPreconditionFailed
	case errors.Is(err, domain.ErrStopTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.Logger.Error("http_error", zap.Error(err))
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
