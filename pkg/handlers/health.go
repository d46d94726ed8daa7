package handlers

import (
	"net/http"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/asistentebi/bi-engine/pkg/config"
)

// ReadinessReporter reports which lazily created clients exist. Implemented by services.ServiceContext.
type ReadinessReporter interface {
	Ready() (model, store bool)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// PingResponse contains service status and version information.
type PingResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Service     string `json:"service"`
	GoVersion   string `json:"go_version"`
	Hostname    string `json:"hostname"`
	Environment string `json:"environment"`
	Mode        string `json:"mode"`
	Dialect     string `json:"dialect"`
	ModelReady  bool   `json:"model_ready"`
	StoreReady  bool   `json:"store_ready"`
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg       *config.Config
	readiness ReadinessReporter
	logger    *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. readiness may be nil.
func NewHealthHandler(cfg *config.Config, readiness ReadinessReporter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, readiness: readiness, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
}

// Health handles GET /health requests. It never touches the model or the store.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok"}); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}

// Ping handles GET /ping requests.
// Returns detailed service information including version and environment.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     h.cfg.AppName,
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
		Mode:        h.cfg.Assistant.Mode,
		Dialect:     h.cfg.Database.Type,
	}
	if h.readiness != nil {
		response.ModelReady, response.StoreReady = h.readiness.Ready()
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
