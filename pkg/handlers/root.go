package handlers

import (
	"net/http"

	"go.uber.org/zap"
)

// ServiceStatus is the body of GET /.
const ServiceStatus = "Microservicio de BI Online (Gemini Ready)"

// RootHandler serves the service banner and a stub favicon.
type RootHandler struct {
	logger *zap.Logger
}

func NewRootHandler(logger *zap.Logger) *RootHandler {
	return &RootHandler{logger: logger}
}

func (h *RootHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Root)
	mux.HandleFunc("GET /favicon.ico", h.Favicon)
}

func (h *RootHandler) Root(w http.ResponseWriter, r *http.Request) {
	if err := WriteJSON(w, http.StatusOK, map[string]string{
		"status":   ServiceStatus,
		"endpoint": "/ask",
	}); err != nil {
		h.logger.Error("Failed to encode root response", zap.Error(err))
	}
}

// Favicon answers browsers that request an icon so they stop retrying.
func (h *RootHandler) Favicon(w http.ResponseWriter, r *http.Request) {
	if err := WriteJSON(w, http.StatusOK, map[string]string{"status": "no icon"}); err != nil {
		h.logger.Error("Failed to encode favicon response", zap.Error(err))
	}
}
