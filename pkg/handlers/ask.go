package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/asistentebi/bi-engine/pkg/apperrors"
	"github.com/asistentebi/bi-engine/pkg/llm"
	"github.com/asistentebi/bi-engine/pkg/logging"
	"github.com/asistentebi/bi-engine/pkg/models"
	"github.com/asistentebi/bi-engine/pkg/services"
)

// AskHandler serves POST /ask.
type AskHandler struct {
	askService services.AskService
	logger     *zap.Logger
}

// NewAskHandler creates a new ask handler.
func NewAskHandler(askService services.AskService, logger *zap.Logger) *AskHandler {
	return &AskHandler{
		askService: askService,
		logger:     logger,
	}
}

// RegisterRoutes registers the ask handler's routes on the given mux.
func (h *AskHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /ask", h.Ask)
}

// Ask handles POST /ask with body {"prompt": "..."}.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "prompt is required")
		return
	}

	resp, err := h.askService.Ask(r.Context(), req.Prompt)
	if err != nil {
		h.handleAskError(w, r, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *AskHandler) handleAskError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := logging.RequestIDFromContext(r.Context())

	var initErr *services.InitError
	switch {
	case errors.Is(err, apperrors.ErrInvalidRequest):
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())

	case llm.IsQuotaError(err):
		h.logger.Warn("Model quota exceeded",
			zap.String("request_id", requestID),
			zap.Error(err))
		h.writeError(w, http.StatusTooManyRequests, "quota_exceeded", services.QuotaExceededMessage)

	case errors.As(err, &initErr):
		h.logger.Error("Client initialization failed",
			zap.String("request_id", requestID),
			zap.String("component", initErr.Component),
			zap.String("error", logging.SanitizeError(err)))
		h.writeError(w, http.StatusInternalServerError, "initialization_error", logging.SanitizeError(err))

	default:
		h.logger.Error("Ask failed",
			zap.String("request_id", requestID),
			zap.String("error_type", string(llm.GetErrorType(err))),
			zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "ask_failed", err.Error())
	}
}

func (h *AskHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
