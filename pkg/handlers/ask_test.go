package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/asistentebi/bi-engine/pkg/apperrors"
	"github.com/asistentebi/bi-engine/pkg/llm"
	"github.com/asistentebi/bi-engine/pkg/models"
	"github.com/asistentebi/bi-engine/pkg/services"
)

type mockAskService struct {
	resp   *models.AskResponse
	err    error
	prompt string
	calls  int
}

func (m *mockAskService) Ask(_ context.Context, prompt string) (*models.AskResponse, error) {
	m.calls++
	m.prompt = prompt
	return m.resp, m.err
}

func serveAsk(t *testing.T, svc services.AskService, body string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	NewAskHandler(svc, zap.NewNop()).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestAskHandler_Success(t *testing.T) {
	valid := true
	svc := &mockAskService{resp: &models.AskResponse{
		Metadata: models.AskMetadata{
			Question:       "ventas por categoría",
			SuggestedChart: models.ChartBar,
			ValidQuery:     &valid,
			Columns:        []string{"categoria", "total"},
		},
		Data: []models.Row{
			{"categoria": "Electrónica", "total": 2500.0},
			{"categoria": "Hogar", "total": 800.0},
		},
		Status: models.StatusSuccess,
	}}

	rec := serveAsk(t, svc, `{"prompt":"ventas por categoría"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ventas por categoría", svc.prompt)
	assert.JSONEq(t, `{
		"metadata": {
			"question": "ventas por categoría",
			"suggested_chart": "bar",
			"valid_query": true,
			"columns": ["categoria", "total"]
		},
		"data": [
			{"categoria": "Electrónica", "total": 2500},
			{"categoria": "Hogar", "total": 800}
		],
		"status": "success"
	}`, rec.Body.String())
}

func TestAskHandler_EmptyDataSerializesAsArray(t *testing.T) {
	invalid := false
	svc := &mockAskService{resp: &models.AskResponse{
		Metadata: models.AskMetadata{Question: "x", SuggestedChart: models.ChartTable, ValidQuery: &invalid},
		Data:     []models.Row{},
		Answer:   services.RejectedAnswer,
		Status:   models.StatusSuccess,
	}}

	rec := serveAsk(t, svc, `{"prompt":"x"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
	assert.Contains(t, rec.Body.String(), `"valid_query":false`)
}

func TestAskHandler_BadRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed JSON", `{"prompt":`},
		{"empty body", ``},
		{"missing prompt", `{}`},
		{"blank prompt", `{"prompt":"   "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAskService{}
			rec := serveAsk(t, svc, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "invalid_request", decodeError(t, rec)["error"])
			assert.Equal(t, 0, svc.calls)
		})
	}
}

func TestAskHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{
			name:        "quota",
			err:         llm.NewError(llm.ErrorTypeQuota, "quota exceeded", true, errors.New("HTTP 429")),
			wantStatus:  http.StatusTooManyRequests,
			wantCode:    "quota_exceeded",
			wantMessage: services.QuotaExceededMessage,
		},
		{
			name:        "wrapped quota",
			err:         fmt.Errorf("retry turn: %w", llm.NewError(llm.ErrorTypeQuota, "rate limited", true, nil)),
			wantStatus:  http.StatusTooManyRequests,
			wantCode:    "quota_exceeded",
			wantMessage: services.QuotaExceededMessage,
		},
		{
			name:        "initialization",
			err:         &services.InitError{Component: "store", Err: errors.New("connection refused")},
			wantStatus:  http.StatusInternalServerError,
			wantCode:    "initialization_error",
			wantMessage: "Error de inicialización: store: connection refused",
		},
		{
			name:        "other model failure",
			err:         llm.NewError(llm.ErrorTypeAuth, "invalid api key", false, nil),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    "ask_failed",
			wantMessage: "auth invalid api key",
		},
		{
			name:        "invalid request from service",
			err:         fmt.Errorf("%w: prompt is required", apperrors.ErrInvalidRequest),
			wantStatus:  http.StatusBadRequest,
			wantCode:    "invalid_request",
			wantMessage: "invalid request: prompt is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveAsk(t, &mockAskService{err: tt.err}, `{"prompt":"ventas por región"}`)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, body["error"])
			assert.Equal(t, tt.wantMessage, body["message"])
		})
	}
}

func TestAskHandler_MethodNotAllowed(t *testing.T) {
	mux := http.NewServeMux()
	NewAskHandler(&mockAskService{}, zap.NewNop()).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ask", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
