package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler_Ready(t *testing.T) {
	tests := []struct {
		name       string
		ready      bool
		checks     map[string]ReadinessCheck
		wantStatus int
		wantFailed []string
	}{
		{
			name:       "ready without checks",
			ready:      true,
			wantStatus: http.StatusOK,
		},
		{
			name:  "passing checks",
			ready: true,
			checks: map[string]ReadinessCheck{
				"redis": func(ctx context.Context) error { return nil },
			},
			wantStatus: http.StatusOK,
		},
		{
			name:  "failing check",
			ready: true,
			checks: map[string]ReadinessCheck{
				"redis":    func(ctx context.Context) error { return nil },
				"postgres": func(ctx context.Context) error { return fmt.Errorf("connection refused") },
			},
			wantStatus: http.StatusServiceUnavailable,
			wantFailed: []string{"postgres"},
		},
		{
			name:       "shutting down",
			ready:      false,
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler()
			h.SetReady(tt.ready)
			for name, check := range tt.checks {
				h.AddCheck(name, check)
			}

			rec := httptest.NewRecorder()
			h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			for _, name := range tt.wantFailed {
				assert.Contains(t, body.Checks, name)
			}
			assert.Len(t, body.Checks, len(tt.wantFailed))
		})
	}
}

func TestHealthHandler_HealthAndLive(t *testing.T) {
	h := NewHealthHandler()

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "phonoecho_service")

	rec = httptest.NewRecorder()
	h.Live(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alive")
}
