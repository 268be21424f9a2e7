package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

var healthy = pingerFunc(func(context.Context) error { return nil })

func TestLiveness(t *testing.T) {
	h := NewHealthHandler(nil, nil)

	rr := httptest.NewRecorder()
	h.Liveness(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestReadiness(t *testing.T) {
	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name      string
		db        Pinger
		cache     Pinger
		wantCode  int
		wantError string
		wantBody  map[string]string
	}{
		{
			name:     "all dependencies up",
			db:       healthy,
			cache:    healthy,
			wantCode: http.StatusOK,
			wantBody: map[string]string{"status": "ready", "postgres": "ok", "redis": "ok"},
		},
		{
			name:     "no cache configured",
			db:       healthy,
			wantCode: http.StatusOK,
			wantBody: map[string]string{"status": "ready", "postgres": "ok"},
		},
		{
			name:      "postgres down",
			db:        down,
			cache:     healthy,
			wantCode:  http.StatusServiceUnavailable,
			wantError: "postgres unhealthy",
		},
		{
			name:      "redis down",
			db:        healthy,
			cache:     down,
			wantCode:  http.StatusServiceUnavailable,
			wantError: "redis unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.db, tt.cache)

			rr := httptest.NewRecorder()
			h.Readiness(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))

			require.Equal(t, tt.wantCode, rr.Code)

			if tt.wantError != "" {
				var resp ErrorResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
				assert.Equal(t, tt.wantError, resp.Error)
				assert.Equal(t, "connection refused", resp.Message)
				return
			}

			var body map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.wantBody, body)
		})
	}
}
