package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (p *stubPinger) Ping(ctx context.Context) error { return p.err }

func healthResponse(t *testing.T, db, cache Pinger) (int, map[string]any) {
	t.Helper()
	h := NewHealthHandler(db, cache, slog.New(slog.NewTextHandler(io.Discard, nil)))
	rr := httptest.NewRecorder()
	h.HealthCheck(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return rr.Code, body
}

func TestHealthCheckAllDependenciesUp(t *testing.T) {
	code, body := healthResponse(t, &stubPinger{}, &stubPinger{})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	deps := body["dependencies"].(map[string]any)
	assert.Equal(t, "ok", deps["database"])
	assert.Equal(t, "ok", deps["redis"])
}

func TestHealthCheckDegradedWhenDependencyDown(t *testing.T) {
	code, body := healthResponse(t, &stubPinger{err: errors.New("connection refused")}, &stubPinger{})
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", body["status"])

	deps := body["dependencies"].(map[string]any)
	assert.Equal(t, "down", deps["database"])
	assert.Equal(t, "ok", deps["redis"])
}

func TestHealthCheckSkipsNilDependencies(t *testing.T) {
	code, body := healthResponse(t, &stubPinger{}, nil)
	assert.Equal(t, http.StatusOK, code)

	deps := body["dependencies"].(map[string]any)
	assert.Equal(t, "skipped", deps["redis"])
}
