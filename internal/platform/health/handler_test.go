package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h *Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	h.Register(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestReadiness(t *testing.T) {
	h := New("test", nil)
	h.RegisterCheck("postgres", func(context.Context) error { return nil })

	rec := serve(t, h, "/health/ready")
	require.Equal(t, http.StatusOK, rec.Code)

	h.RegisterCheck("redis", func(context.Context) error { return errors.New("dial tcp: refused") })
	rec = serve(t, h, "/health/ready")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body.Status)
	assert.Equal(t, "up", body.Checks["postgres"])
	assert.Equal(t, "down", body.Checks["redis"])
	assert.NotContains(t, rec.Body.String(), "refused")
}

func TestLivenessAndStatus(t *testing.T) {
	h := New("test", nil)
	assert.Equal(t, http.StatusOK, serve(t, h, "/health/live").Code)

	rec := serve(t, h, "/health")
	var body StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "test", body.Environment)
	assert.Equal(t, "dev", body.Version)
}
