package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "firmgate/pkg/domain-errors"
)

type renameRequest struct {
	Name string `json:"name"`
}

func (r *renameRequest) Normalize() { r.Name = strings.TrimSpace(r.Name) }

func (r *renameRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

type lookupRequest struct {
	FirmID string `json:"firm_id"`
}

func (r *lookupRequest) Validate() error {
	if r.FirmID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "firm_id is required")
	}
	return nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("normalizes before validating", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"  Acme  "}`))
		rec := httptest.NewRecorder()

		out, ok := DecodeAndPrepare[renameRequest](rec, req, logger, ctx, "rid")
		require.True(t, ok)
		assert.Equal(t, "Acme", out.Name)
	})

	t.Run("whitespace-only value fails validation", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"   "}`))
		rec := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[renameRequest](rec, req, logger, ctx, "rid")
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "validation_error", decodeBody(t, rec).Error)
	})

	t.Run("domain error code is preserved", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[lookupRequest](rec, req, logger, ctx, "rid")
		require.False(t, ok)
		resp := decodeBody(t, rec)
		assert.Equal(t, "bad_request", resp.Error)
		assert.Equal(t, "firm_id is required", resp.ErrorDescription)
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{nope`))
		rec := httptest.NewRecorder()

		_, ok := DecodeJSON[renameRequest](rec, req, logger, ctx, "rid")
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("oversized body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"`+strings.Repeat("a", 64)+`"}`))
		req.Body = http.MaxBytesReader(rec, req.Body, 16)

		_, ok := DecodeJSON[renameRequest](rec, req, logger, ctx, "rid")
		require.False(t, ok)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}
