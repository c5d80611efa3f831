package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"verichain/pkg/domain"
	dErrors "verichain/pkg/domain-errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRequest is a simple test struct for JSON decoding
type testRequest struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type addressRequest struct {
	Owner domain.Address `json:"owner"`
}

// validatingRequest implements Validatable
type validatingRequest struct {
	Name string `json:"name"`
}

func (r *validatingRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

// fullRequest implements all preparation interfaces
type fullRequest struct {
	Name      string `json:"name"`
	sanitized bool
	validated bool
}

func (r *fullRequest) Sanitize() {
	r.sanitized = true
}

func (r *fullRequest) Normalize() {
	// no-op for testing
}

func (r *fullRequest) Validate() error {
	r.validated = true
	if r.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func TestDecodeJSON(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	ctx := context.Background()

	t.Run("successful decode", func(t *testing.T) {
		body := `{"name":"test","value":42}`
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
		w := httptest.NewRecorder()

		result, ok := DecodeJSON[testRequest](w, req, logger, ctx, "test-request-id")

		assert.True(t, ok)
		require.NotNil(t, result)
		assert.Equal(t, "test", result.Name)
		assert.Equal(t, 42, result.Value)
	})

	t.Run("invalid JSON returns error", func(t *testing.T) {
		body := `{invalid json}`
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
		w := httptest.NewRecorder()

		result, ok := DecodeJSON[testRequest](w, req, logger, ctx, "test-request-id")

		assert.False(t, ok)
		assert.Nil(t, result)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var errResp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
		assert.Equal(t, dErrors.CodeInvalidInput, errResp.Kind)
		assert.Equal(t, "invalid request body", errResp.Message)
	})

	t.Run("oversized body is reported as invalid input", func(t *testing.T) {
		body := `{"name":"` + strings.Repeat("a", 64) + `"}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
		req.Body = http.MaxBytesReader(w, req.Body, 16)

		_, ok := DecodeJSON[testRequest](w, req, logger, ctx, "test-request-id")

		assert.False(t, ok)
		var errResp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
		assert.Equal(t, "request body too large", errResp.Message)
	})

	t.Run("field decoder errors keep their code", func(t *testing.T) {
		body := `{"owner":"0x1234"}`
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
		w := httptest.NewRecorder()

		_, ok := DecodeJSON[addressRequest](w, req, logger, ctx, "test-request-id")

		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		var errResp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
		assert.Equal(t, dErrors.CodeInvalidAddress, errResp.Kind)
	})

	t.Run("empty body returns error", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(""))
		w := httptest.NewRecorder()

		result, ok := DecodeJSON[testRequest](w, req, logger, ctx, "test-request-id")

		assert.False(t, ok)
		assert.Nil(t, result)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	ctx := context.Background()

	t.Run("successful decode and validate", func(t *testing.T) {
		body := `{"name":"test"}`
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
		w := httptest.NewRecorder()

		result, ok := DecodeAndPrepare[validatingRequest](w, req, logger, ctx, "test-request-id")

		assert.True(t, ok)
		require.NotNil(t, result)
		assert.Equal(t, "test", result.Name)
	})

	t.Run("validation failure returns error", func(t *testing.T) {
		body := `{"name":""}`
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
		w := httptest.NewRecorder()

		result, ok := DecodeAndPrepare[validatingRequest](w, req, logger, ctx, "test-request-id")

		assert.False(t, ok)
		assert.Nil(t, result)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var errResp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
		assert.Contains(t, errResp.Message, "name is required")
	})

	t.Run("calls all preparation methods", func(t *testing.T) {
		body := `{"name":"test"}`
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
		w := httptest.NewRecorder()

		result, ok := DecodeAndPrepare[fullRequest](w, req, logger, ctx, "test-request-id")

		assert.True(t, ok)
		require.NotNil(t, result)
		assert.True(t, result.sanitized, "Sanitize() should have been called")
		assert.True(t, result.validated, "Validate() should have been called")
	})
}

func TestPrepareRequest(t *testing.T) {
	t.Run("calls validation", func(t *testing.T) {
		req := &validatingRequest{Name: "test"}
		err := PrepareRequest(req)
		assert.NoError(t, err)
	})

	t.Run("returns validation error", func(t *testing.T) {
		req := &validatingRequest{Name: ""}
		err := PrepareRequest(req)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "name is required")
	})

	t.Run("handles non-validatable types", func(t *testing.T) {
		req := &testRequest{Name: "test"}
		err := PrepareRequest(req)
		assert.NoError(t, err)
	})
}

// domainErrorRequest returns a domain error from Validate()
type domainErrorRequest struct {
	ID string `json:"id"`
}

func (r *domainErrorRequest) Validate() error {
	if r.ID == "" {
		return dErrors.New(dErrors.CodeInvalidIdentifier, "id is required")
	}
	return nil
}

func TestDecodeAndPrepare_PreservesDomainError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	ctx := context.Background()

	t.Run("preserves domain error code from Validate", func(t *testing.T) {
		body := `{"id":""}`
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
		w := httptest.NewRecorder()

		result, ok := DecodeAndPrepare[domainErrorRequest](w, req, logger, ctx, "test-request-id")

		assert.False(t, ok)
		assert.Nil(t, result)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var errResp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
		assert.Equal(t, dErrors.CodeInvalidIdentifier, errResp.Kind)
		assert.Contains(t, errResp.Message, "id is required")
	})

	t.Run("wraps plain error with validation code", func(t *testing.T) {
		body := `{"name":""}`
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
		w := httptest.NewRecorder()

		result, ok := DecodeAndPrepare[validatingRequest](w, req, logger, ctx, "test-request-id")

		assert.False(t, ok)
		assert.Nil(t, result)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var errResp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
		assert.Equal(t, dErrors.CodeValidation, errResp.Kind)
	})
}
