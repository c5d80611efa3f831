package request

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verichain/pkg/platform/httputil"
)

type issuePayload struct {
	Title string `json:"title"`
}

func decodeHandler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, ok := httputil.DecodeJSON[issuePayload](w, r, slog.New(slog.DiscardHandler), r.Context(), "req-1")
		if !ok {
			return
		}
		httputil.WriteJSON(w, http.StatusOK, req)
	})
}

func TestBodyLimit(t *testing.T) {
	t.Run("payload within the cap decodes", func(t *testing.T) {
		body := `{"title":"Distributed Systems"}`
		handler := BodyLimit(int64(len(body)))(decodeHandler(t))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/credentials", strings.NewReader(body)))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Distributed Systems")
	})

	t.Run("oversized payload is rejected as invalid input", func(t *testing.T) {
		body := `{"title":"` + strings.Repeat("x", 512) + `"}`
		handler := BodyLimit(64)(decodeHandler(t))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/credentials", strings.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var envelope map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
		assert.Equal(t, "invalid_input", envelope["kind"])
		assert.Equal(t, "request body too large", envelope["message"])
	})

	t.Run("requests without a body pass through", func(t *testing.T) {
		var called bool
		handler := BodyLimit(16)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusNoContent)
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/credentials/7", nil))

		assert.True(t, called)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}
