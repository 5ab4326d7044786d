package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Envelope is the decoded form of every API response
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code      string           `json:"code"`
		Message   string           `json:"message"`
		RequestID string           `json:"request_id"`
		Details   map[string]any   `json:"details"`
		Fields    []map[string]any `json:"fields"`
	} `json:"error"`
	Meta *struct {
		Total      int64 `json:"total"`
		Page       int   `json:"page"`
		PageSize   int   `json:"page_size"`
		TotalPages int   `json:"total_pages"`
	} `json:"meta"`
}

// ActorHeaders returns the development identity headers of actor
func ActorHeaders(actor shared.Actor) map[string]string {
	return map[string]string{
		"X-User-ID":   actor.UserID.String(),
		"X-Tenant-ID": actor.TenantID.String(),
		"X-User-Role": string(actor.Role),
	}
}

// DoJSON sends a request with an optional JSON body to handler
func DoJSON(t *testing.T, handler http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err, "Failed to marshal request body")
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

// DecodeEnvelope parses the response envelope
func DecodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "Failed to parse JSON response: %s", w.Body.String())
	return env
}

// RequireData asserts a successful response with the wanted status and decodes its data into out
func RequireData(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, out any) Envelope {
	t.Helper()
	require.Equal(t, wantStatus, w.Code, "unexpected status, body: %s", w.Body.String())
	env := DecodeEnvelope(t, w)
	require.True(t, env.Success, "expected success, body: %s", w.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out), "Failed to decode data")
	}
	return env
}

// AssertErrorCode asserts an error response with the wanted status and code
func AssertErrorCode(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, wantCode string) Envelope {
	t.Helper()
	assert.Equal(t, wantStatus, w.Code, "unexpected status, body: %s", w.Body.String())
	env := DecodeEnvelope(t, w)
	assert.False(t, env.Success)
	if assert.NotNil(t, env.Error, "expected an error object") {
		assert.Equal(t, wantCode, env.Error.Code)
	}
	return env
}
