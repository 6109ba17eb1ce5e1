package cluster

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPostJSON tests the PostJSON function with various scenarios
func TestPostJSON(t *testing.T) {
	tests := []struct {
		name           string
		serverBody     string
		requestBody    any
		responseBody   any
		wantMessage    string
		serverResponse int
		wantStatus     int
		expectError    bool
		contextTimeout bool
	}{
		{
			name:           "successful POST with response",
			serverResponse: http.StatusOK,
			serverBody:     `{"status":"ok"}`,
			requestBody:    map[string]string{"test": "data"},
			responseBody:   &map[string]string{},
		},
		{
			name:           "successful POST without response body",
			serverResponse: http.StatusNoContent,
			requestBody:    map[string]string{"test": "data"},
		},
		{
			name:           "server error carries message",
			serverResponse: http.StatusInternalServerError,
			serverBody:     `{"error":"internal error"}`,
			requestBody:    map[string]string{"test": "data"},
			expectError:    true,
			wantStatus:     http.StatusInternalServerError,
			wantMessage:    "internal error",
		},
		{
			name:           "bad request without JSON body",
			serverResponse: http.StatusBadRequest,
			serverBody:     `nope`,
			requestBody:    map[string]string{"test": "data"},
			expectError:    true,
			wantStatus:     http.StatusBadRequest,
		},
		{
			name:           "context timeout",
			serverResponse: http.StatusOK,
			serverBody:     `{"status":"ok"}`,
			requestBody:    map[string]string{"test": "data"},
			expectError:    true,
			contextTimeout: true,
		},
		{
			name:           "unmarshalable request body",
			serverResponse: http.StatusOK,
			requestBody:    make(chan int),
			expectError:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				if tt.contextTimeout {
					time.Sleep(100 * time.Millisecond)
				}
				w.WriteHeader(tt.serverResponse)
				if tt.serverBody != "" {
					_, _ = w.Write([]byte(tt.serverBody))
				}
			}))
			defer server.Close()

			ctx := context.Background()
			if tt.contextTimeout {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, time.Millisecond)
				defer cancel()
			}

			err := PostJSON(ctx, nil, server.URL, tt.requestBody, tt.responseBody)
			if !tt.expectError {
				require.NoError(t, err)
				if tt.responseBody != nil {
					assert.Equal(t, "ok", (*tt.responseBody.(*map[string]string))["status"])
				}
				return
			}
			require.Error(t, err)
			if tt.wantStatus != 0 {
				var herr *HTTPError
				require.ErrorAs(t, err, &herr)
				assert.Equal(t, tt.wantStatus, herr.StatusCode)
				assert.Equal(t, tt.wantMessage, herr.Message)
			}
		})
	}
}

// TestPutJSON verifies the method and body of a PUT.
func TestPutJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_ = json.NewEncoder(w).Encode(body)
	}))
	defer server.Close()

	var out map[string]string
	require.NoError(t, PutJSON(context.Background(), server.Client(), server.URL, map[string]string{"userId": "u1"}, &out))
	assert.Equal(t, "u1", out["userId"])
}

// TestGetJSON tests GetJSON success and failure paths.
func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		case "/garbage":
			_, _ = w.Write([]byte(`{not json`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Endpoint not found"}`))
		}
	}))
	defer server.Close()

	var out map[string]string
	require.NoError(t, GetJSON(context.Background(), nil, server.URL+"/ok", &out))
	assert.Equal(t, "ok", out["status"])

	assert.Error(t, GetJSON(context.Background(), nil, server.URL+"/garbage", &out))

	err := GetJSON(context.Background(), nil, server.URL+"/missing", &out)
	var herr *HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, http.StatusNotFound, herr.StatusCode)
	assert.Contains(t, err.Error(), "Endpoint not found")
}

// TestInvalidURL verifies malformed URLs fail before any request is sent.
func TestInvalidURL(t *testing.T) {
	ctx := context.Background()
	assert.Error(t, PostJSON(ctx, nil, "://invalid-url", map[string]string{}, nil))
	assert.Error(t, GetJSON(ctx, nil, "://invalid-url", nil))
}

// TestDefaultHTTPClient verifies the shared client has a timeout.
func TestDefaultHTTPClient(t *testing.T) {
	assert.Equal(t, 5*time.Second, defaultHTTPClient.Timeout)
}
