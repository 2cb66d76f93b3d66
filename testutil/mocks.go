package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// MockYouTubeServer creates a test server that mocks YouTube Data API
// responses, keyed by request path.
type MockYouTubeServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
}

// NewMockYouTubeServer creates a new mock Data API server.
func NewMockYouTubeServer(t *testing.T) *MockYouTubeServer {
	t.Helper()
	m := &MockYouTubeServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/youtube/v3")
		if handler, ok := m.Handlers[path]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// Respond registers a fixed JSON response for a path.
func (m *MockYouTubeServer) Respond(path string, body map[string]any) {
	m.Handlers[path] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body) //nolint:errcheck // test mock response
	}
}

// RespondFunc registers a request-dependent JSON response for a path.
func (m *MockYouTubeServer) RespondFunc(path string, f func(r *http.Request) map[string]any) {
	m.Handlers[path] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(f(r)) //nolint:errcheck // test mock response
	}
}

// MockChannelsResponse adds a handler for the channels.list endpoint
// returning a single channel id.
func (m *MockYouTubeServer) MockChannelsResponse(channelID string) {
	m.Respond("/channels", map[string]any{
		"items": []map[string]any{{"id": channelID}},
	})
}

// MockEmptyChannelsResponse adds a channels.list handler with no items.
func (m *MockYouTubeServer) MockEmptyChannelsResponse() {
	m.Respond("/channels", map[string]any{"items": []map[string]any{}})
}
