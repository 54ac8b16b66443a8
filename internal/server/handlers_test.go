package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oblom298-png/mellcazik/internal/config"
	"github.com/oblom298-png/mellcazik/internal/hub"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{
		Port:           "0",
		StaticDir:      t.TempDir(),
		MaxConnections: 100,
		ChatRateLimit:  6,
		WinAmountCap:   1_000_000,
	}
	h := hub.NewHub(hub.Options{
		MaxConnections: cfg.MaxConnections,
		ChatRateLimit:  cfg.ChatRateLimit,
		WinAmountCap:   cfg.WinAmountCap,
	}, clockwork.NewRealClock())
	t.Cleanup(h.Stop)

	return NewServer(cfg, h)
}

func invoke(t *testing.T, srv *Server, path string, handler echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)
	require.NoError(t, handler(c))
	return rec
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)
	rec := invoke(t, srv, "/healthz", srv.handleHealth)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(0), body["connections"])
	assert.Equal(t, float64(100), body["maxConnections"])
	assert.Contains(t, body, "uptime")
	assert.Contains(t, body, "chatHistory")
	assert.Contains(t, body, "winHistory")
}

func TestHandleOnlineCount(t *testing.T) {
	srv := newTestServer(t)
	rec := invoke(t, srv, "/api/online", srv.handleOnlineCount)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count": 0}`, rec.Body.String())
}

func TestHandleRecentWins_EmptyIsArray(t *testing.T) {
	srv := newTestServer(t)
	rec := invoke(t, srv, "/api/wins", srv.handleRecentWins)

	require.Equal(t, http.StatusOK, rec.Code)
	// An empty history must serialize as [], not null.
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCheckSameOrigin(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		host   string
		want   bool
	}{
		{"no origin header", "", "example.com", true},
		{"matching host", "http://example.com", "example.com", true},
		{"matching host with port", "http://example.com:8080", "example.com:8080", true},
		{"foreign host", "http://evil.example.net", "example.com", false},
		{"unparseable origin", "://bad", "example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			req.Host = tt.host
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, checkSameOrigin(req))
		})
	}
}

func TestExtractIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.RemoteAddr = "10.1.2.3:54321"
	assert.Equal(t, "10.1.2.3", extractIP(req))

	req.RemoteAddr = "10.1.2.3"
	assert.Equal(t, "10.1.2.3", extractIP(req))
}
