package server

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	apperrors "github.com/oblom298-png/mellcazik/internal/errors"
	"github.com/oblom298-png/mellcazik/internal/hub"
	"github.com/oblom298-png/mellcazik/internal/metrics"
	"github.com/oblom298-png/mellcazik/internal/protocol"
)

// maxFrameBytes caps the size of inbound frames; anything larger kills the
// read with an error and the connection is removed.
const maxFrameBytes = 8192

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkSameOrigin,
}

// checkSameOrigin allows empty origins (non-browser clients) and requests
// whose origin host matches the request host.
func checkSameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Host == r.Host {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
	return false
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) handleWebSocket(c echo.Context) error {
	ip := extractIP(c.Request())

	ok, reason := s.limits.Acquire(ip)
	if !ok {
		metrics.ConnectionsRejected.WithLabelValues(string(reason)).Inc()
		if reason == LimitReasonRate {
			return apperrors.TooManyRequestsError("too many connection attempts").WithContext("remote_addr", ip)
		}
		return apperrors.UnavailableError("too many connections").WithContext("remote_addr", ip)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.limits.Release(ip)
		slog.Warn("WebSocket upgrade failed", "remote_addr", ip, "error", err)
		return nil
	}
	defer s.limits.Release(ip)

	conn.SetReadLimit(maxFrameBytes)

	if err := s.hub.Register(conn, ip); err != nil {
		// Connection already closed by the hub with a close reason.
		if !errors.Is(err, hub.ErrServerFull) {
			slog.Error("Hub register failed", "remote_addr", ip, "error", err)
		}
		return nil
	}

	// Read pump: blocks until the client disconnects or the read deadline
	// (refreshed by heartbeat pongs) expires.
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("WebSocket read ended", "remote_addr", ip, "error", err)
			}
			break
		}
		s.hub.Dispatch(conn, data)
	}

	s.hub.Unregister(conn)
	return nil
}

func (s *Server) handleRecentWins(c echo.Context) error {
	wins := s.hub.RecentWins()
	if wins == nil {
		wins = []protocol.WinMessage{}
	}
	return c.JSON(http.StatusOK, wins)
}

func (s *Server) handleOnlineCount(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]int{"count": s.hub.OnlineCount()})
}

func (s *Server) handleHealth(c echo.Context) error {
	stats := s.hub.Stats()
	return c.JSON(http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime":         time.Since(s.startTime).Seconds(),
		"connections":    stats.Connections,
		"registered":     stats.Registered,
		"chatHistory":    stats.ChatHistory,
		"winHistory":     stats.WinHistory,
		"maxConnections": s.config.MaxConnections,
	})
}
