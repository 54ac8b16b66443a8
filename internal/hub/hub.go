package hub

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/oblom298-png/mellcazik/internal/history"
	"github.com/oblom298-png/mellcazik/internal/metrics"
	"github.com/oblom298-png/mellcazik/internal/protocol"
	"github.com/oblom298-png/mellcazik/internal/ratelimit"
	"github.com/oblom298-png/mellcazik/internal/sanitize"
)

const (
	commandTimeout = 5 * time.Second
	stopTimeout    = 5 * time.Second

	chatHistoryCap   = 40
	winHistoryCap    = 50
	chatSnapshotSize = 25
	winSnapshotSize  = 15
	trimFloor        = 20

	chatMaxLen      = 200
	gameMaxLen      = 40
	bigWinThreshold = 500

	chatRateWindow = 10 * time.Second

	debounceDelay     = 500 * time.Millisecond
	heartbeatInterval = 20 * time.Second // below typical 30s proxy idle cutoffs
	sweepInterval     = 60 * time.Second
	watchdogInterval  = 30 * time.Second

	// Heap size above which the watchdog trims both history buffers.
	heapTrimThreshold = 380 << 20

	closeServerFull = websocket.CloseTryAgainLater
)

// ErrServerFull is returned by Register when the connection cap is reached.
var ErrServerFull = errors.New("server full")

// Options configures the hub's policy knobs. Zero values fall back to the
// hardened defaults.
type Options struct {
	MaxConnections int
	ChatRateLimit  int
	WinAmountCap   int64
}

func (o Options) withDefaults() Options {
	if o.MaxConnections <= 0 {
		o.MaxConnections = 500
	}
	if o.ChatRateLimit <= 0 {
		o.ChatRateLimit = 6
	}
	if o.WinAmountCap <= 0 {
		o.WinAmountCap = 1_000_000
	}
	return o
}

// Stats is a point-in-time snapshot for the diagnostics endpoint.
type Stats struct {
	Connections int `json:"connections"`
	Registered  int `json:"registered"`
	ChatHistory int `json:"chatHistory"`
	WinHistory  int `json:"winHistory"`
}

// --- Commands ---

type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type registerCmd struct {
	baseHubCmd
	connection   *websocket.Conn
	remoteAddr   string
	errorChannel chan error
}

type unregisterCmd struct {
	baseHubCmd
	connection *websocket.Conn
}

type inboundCmd struct {
	baseHubCmd
	connection *websocket.Conn
	data       []byte
}

type pongCmd struct {
	baseHubCmd
	connection *websocket.Conn
}

type onlineCountCmd struct {
	baseHubCmd
	replyChannel chan int
}

type recentWinsCmd struct {
	baseHubCmd
	replyChannel chan []protocol.WinMessage
}

type statsCmd struct {
	baseHubCmd
	replyChannel chan Stats
}

type stopCmd struct {
	baseHubCmd
}

// Hub is the connection registry and broadcast engine. A single goroutine
// owns the session map, both history buffers, and the debounce state;
// everything reaches it through the command channel.
type Hub struct {
	cmdCh    chan hubCmd
	clock    clockwork.Clock
	opts     Options
	done     chan struct{}

	sessions  map[*websocket.Conn]*session
	nicknames map[string]*session // lowercased nickname -> registered session
	chatLog   *history.Buffer[protocol.ChatMessage]
	winLog    *history.Buffer[protocol.WinMessage]
	limiter   *ratelimit.Limiter

	debounceTimer   clockwork.Timer
	debounceChannel <-chan time.Time
}

// NewHub creates the hub and starts its actor goroutine.
func NewHub(opts Options, clock clockwork.Clock) *Hub {
	opts = opts.withDefaults()
	h := &Hub{
		cmdCh:     make(chan hubCmd, 256),
		clock:     clock,
		opts:      opts,
		done:      make(chan struct{}),
		sessions:  make(map[*websocket.Conn]*session),
		nicknames: make(map[string]*session),
		chatLog:   history.NewBuffer[protocol.ChatMessage](chatHistoryCap),
		winLog:    history.NewBuffer[protocol.WinMessage](winHistoryCap),
		limiter:   ratelimit.New(clock, chatRateWindow, opts.ChatRateLimit),
	}
	go h.run()
	return h
}

// --- Public API ---

// Register admits a connection. When the connection cap is reached the
// connection is closed with a "server full" close frame and ErrServerFull
// is returned. On success the client has already been sent its init frame.
func (h *Hub) Register(conn *websocket.Conn, remoteAddr string) error {
	errCh := make(chan error, 1)
	h.cmdCh <- registerCmd{connection: conn, remoteAddr: remoteAddr, errorChannel: errCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.Chan():
		return fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// Unregister removes a connection. Safe to call for connections the hub has
// already evicted.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.cmdCh <- unregisterCmd{connection: conn}
}

// Dispatch hands one raw inbound frame to the hub.
func (h *Hub) Dispatch(conn *websocket.Conn, data []byte) {
	h.cmdCh <- inboundCmd{connection: conn, data: data}
}

// OnlineCount returns the number of open connections, or -1 on timeout.
func (h *Hub) OnlineCount() int {
	replyCh := make(chan int, 1)
	h.cmdCh <- onlineCountCmd{replyChannel: replyCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("OnlineCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// RecentWins returns the most recent win entries in chronological order.
func (h *Hub) RecentWins() []protocol.WinMessage {
	replyCh := make(chan []protocol.WinMessage, 1)
	h.cmdCh <- recentWinsCmd{replyChannel: replyCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case wins := <-replyCh:
		return wins
	case <-timer.Chan():
		slog.Warn("RecentWins timed out", "timeout", commandTimeout)
		return nil
	}
}

// Stats returns a diagnostics snapshot.
func (h *Hub) Stats() Stats {
	replyCh := make(chan Stats, 1)
	h.cmdCh <- statsCmd{replyChannel: replyCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case stats := <-replyCh:
		return stats
	case <-timer.Chan():
		slog.Warn("Stats timed out", "timeout", commandTimeout)
		return Stats{}
	}
}

// Stop shuts the hub down, notifying all clients and waiting for the actor
// goroutine to exit within the grace period.
func (h *Hub) Stop() {
	h.cmdCh <- stopCmd{}

	timer := h.clock.NewTimer(stopTimeout)
	defer timer.Stop()

	select {
	case <-h.done:
		slog.Info("Hub stopped gracefully")
	case <-timer.Chan():
		slog.Warn("Hub stop grace period exceeded, forcing exit", "timeout", stopTimeout)
	}
}

// --- Actor loop ---

func (h *Hub) run() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Hub panic recovered", "panic", r)
			metrics.HubPanicsTotal.Inc()
			h.closeAll(websocket.CloseInternalServerErr, "internal error")
			close(h.done)
		}
	}()

	heartbeat := h.clock.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	sweep := h.clock.NewTicker(sweepInterval)
	defer sweep.Stop()

	watchdog := h.clock.NewTicker(watchdogInterval)
	defer watchdog.Stop()

	gauges := h.clock.NewTicker(1 * time.Second)
	defer gauges.Stop()

	for {
		select {
		case cmd := <-h.cmdCh:
			switch c := cmd.(type) {
			case registerCmd:
				h.handleRegister(c)
			case unregisterCmd:
				h.removeSession(c.connection)
			case inboundCmd:
				h.handleInbound(c.connection, c.data)
			case pongCmd:
				if sess, ok := h.sessions[c.connection]; ok {
					sess.alive = true
				}
			case onlineCountCmd:
				c.replyChannel <- len(h.sessions)
			case recentWinsCmd:
				c.replyChannel <- h.winLog.Snapshot(winSnapshotSize)
			case statsCmd:
				c.replyChannel <- h.snapshotStats()
			case stopCmd:
				h.handleStop()
				close(h.done)
				return
			default:
				slog.Warn("Hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
			}
		case <-h.debounceChannel:
			h.debounceTimer = nil
			h.debounceChannel = nil
			h.broadcast(protocol.OnlineCount{Type: protocol.TypeOnlineCount, Count: len(h.sessions)}, nil)
		case <-heartbeat.Chan():
			h.handleHeartbeat()
		case <-sweep.Chan():
			if removed := h.limiter.Sweep(); removed > 0 {
				slog.Debug("Swept stale rate-limit state", "removed", removed)
			}
		case <-watchdog.Chan():
			h.handleWatchdog()
		case <-gauges.Chan():
			metrics.CommandChannelDepth.Set(float64(len(h.cmdCh)))
			metrics.HistoryBufferSize.WithLabelValues("chat").Set(float64(h.chatLog.Len()))
			metrics.HistoryBufferSize.WithLabelValues("win").Set(float64(h.winLog.Len()))
		}
	}
}

// --- Admission and removal ---

func (h *Hub) handleRegister(c registerCmd) {
	if len(h.sessions) >= h.opts.MaxConnections {
		slog.Warn("Rejecting connection: server full",
			"remote_addr", c.remoteAddr,
			"max_connections", h.opts.MaxConnections,
		)
		metrics.ConnectionsTotal.WithLabelValues("server_full").Inc()

		closeMsg := websocket.FormatCloseMessage(closeServerFull, "server full")
		_ = c.connection.SetWriteDeadline(h.clock.Now().Add(writeDeadline))
		_ = c.connection.WriteMessage(websocket.CloseMessage, closeMsg)
		_ = c.connection.Close()
		c.errorChannel <- ErrServerFull
		return
	}

	conn := c.connection
	sess := &session{
		id:         uuid.New().String(),
		remoteAddr: c.remoteAddr,
		alive:      true,
	}
	sess.writer = newClientWriter(conn, h.clock, func() {
		h.cmdCh <- pongCmd{connection: conn}
	})
	h.sessions[conn] = sess

	metrics.ConnectionsTotal.WithLabelValues("accepted").Inc()
	metrics.ConnectionsCurrent.Set(float64(len(h.sessions)))

	h.send(sess, protocol.Init{
		Type:        protocol.TypeInit,
		ClientID:    sess.id,
		ChatHistory: h.chatLog.Snapshot(chatSnapshotSize),
		WinHistory:  h.winLog.Snapshot(winSnapshotSize),
		OnlineCount: len(h.sessions),
	})
	h.scheduleOnlineCount()

	slog.Debug("Connection admitted", "client_id", sess.id, "remote_addr", sess.remoteAddr, "online", len(h.sessions))
	c.errorChannel <- nil
}

func (h *Hub) removeSession(conn *websocket.Conn) {
	sess, ok := h.sessions[conn]
	if !ok {
		return
	}

	sess.writer.stop()
	delete(h.sessions, conn)
	h.limiter.Remove(sess.id)

	metrics.ConnectionsCurrent.Set(float64(len(h.sessions)))

	if sess.registered {
		delete(h.nicknames, strings.ToLower(sess.nickname))
		metrics.RegisteredSessions.Set(float64(len(h.nicknames)))
		h.appendSystem(fmt.Sprintf("%s left the room", sess.nickname), conn)
	}
	h.scheduleOnlineCount()

	slog.Debug("Connection removed", "client_id", sess.id, "nickname", sess.nickname, "online", len(h.sessions))
}

// --- Dispatch ---

func (h *Hub) handleInbound(conn *websocket.Conn, data []byte) {
	sess, ok := h.sessions[conn]
	if !ok {
		return
	}

	var frame protocol.Inbound
	if err := json.Unmarshal(data, &frame); err != nil {
		metrics.MessagesInTotal.WithLabelValues("invalid").Inc()
		slog.Debug("Dropping malformed frame", "client_id", sess.id, "error", err)
		return
	}

	switch frame.Type {
	case protocol.TypeRegister:
		metrics.MessagesInTotal.WithLabelValues(protocol.TypeRegister).Inc()
		h.handleRegisterFrame(sess, frame.Nickname)
	case protocol.TypeChat:
		metrics.MessagesInTotal.WithLabelValues(protocol.TypeChat).Inc()
		h.handleChatFrame(sess, frame.Text)
	case protocol.TypeWin:
		metrics.MessagesInTotal.WithLabelValues(protocol.TypeWin).Inc()
		h.handleWinFrame(sess, frame.Amount, frame.Game)
	case protocol.TypePing:
		metrics.MessagesInTotal.WithLabelValues(protocol.TypePing).Inc()
		h.send(sess, protocol.Pong{Type: protocol.TypePong})
	default:
		// Unrecognized types are ignored, connection stays open.
		metrics.MessagesInTotal.WithLabelValues("unknown").Inc()
	}
}

func (h *Hub) handleRegisterFrame(sess *session, rawNickname string) {
	if sess.registered {
		// Repeated register attempts are a silent no-op. This closes the
		// nickname-squatting race where a client re-sends register to
		// claim a second name.
		return
	}

	name, rejection := validateNickname(rawNickname)
	switch rejection {
	case registerInvalid:
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		h.send(sess, protocol.RegisterError{Type: protocol.TypeRegisterError, Message: "nickname must be 2-24 characters"})
		return
	case registerDenylisted:
		metrics.RegistrationsTotal.WithLabelValues("denylisted").Inc()
		h.send(sess, protocol.RegisterError{Type: protocol.TypeRegisterError, Message: "nickname not allowed"})
		return
	}

	lower := strings.ToLower(name)
	if _, taken := h.nicknames[lower]; taken {
		metrics.RegistrationsTotal.WithLabelValues("duplicate").Inc()
		h.send(sess, protocol.RegisterError{Type: protocol.TypeRegisterError, Message: "nickname already taken"})
		return
	}

	sess.nickname = name
	sess.registered = true
	h.nicknames[lower] = sess

	metrics.RegistrationsTotal.WithLabelValues("ok").Inc()
	metrics.RegisteredSessions.Set(float64(len(h.nicknames)))

	h.send(sess, protocol.RegisterOK{Type: protocol.TypeRegisterOK, Nickname: name, ClientID: sess.id})
	h.appendSystem(fmt.Sprintf("%s joined the room", name), sess.writer.connection)
	h.scheduleOnlineCount()

	slog.Info("Nickname registered", "client_id", sess.id, "nickname", name)
}

func (h *Hub) handleChatFrame(sess *session, rawText string) {
	if !sess.registered {
		h.send(sess, protocol.ErrorMessage{Type: protocol.TypeError, Message: "register a nickname first"})
		return
	}

	if !h.limiter.Allow(sess.id) {
		metrics.RateLimitedTotal.Inc()
		h.send(sess, protocol.ErrorMessage{Type: protocol.TypeError, Message: "you are sending messages too fast"})
		return
	}

	text := sanitize.Text(rawText, chatMaxLen)
	if text == "" {
		return
	}

	msg := protocol.ChatMessage{
		Type:     protocol.TypeChat,
		ID:       uuid.New().String(),
		ClientID: sess.id,
		Nickname: sess.nickname,
		Text:     text,
		Time:     protocol.Timestamp(h.clock.Now()),
	}
	h.chatLog.Append(msg)
	h.broadcast(msg, nil)
}

func (h *Hub) handleWinFrame(sess *session, amount int64, rawGame string) {
	if !sess.registered {
		return
	}
	if amount <= 0 || amount > h.opts.WinAmountCap {
		return
	}

	msg := protocol.WinMessage{
		Type:     protocol.TypeWin,
		ClientID: sess.id,
		Nickname: sess.nickname,
		Amount:   amount,
		Game:     sanitize.Text(rawGame, gameMaxLen),
		Time:     protocol.Timestamp(h.clock.Now()),
	}
	h.winLog.Append(msg)
	h.broadcast(msg, nil)
	metrics.WinsTotal.Inc()

	if amount >= bigWinThreshold {
		text := fmt.Sprintf("%s just won %d", sess.nickname, amount)
		if msg.Game != "" {
			text += " in " + msg.Game
		}
		h.appendSystem(text+"!", nil)
	}
}

// --- Fan-out ---

// send delivers one frame to one session, best effort.
func (h *Hub) send(sess *session, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to marshal frame", "error", err)
		return
	}
	if !sess.writer.enqueue(data) {
		metrics.SendsDroppedTotal.Inc()
	}
}

// broadcast serializes once and attempts delivery to every open connection
// except exclude. A full client buffer drops the frame for that client
// only; slow peers are reclaimed by the liveness probe, never by send
// backpressure.
func (h *Hub) broadcast(v any, exclude *websocket.Conn) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to marshal broadcast frame", "error", err)
		return
	}

	frameType := "unknown"
	switch m := v.(type) {
	case protocol.ChatMessage:
		frameType = m.Type
	case protocol.WinMessage:
		frameType = m.Type
	case protocol.OnlineCount:
		frameType = m.Type
	}
	metrics.BroadcastsTotal.WithLabelValues(frameType).Inc()

	for conn, sess := range h.sessions {
		if conn == exclude {
			continue
		}
		if !sess.writer.enqueue(data) {
			metrics.SendsDroppedTotal.Inc()
		}
	}
}

// appendSystem records a system announcement and broadcasts it, optionally
// excluding one connection.
func (h *Hub) appendSystem(text string, exclude *websocket.Conn) {
	msg := protocol.ChatMessage{
		Type: protocol.TypeSystemMessage,
		Text: text,
		Time: protocol.Timestamp(h.clock.Now()),
	}
	h.chatLog.Append(msg)
	h.broadcast(msg, exclude)
}

// scheduleOnlineCount arms the debounce timer if it is not already pending.
// Triggers arriving while armed coalesce into the single broadcast carrying
// the count at fire time.
func (h *Hub) scheduleOnlineCount() {
	if h.debounceChannel != nil {
		return
	}
	h.debounceTimer = h.clock.NewTimer(debounceDelay)
	h.debounceChannel = h.debounceTimer.Chan()
}

// --- Periodic tasks ---

// handleHeartbeat evicts connections that missed the previous probe round
// and probes the rest. Eviction is treated identically to a client close.
func (h *Hub) handleHeartbeat() {
	var dead []*websocket.Conn
	for conn, sess := range h.sessions {
		if !sess.alive {
			dead = append(dead, conn)
			continue
		}
		sess.alive = false
		sess.writer.enqueuePing()
	}

	for _, conn := range dead {
		sess := h.sessions[conn]
		slog.Info("Evicting unresponsive connection", "client_id", sess.id, "nickname", sess.nickname, "remote_addr", sess.remoteAddr)
		metrics.HeartbeatEvictionsTotal.Inc()
		h.removeSession(conn)
	}
}

// handleWatchdog trims both history buffers to a small floor when heap
// usage crosses the threshold. Best-effort degradation, not a guarantee.
func (h *Hub) handleWatchdog() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	if memStats.HeapAlloc <= heapTrimThreshold {
		return
	}

	slog.Warn("Memory threshold crossed, trimming history buffers",
		"heap_alloc", memStats.HeapAlloc,
		"threshold", uint64(heapTrimThreshold),
		"chat_len", h.chatLog.Len(),
		"win_len", h.winLog.Len(),
	)
	h.chatLog.TrimTo(trimFloor)
	h.winLog.TrimTo(trimFloor)
	metrics.MemoryTrimsTotal.Inc()
}

// --- Shutdown ---

func (h *Hub) handleStop() {
	slog.Info("Hub shutting down", "connections", len(h.sessions))
	h.closeAll(websocket.CloseGoingAway, "server shutting down")
	slog.Info("Hub shutdown complete")
}

func (h *Hub) closeAll(code int, reason string) {
	for conn, sess := range h.sessions {
		sess.writer.stopGraceful(code, reason)
		delete(h.sessions, conn)
	}
	for lower := range h.nicknames {
		delete(h.nicknames, lower)
	}
	metrics.ConnectionsCurrent.Set(0)
	metrics.RegisteredSessions.Set(0)
}

func (h *Hub) snapshotStats() Stats {
	return Stats{
		Connections: len(h.sessions),
		Registered:  len(h.nicknames),
		ChatHistory: h.chatLog.Len(),
		WinHistory:  h.winLog.Len(),
	}
}
