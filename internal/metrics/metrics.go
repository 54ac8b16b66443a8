// Package metrics defines the Prometheus collectors exposed at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Connection metrics
var (
	// ConnectionsCurrent tracks current active WebSocket connections
	ConnectionsCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_connections_current",
			Help: "Current number of active WebSocket connections",
		},
	)

	// ConnectionsTotal tracks connection attempts by result (accepted/server_full)
	ConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_connections_total",
			Help: "Total WebSocket connection attempts by result",
		},
		[]string{"result"},
	)

	// ConnectionsRejected tracks admissions refused at the HTTP layer by reason
	ConnectionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_connections_rejected_total",
			Help: "Total WebSocket connections rejected before upgrade by reason (per_ip_limit/rate_limit)",
		},
		[]string{"reason"},
	)

	// RegisteredSessions tracks sessions that completed nickname registration
	RegisteredSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_registered_sessions",
			Help: "Current number of sessions with a registered nickname",
		},
	)

	// HeartbeatEvictionsTotal tracks connections evicted by the liveness probe
	HeartbeatEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_heartbeat_evictions_total",
			Help: "Total connections evicted for missing heartbeat replies",
		},
	)
)

// Message metrics
var (
	// MessagesInTotal tracks inbound frames by type (register/chat/win/ping/invalid)
	MessagesInTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_messages_in_total",
			Help: "Total inbound frames by type",
		},
		[]string{"type"},
	)

	// BroadcastsTotal tracks broadcast fan-outs by frame type
	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_broadcasts_total",
			Help: "Total broadcast fan-outs by frame type",
		},
		[]string{"type"},
	)

	// SendsDroppedTotal tracks per-recipient sends dropped because the
	// client's buffer was full
	SendsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_sends_dropped_total",
			Help: "Total per-recipient sends dropped due to a full client buffer",
		},
	)

	// RegistrationsTotal tracks registration attempts by result
	RegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_registrations_total",
			Help: "Total nickname registration attempts by result (ok/invalid/duplicate/denylisted)",
		},
		[]string{"result"},
	)

	// RateLimitedTotal tracks chat messages denied by the rate limiter
	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_chat_rate_limited_total",
			Help: "Total chat messages denied by the rate limiter",
		},
	)

	// WinsTotal tracks accepted win events
	WinsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_wins_total",
			Help: "Total accepted win events",
		},
	)
)

// Resource metrics
var (
	// HistoryBufferSize tracks current history buffer lengths by buffer name
	HistoryBufferSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hub_history_buffer_size",
			Help: "Current history buffer length by buffer (chat/win)",
		},
		[]string{"buffer"},
	)

	// MemoryTrimsTotal tracks watchdog-triggered history trims
	MemoryTrimsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_memory_trims_total",
			Help: "Total history buffer trims triggered by the memory watchdog",
		},
	)

	// HubPanicsTotal tracks hub actor panic recoveries
	HubPanicsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_panics_total",
			Help: "Total hub actor panic recoveries",
		},
	)

	// CommandChannelDepth tracks current hub command channel depth
	CommandChannelDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_command_channel_depth",
			Help: "Current hub command channel depth",
		},
	)
)
