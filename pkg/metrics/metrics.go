// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nutri_chat_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutri_chat_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ClaimsTotal tracks check/accept attempts by outcome.
	ClaimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutri_chat_claims_total",
			Help: "Conversation claim attempts",
		},
		[]string{"op", "outcome"},
	)

	// MessagesTotal tracks appended messages by sender role.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutri_chat_messages_total",
			Help: "Messages appended to conversations",
		},
		[]string{"role"},
	)

	// WSConnectionsActive tracks live websocket connections on this instance.
	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nutri_chat_ws_connections_active",
			Help: "Number of active websocket connections",
		},
	)

	// EventsPublished tracks events handed to the fan-out bus.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutri_chat_events_published_total",
			Help: "Events published by target kind",
		},
		[]string{"target"},
	)

	// EventsDelivered tracks frames written to connection buffers.
	EventsDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nutri_chat_events_delivered_total",
			Help: "Event frames queued to local connections",
		},
	)

	// EventsDropped tracks frames dropped because a connection buffer was full.
	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nutri_chat_events_dropped_total",
			Help: "Event frames dropped on slow connections",
		},
	)

	// RemindersTotal tracks emitted reminders by source.
	RemindersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutri_chat_reminders_total",
			Help: "Reminders emitted by source",
		},
		[]string{"source"},
	)
)
