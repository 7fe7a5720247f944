package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vvoice_active_connections",
			Help: "Currently open signaling connections",
		},
	)

	ActiveRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vvoice_active_rooms",
			Help: "Rooms with at least one participant",
		},
	)

	MessagesDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vvoice_messages_dispatched_total",
			Help: "Inbound messages handled, by type",
		},
		[]string{"type"},
	)

	SignalErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vvoice_signal_errors_total",
			Help: "signal_error frames sent, by code",
		},
		[]string{"code"},
	)

	RateLimitTrips = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vvoice_rate_limit_trips_total",
			Help: "Connections closed for exceeding the message rate limit",
		},
	)
)
