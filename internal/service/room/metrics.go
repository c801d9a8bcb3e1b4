package room

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	roomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "peoplegrid",
		Subsystem: "chat",
		Name:      "rooms_active",
		Help:      "Conversation rooms with at least one live subscriber.",
	})
	joinsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "peoplegrid",
		Subsystem: "chat",
		Name:      "room_joins_total",
		Help:      "Room join operations handled.",
	})
	deliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "peoplegrid",
		Subsystem: "chat",
		Name:      "messages_delivered_total",
		Help:      "Messages fanned out to room subscribers.",
	})
	droppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "peoplegrid",
		Subsystem: "chat",
		Name:      "messages_dropped_total",
		Help:      "Messages dropped because a subscriber buffer was full.",
	})
)
