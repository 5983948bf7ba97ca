package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	publishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "infractl_events_published_total",
		Help: "Events published to the bus, by event type.",
	}, []string{"event_type"})

	droppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "infractl_events_dropped_total",
		Help: "Events dropped because a subscriber's buffer was full.",
	})

	subscriberCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "infractl_event_subscribers",
		Help: "Currently registered event subscribers.",
	})
)
