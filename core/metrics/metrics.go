// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AlertTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workguard_alert_transitions_total",
		Help: "Alert lifecycle transitions by type and outcome.",
	}, []string{"transition", "outcome"})

	FanoutEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workguard_fanout_events_total",
		Help: "Fan-out deliveries by result (delivered or dropped).",
	}, []string{"result"})

	StreamSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "workguard_stream_subscribers",
		Help: "Currently connected stream subscribers.",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workguard_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})
)
