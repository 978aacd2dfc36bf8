package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusride_http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "campusride_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	ConnectedSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "campusride_realtime_sessions",
		Help: "Currently connected realtime sessions.",
	})

	OnlineDrivers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "campusride_online_drivers",
		Help: "Drivers currently marked online in the presence registry.",
	})

	RelayFramesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusride_relay_frames_total",
		Help: "Realtime frames handed to sessions, by event and outcome.",
	}, []string{"event", "outcome"})

	RidesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusride_ride_transitions_total",
		Help: "Ride lifecycle transitions, by resulting status.",
	}, []string{"status"})
)
