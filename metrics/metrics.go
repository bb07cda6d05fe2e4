// Package metrics holds the prometheus collectors of the timeout service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts timeouts accepted by intake
	RequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timeoutd_requests_total",
		Help: "The total number of accepted timeout requests",
	})
	// RequestsRejected counts inbound messages rejected per transport
	RequestsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timeoutd_requests_rejected_total",
		Help: "The total number of inbound messages that could not be turned into a timeout",
	}, []string{"transport"})
	// RepliesSent counts replies handed to a sink without error
	RepliesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timeoutd_replies_sent_total",
		Help: "The total number of timeout replies delivered to a sink",
	})
	// ReplyErrors counts failed reply sends per address scheme
	ReplyErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timeoutd_reply_errors_total",
		Help: "The total number of failed reply sends",
	}, []string{"scheme"})
	// Pending is the number of timeouts in the store
	Pending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "timeoutd_pending_timeouts",
		Help: "The number of timeouts waiting to become due",
	})
	// SweepDuration observes the wall time of each sweep that was not skipped
	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "timeoutd_sweep_duration_seconds",
		Help:    "Time spent extracting and replying in one sweep",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	})
	// ReplyLateness observes how long after its due time a reply was sent
	ReplyLateness = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "timeoutd_reply_lateness_seconds",
		Help:    "Delay between the due time of a timeout and its reply being sent",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	})
)

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
