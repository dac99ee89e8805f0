package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "procure_http_requests_total",
			Help: "Total number of HTTP requests by method, path and status",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "procure_http_request_duration_seconds",
			Help:    "HTTP request latency by method and path",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	RequestsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "procure_requests_created_total",
			Help: "Procurement requests created",
		},
	)

	LeafRequestsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "procure_leaf_requests_published_total",
			Help: "Department sub-requests published to vendors",
		},
	)

	QuotesSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "procure_quotes_submitted_total",
			Help: "Vendor quotes submitted",
		},
	)

	MailSendFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "procure_mail_send_failures_total",
			Help: "Notification emails that failed to send",
		},
	)
)
