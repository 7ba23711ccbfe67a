package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests считает ответы по маршруту chi, а не по сырому пути
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskmanager_http_requests_total",
		Help: "Total HTTP requests by route, method and status",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taskmanager_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taskmanager_db_query_duration_seconds",
		Help:    "Storage query duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	}, []string{"operation"})

	QueryErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskmanager_db_query_errors_total",
		Help: "Storage errors by operation and kind",
	}, []string{"operation", "kind"})

	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskmanager_logins_total",
		Help: "Login attempts by result",
	}, []string{"result"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskmanager_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	})

	SessionGC = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskmanager_session_gc_runs_total",
		Help: "Session store value log GC runs by result",
	}, []string{"result"})
)
