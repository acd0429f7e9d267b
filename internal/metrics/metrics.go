package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cache
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "w3lottery_cache_hits_total",
			Help: "Cache reads served from the store",
		},
		[]string{"resource"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "w3lottery_cache_misses_total",
			Help: "Cache reads that went to the backend (expired, empty, absent or forced)",
		},
		[]string{"resource"},
	)

	CacheFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "w3lottery_cache_fetch_errors_total",
			Help: "Backend fetches that failed during a cache load",
		},
		[]string{"resource"},
	)

	// HTTP
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "w3lottery_http_request_duration_seconds",
			Help:    "Latency of portal requests by route",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "route", "status"},
	)

	// Backend API
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "w3lottery_api_request_duration_seconds",
			Help:    "Latency of calls to the lottery/KYC backend",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)

	// Wallet sessions
	WalletSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "w3lottery_wallet_sessions",
		Help: "Browser sessions currently tracked",
	})

	WalletConnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "w3lottery_wallet_connects_total",
			Help: "Wallet connection attempts by outcome",
		},
		[]string{"outcome"},
	)
)

// Middleware observes HTTPRequestDuration. Requests are labelled by route
// pattern, unmatched paths by "unmatched".
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
