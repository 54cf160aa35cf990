// Package metrics exposes Prometheus instrumentation for the mining engine.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cryptominer"

var (
	engineOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "operations_total",
		Help:      "Count of session lifecycle operations.",
	}, []string{"operation", "status"})
	engineOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "operation_duration_seconds",
		Help:      "Duration of session lifecycle operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"})

	pointsSettledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "points_settled_total",
		Help:      "Mining points moved into lifetime totals by claims.",
	})

	settlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "settlement",
		Name:      "cascades_total",
		Help:      "Count of referral cascade attempts.",
	}, []string{"status"})
	referralCreditTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "settlement",
		Name:      "credit_total",
		Help:      "Tokens credited to wallet bonus buckets.",
	}, []string{"source"})
	settlementQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "settlement",
		Name:      "pending_jobs",
		Help:      "Referral cascades waiting for retry.",
	})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Count of API requests.",
	}, []string{"route", "method", "code"})
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of API requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	registeredWallets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "registered_wallets",
		Help:      "Registered wallets.",
	})

	streamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "clients",
		Help:      "Connected progress stream clients.",
	})
)

// Status labels
const (
	StatusSuccess  = "success"
	StatusRejected = "rejected"
	StatusError    = "error"
)

// domainError is implemented by errors that are expected, user-facing outcomes
type domainError interface {
	DomainError() bool
}

func statusOf(err error) string {
	if err == nil {
		return StatusSuccess
	}
	var de domainError
	if errors.As(err, &de) && de.DomainError() {
		return StatusRejected
	}
	return StatusError
}

// ObserveEngine records one lifecycle operation
func ObserveEngine(operation string, err error, started time.Time) {
	status := statusOf(err)
	engineOperationsTotal.WithLabelValues(operation, status).Inc()
	engineOperationDuration.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
}

// AddPointsSettled counts points moved into lifetime totals
func AddPointsSettled(points float64) {
	if points > 0 {
		pointsSettledTotal.Add(points)
	}
}

// ObserveSettlement records one referral cascade attempt
func ObserveSettlement(err error) {
	settlementsTotal.WithLabelValues(statusOf(err)).Inc()
}

// AddCredit counts tokens credited to a bonus bucket by source
// ("referral_signup", "referral_mining", "ad")
func AddCredit(source string, amount float64) {
	if amount > 0 {
		referralCreditTotal.WithLabelValues(source).Add(amount)
	}
}

// SetPendingSettlements reports the retry queue depth
func SetPendingSettlements(n int) {
	settlementQueueDepth.Set(float64(n))
}

// SetRegisteredWallets reports the number of registered wallets
func SetRegisteredWallets(n int64) {
	registeredWallets.Set(float64(n))
}

// StreamConnected tracks progress stream clients
func StreamConnected() func() {
	streamClients.Inc()
	return streamClients.Dec
}

// Middleware records request counts and latency per route template
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		httpRequestsTotal.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(route, method).Observe(time.Since(started).Seconds())
	}
}
