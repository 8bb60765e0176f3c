package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequestsTotal tracks wallet backend requests by endpoint and status
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bumpcore_api_requests_total",
			Help: "The total number of wallet backend requests",
		},
		[]string{"endpoint", "status"}, // success, failed
	)

	// RateRefreshSeconds tracks time taken to fetch the exchange rate table
	RateRefreshSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bumpcore_rate_refresh_seconds",
		Help:    "Time taken to refresh the exchange rate table in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// RateRefreshFailures tracks failed rate provider fetches
	RateRefreshFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bumpcore_rate_refresh_failures_total",
		Help: "The total number of failed exchange rate fetches",
	})

	// StoreRefreshesTotal tracks wallet state refreshes by status
	StoreRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bumpcore_store_refreshes_total",
			Help: "The total number of wallet state refreshes",
		},
		[]string{"status"}, // success, failed, discarded
	)

	// SendsTotal tracks send operations by currency and status
	SendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bumpcore_sends_total",
			Help: "The total number of send operations",
		},
		[]string{"currency", "status"},
	)

	// RateTableAge tracks the age of the current exchange rate table
	RateTableAge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bumpcore_rate_table_age_seconds",
		Help: "Seconds since the exchange rate table was last refreshed",
	})
)

// RecordAPIRequest records a wallet backend request with the given status
func RecordAPIRequest(endpoint, status string) {
	APIRequestsTotal.WithLabelValues(endpoint, status).Inc()
}

// RecordRateRefresh records the time taken to refresh the rate table
func RecordRateRefresh(duration float64) {
	RateRefreshSeconds.Observe(duration)
}

// RecordRateRefreshFailure records a failed rate fetch
func RecordRateRefreshFailure() {
	RateRefreshFailures.Inc()
}

// RecordStoreRefresh records a wallet state refresh with the given status
func RecordStoreRefresh(status string) {
	StoreRefreshesTotal.WithLabelValues(status).Inc()
}

// RecordSend records a send operation
func RecordSend(currency, status string) {
	SendsTotal.WithLabelValues(currency, status).Inc()
}

// SetRateTableAge sets the age of the current rate table
func SetRateTableAge(seconds float64) {
	RateTableAge.Set(seconds)
}
