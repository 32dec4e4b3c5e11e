// Package metrics provides Prometheus metrics for the token lifecycle.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result labels for metrics.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	// ValidationsTotal counts identity checks performed against the provider.
	ValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "igtoken",
			Subsystem: "lifecycle",
			Name:      "validations_total",
			Help:      "Total number of token identity checks, by account and result",
		},
		[]string{"account", "result"},
	)

	// RefreshesTotal counts token exchanges performed against the provider.
	RefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "igtoken",
			Subsystem: "lifecycle",
			Name:      "refreshes_total",
			Help:      "Total number of token exchanges, by account and result",
		},
		[]string{"account", "result"},
	)

	// FallbacksTotal counts uses of an account's statically configured token.
	FallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "igtoken",
			Subsystem: "lifecycle",
			Name:      "fallbacks_total",
			Help:      "Total number of times an account fell back to its configured token",
		},
		[]string{"account"},
	)

	// LastRefreshGauge tracks when an account last had a token persisted.
	LastRefreshGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "igtoken",
			Subsystem: "lifecycle",
			Name:      "last_refresh_timestamp_seconds",
			Help:      "Unix time of the most recent persisted token write, by account",
		},
		[]string{"account"},
	)
)

func init() {
	prometheus.MustRegister(
		ValidationsTotal,
		RefreshesTotal,
		FallbacksTotal,
		LastRefreshGauge,
	)
}

// IncrementValidation increments the identity-check counter.
func IncrementValidation(account string, success bool) {
	result := ResultFailure
	if success {
		result = ResultSuccess
	}
	ValidationsTotal.WithLabelValues(account, result).Inc()
}

// IncrementRefresh increments the token-exchange counter.
func IncrementRefresh(account string, success bool) {
	result := ResultFailure
	if success {
		result = ResultSuccess
	}
	RefreshesTotal.WithLabelValues(account, result).Inc()
}

// IncrementFallback increments the fallback-use counter.
func IncrementFallback(account string) {
	FallbacksTotal.WithLabelValues(account).Inc()
}

// SetLastRefresh records when a token was last persisted for an account.
func SetLastRefresh(account string, at time.Time) {
	LastRefreshGauge.WithLabelValues(account).Set(float64(at.Unix()))
}
