// Package metrics exposes the daemon's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the daemon-specific Prometheus collectors.
var Registry = prometheus.NewRegistry()

var (
	// Redemptions counts successful mutating operations by kind
	// (redeem, withdraw).
	Redemptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "principald",
			Subsystem: "engine",
			Name:      "redemptions_total",
			Help:      "Total number of successful redeem/withdraw operations.",
		},
		[]string{"op"},
	)

	// Failures counts rejected mutating operations by cause.
	Failures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "principald",
			Subsystem: "engine",
			Name:      "failures_total",
			Help:      "Total number of failed redeem/withdraw operations by cause.",
		},
		[]string{"op", "cause"},
	)

	// JournalRecords tracks the number of records appended to the
	// redemption journal.
	JournalRecords = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "principald",
			Subsystem: "journal",
			Name:      "records_total",
			Help:      "Total number of journal records appended.",
		},
	)

	// TotalSupply is the current principal total supply, as a float
	// approximation for dashboards.
	TotalSupply = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "principald",
			Subsystem: "ledger",
			Name:      "total_supply",
			Help:      "Current principal token total supply (approximate above 2^63).",
		},
	)

	// TreasuryReserve is the current underlying reserve.
	TreasuryReserve = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "principald",
			Subsystem: "treasury",
			Name:      "reserve",
			Help:      "Current underlying asset reserve (approximate above 2^63).",
		},
	)
)

func init() {
	Registry.MustRegister(
		Redemptions,
		Failures,
		JournalRecords,
		TotalSupply,
		TreasuryReserve,
	)
}

// Handler serves the registry over HTTP.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
