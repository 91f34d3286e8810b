// Package metrics exposes lottery activity as Prometheus metrics.
// A nil *Collector is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultFailed   = "failed"

	PayoutPrize      = "prize"
	PayoutCommission = "commission"
	PayoutRefund     = "refund"
)

// Collector provides lottery metrics collection.
type Collector struct {
	registry *prometheus.Registry

	operations      *prometheus.CounterVec
	payouts         *prometheus.CounterVec
	ticketsSold     prometheus.Gauge
	ticketsRevealed prometheus.Gauge
	escrowHeld      prometheus.Gauge
}

// NewCollector creates a collector with its own registry.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "lottery"
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Contract calls by operation and result (ok, rejected, failed)",
		},
		[]string{"op", "result"},
	)
	c.payouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payouts_total",
			Help:      "Value paid out of escrow by kind",
		},
		[]string{"kind"},
	)
	c.ticketsSold = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tickets_sold",
		Help:      "Tickets sold in the round",
	})
	c.ticketsRevealed = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tickets_revealed",
		Help:      "Tickets whose secret has been revealed",
	})
	c.escrowHeld = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "escrow_held",
		Help:      "Value currently held by the contract",
	})

	c.registry.MustRegister(c.operations, c.payouts, c.ticketsSold, c.ticketsRevealed, c.escrowHeld)
	return c
}

// Registry returns the registry the metrics are registered on.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RecordOperation counts one contract call.
func (c *Collector) RecordOperation(op, result string) {
	if c == nil {
		return
	}
	c.operations.WithLabelValues(op, result).Inc()
}

// RecordPayout adds amount to the payouts of the given kind.
func (c *Collector) RecordPayout(kind string, amount uint64) {
	if c == nil {
		return
	}
	c.payouts.WithLabelValues(kind).Add(float64(amount))
}

// RecordState updates the round gauges.
func (c *Collector) RecordState(sold, revealed int, held uint64) {
	if c == nil {
		return
	}
	c.ticketsSold.Set(float64(sold))
	c.ticketsRevealed.Set(float64(revealed))
	c.escrowHeld.Set(float64(held))
}
