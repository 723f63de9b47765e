// Package metrics holds the Prometheus collectors exported by the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pledgeboard"

// Metrics groups every collector the server updates. A nil *Metrics is valid
// and records nothing, which keeps tests that don't care about metrics short.
type Metrics struct {
	RPCRequests *prometheus.CounterVec
	RPCDuration *prometheus.HistogramVec

	Pledges       *prometheus.CounterVec
	Bids          *prometheus.CounterVec
	Settlements   *prometheus.CounterVec
	SettleErrors  *prometheus.CounterVec
	LedgerEntries *prometheus.CounterVec
	Declarations  prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RPCRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "Connect RPCs handled, by procedure and result code.",
		}, []string{"procedure", "code"}),
		RPCDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "Connect RPC latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		Pledges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pledges_total",
			Help:      "Accepted pledges, by deal type.",
		}, []string{"deal_type"}),
		Bids: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bids_total",
			Help:      "Accepted bids; replaced is true when a bidder rewrote an active bid.",
		}, []string{"replaced"}),
		Settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_total",
			Help:      "Deals settled, by deal type.",
		}, []string{"deal_type"}),
		SettleErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_failures_total",
			Help:      "Settlement transactions that rolled back.",
		}, []string{"deal_type"}),
		LedgerEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_entries_total",
			Help:      "Ledger entries emitted by settlements, by deal type.",
		}, []string{"deal_type"}),
		Declarations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_declarations_total",
			Help:      "Ledger entries declared received by their payee.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.RPCRequests,
			m.RPCDuration,
			m.Pledges,
			m.Bids,
			m.Settlements,
			m.SettleErrors,
			m.LedgerEntries,
			m.Declarations,
		)
	}
	return m
}

func (m *Metrics) ObservePledge(dealType string) {
	if m == nil {
		return
	}
	m.Pledges.WithLabelValues(dealType).Inc()
}

func (m *Metrics) ObserveBid(replaced bool) {
	if m == nil {
		return
	}
	label := "false"
	if replaced {
		label = "true"
	}
	m.Bids.WithLabelValues(label).Inc()
}

// ObserveSettlement records a committed settlement and the ledger entries it wrote.
func (m *Metrics) ObserveSettlement(dealType string, entries int) {
	if m == nil {
		return
	}
	m.Settlements.WithLabelValues(dealType).Inc()
	m.LedgerEntries.WithLabelValues(dealType).Add(float64(entries))
}

func (m *Metrics) ObserveSettlementFailure(dealType string) {
	if m == nil {
		return
	}
	m.SettleErrors.WithLabelValues(dealType).Inc()
}

func (m *Metrics) ObserveDeclaration() {
	if m == nil {
		return
	}
	m.Declarations.Inc()
}

// ObserveRPC records one finished RPC.
func (m *Metrics) ObserveRPC(procedure, code string, seconds float64) {
	if m == nil {
		return
	}
	m.RPCRequests.WithLabelValues(procedure, code).Inc()
	m.RPCDuration.WithLabelValues(procedure).Observe(seconds)
}
