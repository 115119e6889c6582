package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics agrupa los contadores de almacenamiento y kardex.
// Un *Metrics nil es válido: todas las operaciones se vuelven no-op.
type Metrics struct {
	registry     *prometheus.Registry
	statements   *prometheus.CounterVec
	transactions *prometheus.CounterVec
	saves        *prometheus.CounterVec
	saveDuration prometheus.Histogram
	ledgerLines  *prometheus.CounterVec
}

// New crea las métricas sobre un registro propio (con collectors de proceso y Go).
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return NewWithRegistry(reg)
}

// NewWithRegistry registra las métricas en el registro indicado.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		statements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stoir_db_statements_total",
			Help: "Statements executed through the query facade.",
		}, []string{"provider", "op"}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stoir_db_transactions_total",
			Help: "Facade transactions by outcome.",
		}, []string{"provider", "outcome"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stoir_snapshot_saves_total",
			Help: "Embedded database snapshot flushes by outcome.",
		}, []string{"outcome"}),
		saveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stoir_snapshot_save_seconds",
			Help:    "Duration of embedded database snapshot flushes.",
			Buckets: prometheus.DefBuckets,
		}),
		ledgerLines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stoir_ledger_lines_total",
			Help: "Movement lines processed by the ledger engine.",
		}, []string{"ref_type", "outcome"}),
	}
	reg.MustRegister(m.statements, m.transactions, m.saves, m.saveDuration, m.ledgerLines)
	return m
}

// Statement cuenta una sentencia (op: get, all, exec, run).
func (m *Metrics) Statement(provider, op string) {
	if m == nil {
		return
	}
	m.statements.WithLabelValues(provider, op).Inc()
}

// Transaction cuenta el resultado de una transacción (commit, rollback).
func (m *Metrics) Transaction(provider, outcome string) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(provider, outcome).Inc()
}

// SnapshotSaved registra un flush del snapshot embebido.
func (m *Metrics) SnapshotSaved(d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.saves.WithLabelValues(outcome).Inc()
	m.saveDuration.Observe(d.Seconds())
}

// LedgerLine cuenta una línea procesada (outcome: applied, clamped, skipped).
func (m *Metrics) LedgerLine(refType, outcome string) {
	if m == nil {
		return
	}
	m.ledgerLines.WithLabelValues(refType, outcome).Inc()
}

// Handler expone el registro en formato Prometheus.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
