// Package metrics exposes FluxDB's process counters through
// prometheus/client_golang, the same library bun-kms and
// sanonone-kektordb vendor for HTTP/operation introspection. Unlike
// those repos' package-level promauto vars registered against the
// default registry, Metrics here owns a private prometheus.Registry so
// that more than one *Metrics can exist in the same process (multiple
// tests, or an embedder running several servers) without a duplicate-
// registration panic.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the process-wide set of counters and gauges exposed through
// the HTTP /metrics endpoint. The STATS command does not read them; it
// reports Collection.Stats instead.
type Metrics struct {
	registry *prometheus.Registry

	OpenDatabases     prometheus.Gauge
	ConnectionsActive prometheus.Gauge
	DocumentsTotal    *prometheus.GaugeVec
	WALBytes          *prometheus.GaugeVec
	CommandsTotal     *prometheus.CounterVec
	QueryHits         prometheus.Counter
	QueryMisses       prometheus.Counter
	Checkpoints       prometheus.Counter
	PubSubDelivered   prometheus.Counter
}

// New creates a Metrics with all series registered against a fresh
// registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		OpenDatabases: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fluxdb_open_databases",
			Help: "Number of databases currently open.",
		}),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fluxdb_connections_active",
			Help: "Number of currently connected clients.",
		}),
		DocumentsTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fluxdb_documents_total",
			Help: "Number of live documents per database.",
		}, []string{"database"}),
		WALBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fluxdb_wal_bytes",
			Help: "Current write-ahead log size in bytes per database.",
		}, []string{"database"}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fluxdb_commands_total",
			Help: "Total number of line commands processed, by command name.",
		}, []string{"command"}),
		QueryHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fluxdb_query_index_hits_total",
			Help: "Total FIND queries answered from an index probe.",
		}),
		QueryMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fluxdb_query_index_misses_total",
			Help: "Total FIND queries that fell back to a linear scan.",
		}),
		Checkpoints: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fluxdb_checkpoints_total",
			Help: "Total number of WAL checkpoints performed.",
		}),
		PubSubDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fluxdb_pubsub_messages_delivered_total",
			Help: "Total number of pub/sub message deliveries.",
		}),
	}

	registry.MustRegister(
		m.OpenDatabases,
		m.ConnectionsActive,
		m.DocumentsTotal,
		m.WALBytes,
		m.CommandsTotal,
		m.QueryHits,
		m.QueryMisses,
		m.Checkpoints,
		m.PubSubDelivered,
	)

	return m
}

// Handler returns the HTTP handler serving this registry's metrics in
// the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCommand increments the per-command counter.
func (m *Metrics) ObserveCommand(name string) {
	m.CommandsTotal.WithLabelValues(name).Inc()
}

// RecordQueryHit records a FIND answered via an index probe.
func (m *Metrics) RecordQueryHit() { m.QueryHits.Inc() }

// RecordQueryMiss records a FIND that fell back to a linear scan.
func (m *Metrics) RecordQueryMiss() { m.QueryMisses.Inc() }

// RecordCheckpoint records a completed WAL checkpoint.
func (m *Metrics) RecordCheckpoint() { m.Checkpoints.Inc() }

// RecordPublish records n successful pub/sub deliveries.
func (m *Metrics) RecordPublish(n int) { m.PubSubDelivered.Add(float64(n)) }

// SetOpenDatabases sets the current open-database gauge.
func (m *Metrics) SetOpenDatabases(n int) { m.OpenDatabases.Set(float64(n)) }

// SetDocuments sets the document-count gauge for a database.
func (m *Metrics) SetDocuments(database string, n int) {
	m.DocumentsTotal.WithLabelValues(database).Set(float64(n))
}

// SetWALBytes sets the WAL-size gauge for a database.
func (m *Metrics) SetWALBytes(database string, n uint64) {
	m.WALBytes.WithLabelValues(database).Set(float64(n))
}

// IncConnections/DecConnections track the active connection count.
func (m *Metrics) IncConnections() { m.ConnectionsActive.Inc() }
func (m *Metrics) DecConnections() { m.ConnectionsActive.Dec() }
