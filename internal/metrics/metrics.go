// Package metrics exposes mavrouter's runtime counters and gauges via
// prometheus/client_golang, replacing the teacher's hand-rolled
// map[string]int64 counters (metrics/metrics.go) with real Prometheus
// instrumentation. A package-level Global singleton mirrors the teacher's
// own package-level Global pattern.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles every counter/gauge mavrouter reports.
type Metrics struct {
	PacketsRouted  prometheus.Counter
	PacketsDropped prometheus.Counter
	PacketsParsed  prometheus.Counter
	ParseErrors    prometheus.Counter

	QueueDepth      *prometheus.GaugeVec
	AddressPoolSize *prometheus.GaugeVec
	SemaphoreValue  *prometheus.GaugeVec
}

// New builds a fresh Metrics bundle and registers it with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PacketsRouted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mavrouter_packets_routed_total",
			Help: "Total packets queued for forwarding, counted once per connection that queued them.",
		}),
		PacketsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mavrouter_packets_dropped_total",
			Help: "Total packets a connection did not queue because its destination was unknown there or the filter accepted no candidate, counted once per connection.",
		}),
		PacketsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mavrouter_packets_parsed_total",
			Help: "Total MAVLink frames successfully decoded from raw transport bytes.",
		}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mavrouter_parse_errors_total",
			Help: "Total transport read failures.",
		}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mavrouter_queue_depth",
			Help: "Outbound packet queue depth per connection, as of its most recent push.",
		}, []string{"connection"}),
		AddressPoolSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mavrouter_address_pool_size",
			Help: "Number of addresses recorded for a connection, including expired entries not yet pruned.",
		}, []string{"connection"}),
		SemaphoreValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mavrouter_semaphore_value",
			Help: "Value of a transport's shared send-ready semaphore, sampled after each successful wait.",
		}, []string{"interface"}),
	}
	reg.MustRegister(
		m.PacketsRouted, m.PacketsDropped, m.PacketsParsed, m.ParseErrors,
		m.QueueDepth, m.AddressPoolSize, m.SemaphoreValue,
	)
	return m
}

// Global is the process-wide metrics registry, built against the default
// Prometheus registerer so promhttp.Handler() picks it up automatically.
var Global = New(prometheus.DefaultRegisterer)
