package streamer

import "github.com/prometheus/client_golang/prometheus"

// Metrics mirrors Stats onto Prometheus collectors. It follows the same
// counters-and-gauges-behind-a-small-interface shape as hypersdk's executor
// metrics: a concrete implementation backed by client_golang, registered
// once by the host, and a no-op fallback so tests and headless callers never
// have to stand up a registry.
type Metrics interface {
	ObserveStarted()
	ObserveLoaded()
	ObserveAborted()
	ObserveFailed()
	SetResidentCount(n int)
	SetInflightCount(n int)
}

type nopMetrics struct{}

func (nopMetrics) ObserveStarted()        {}
func (nopMetrics) ObserveLoaded()         {}
func (nopMetrics) ObserveAborted()        {}
func (nopMetrics) ObserveFailed()         {}
func (nopMetrics) SetResidentCount(int)   {}
func (nopMetrics) SetInflightCount(int)   {}

// PromMetrics is the Prometheus-backed Metrics implementation. Callers
// register Collectors() with their own registry.
type PromMetrics struct {
	started   prometheus.Counter
	loaded    prometheus.Counter
	aborted   prometheus.Counter
	failed    prometheus.Counter
	resident  prometheus.Gauge
	inflight  prometheus.Gauge
}

// NewPromMetrics builds counters/gauges under the given namespace.
func NewPromMetrics(namespace string) *PromMetrics {
	return &PromMetrics{
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "chunkstreamer", Name: "fetches_started_total",
			Help: "Chunk fetches issued.",
		}),
		loaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "chunkstreamer", Name: "fetches_loaded_total",
			Help: "Chunk fetches that admitted a payload.",
		}),
		aborted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "chunkstreamer", Name: "fetches_aborted_total",
			Help: "Chunk fetches cancelled before completion.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "chunkstreamer", Name: "fetches_failed_total",
			Help: "Chunk fetches that returned an error.",
		}),
		resident: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "chunkstreamer", Name: "resident_chunks",
			Help: "Chunks currently admitted into the sink.",
		}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "chunkstreamer", Name: "inflight_chunks",
			Help: "Chunks currently being fetched or parsed.",
		}),
	}
}

// Collectors returns every collector so the host can register them.
func (m *PromMetrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.started, m.loaded, m.aborted, m.failed, m.resident, m.inflight}
}

func (m *PromMetrics) ObserveStarted()      { m.started.Inc() }
func (m *PromMetrics) ObserveLoaded()       { m.loaded.Inc() }
func (m *PromMetrics) ObserveAborted()      { m.aborted.Inc() }
func (m *PromMetrics) ObserveFailed()       { m.failed.Inc() }
func (m *PromMetrics) SetResidentCount(n int) { m.resident.Set(float64(n)) }
func (m *PromMetrics) SetInflightCount(n int) { m.inflight.Set(float64(n)) }
