package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the HLS gateway.
type Metrics struct {
	registry                *prometheus.Registry
	requestsTotal           prometheus.Counter
	errorsTotal             prometheus.Counter
	manifestsRewrittenTotal *prometheus.CounterVec
	segmentsServedTotal     prometheus.Counter
	segmentBytesTotal       prometheus.Counter
	storageProbesTotal      *prometheus.CounterVec
	readyAssets             prometheus.Gauge
}

// New creates and registers Prometheus metrics for the gateway.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_gateway_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_gateway_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	manifestsRewrittenTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hls_gateway_manifests_rewritten_total",
		Help: "Total number of manifests rewritten, by kind (master or variant)",
	}, []string{"kind"})
	segmentsServedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_gateway_segments_served_total",
		Help: "Total number of media segments streamed to clients",
	})
	segmentBytesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_gateway_segment_bytes_total",
		Help: "Total number of segment body bytes streamed to clients",
	})
	storageProbesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hls_gateway_storage_probes_total",
		Help: "Total number of candidate key probes against the object store, by outcome (hit, miss, error)",
	}, []string{"outcome"})
	readyAssets := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hls_gateway_ready_assets",
		Help: "Number of media assets currently in ready status",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		manifestsRewrittenTotal,
		segmentsServedTotal,
		segmentBytesTotal,
		storageProbesTotal,
		readyAssets,
	)

	return &Metrics{
		registry:                registry,
		requestsTotal:           requestsTotal,
		errorsTotal:             errorsTotal,
		manifestsRewrittenTotal: manifestsRewrittenTotal,
		segmentsServedTotal:     segmentsServedTotal,
		segmentBytesTotal:       segmentBytesTotal,
		storageProbesTotal:      storageProbesTotal,
		readyAssets:             readyAssets,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncManifestsRewritten increments the manifest rewrite counter for the given
// kind ("master" or "variant").
func (m *Metrics) IncManifestsRewritten(kind string) {
	m.manifestsRewrittenTotal.WithLabelValues(kind).Inc()
}

// IncSegmentsServed increments the segments served counter.
func (m *Metrics) IncSegmentsServed() {
	m.segmentsServedTotal.Inc()
}

// AddSegmentBytes adds n to the streamed segment bytes counter.
func (m *Metrics) AddSegmentBytes(n int64) {
	if n > 0 {
		m.segmentBytesTotal.Add(float64(n))
	}
}

// IncStorageProbe increments the candidate probe counter for the given
// outcome ("hit", "miss", or "error").
func (m *Metrics) IncStorageProbe(outcome string) {
	m.storageProbesTotal.WithLabelValues(outcome).Inc()
}

// SetReadyAssets sets the ready assets gauge.
func (m *Metrics) SetReadyAssets(n int) {
	m.readyAssets.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. ready assets).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
