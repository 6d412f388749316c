package pool

import "github.com/prometheus/client_golang/prometheus"

// Metrics wraps the Prometheus instruments the pool exposes, grounded on the
// teacher's HealthLogger wiring (core/system_health_logging.go): a
// dedicated registry plus one instrument per observed quantity, registered
// once at construction.
type Metrics struct {
	registry       *prometheus.Registry
	putCounter     *prometheus.CounterVec
	deleteCounter  *prometheus.CounterVec
	bytesPutCtr    *prometheus.CounterVec
	bytesDeleteCtr *prometheus.CounterVec
}

// NewMetrics constructs and registers the pool's Prometheus instruments
// against a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		putCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "offs_pool_puts_total",
			Help: "Total number of new blocks inserted per pool.",
		}, []string{"pool"}),
		deleteCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "offs_pool_deletes_total",
			Help: "Total number of blocks deleted per pool.",
		}, []string{"pool"}),
		bytesPutCtr: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "offs_pool_bytes_put_total",
			Help: "Total bytes of new block content inserted per pool.",
		}, []string{"pool"}),
		bytesDeleteCtr: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "offs_pool_bytes_deleted_total",
			Help: "Total bytes of block content deleted per pool.",
		}, []string{"pool"}),
	}
	reg.MustRegister(m.putCounter, m.deleteCounter, m.bytesPutCtr, m.bytesDeleteCtr)
	return m
}

// Registry returns the registry metrics are registered against, for wiring
// into an HTTP handler (e.g. promhttp.HandlerFor) by the CLI or engine.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObservePut records a newly inserted block for poolId.
func (m *Metrics) ObservePut(poolId string, sizeBytes int) {
	m.putCounter.WithLabelValues(poolId).Inc()
	m.bytesPutCtr.WithLabelValues(poolId).Add(float64(sizeBytes))
}

// ObserveDelete records a deleted block for poolId.
func (m *Metrics) ObserveDelete(poolId string, sizeBytes int) {
	m.deleteCounter.WithLabelValues(poolId).Inc()
	m.bytesDeleteCtr.WithLabelValues(poolId).Add(float64(sizeBytes))
}
