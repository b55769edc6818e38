// Package metrics holds the Prometheus collectors for the pipeline stages and
// the HTTP API. Collectors live in package variables and go onto the default
// registry through the Register* helpers, each of which is idempotent.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vecrag"

func counter(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, labels)
}

func histogram(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)
}

// group registers its collectors at most once.
type group struct {
	once       sync.Once
	collectors func() []prometheus.Collector
}

func (g *group) register() {
	g.once.Do(func() { prometheus.MustRegister(g.collectors()...) })
}
