package metrics

import (
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry maps the flow framework's dotted metric names onto prometheus
// collectors. Lookup is by the original name; the prometheus name is a
// sanitized form of it.
type Registry struct {
	prom       *prometheus.Registry
	mu         sync.Mutex
	collectors map[string]prometheus.Collector
}

func NewRegistry() *Registry {
	return &Registry{
		prom:       prometheus.NewRegistry(),
		collectors: make(map[string]prometheus.Collector),
	}
}

func sanitizeName(name string) string {
	replacer := strings.NewReplacer(".", "_", " ", "_", "-", "_")
	return strings.ToLower(replacer.Replace(name))
}

func (r *Registry) Counter(name string) prometheus.Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.collectors[name]; ok {
		return c.(prometheus.Counter)
	}
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Name: sanitizeName(name),
		Help: name,
	})
	r.prom.MustRegister(c)
	r.collectors[name] = c
	return c
}

func (r *Registry) Histogram(name string, buckets []float64) prometheus.Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.collectors[name]; ok {
		return c.(prometheus.Histogram)
	}
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    sanitizeName(name),
		Help:    name,
		Buckets: buckets,
	})
	r.prom.MustRegister(h)
	r.collectors[name] = h
	return h
}

func (r *Registry) GaugeFunc(name string, fn func() float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.collectors[name]; ok {
		return
	}
	g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: sanitizeName(name),
		Help: name,
	}, fn)
	r.prom.MustRegister(g)
	r.collectors[name] = g
}

// Registered reports whether a collector exists under the given name.
func (r *Registry) Registered(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.collectors[name]
	return ok
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prom, promhttp.HandlerOpts{})
}
