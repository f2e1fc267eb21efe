package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusHooks implements every hook interface on top of Prometheus
// collectors registered in a dedicated registry.
type PrometheusHooks struct {
	registry *prometheus.Registry

	layoutPasses   prometheus.Counter
	layoutVisited  prometheus.Counter
	layoutCulled   prometheus.Counter
	layoutBoxes    prometheus.Counter
	layoutDuration prometheus.Histogram
	rootSwitches   prometheus.Counter

	cacheEvents *prometheus.CounterVec
	cacheBytes  *prometheus.CounterVec

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewPrometheusHooks creates the collectors and registers them in reg.
// Each call should use its own registry to avoid duplicate registration.
func NewPrometheusHooks(reg *prometheus.Registry) *PrometheusHooks {
	h := &PrometheusHooks{
		registry: reg,
		layoutPasses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bbflame_layout_passes_total",
			Help: "Number of flame-graph layout passes.",
		}),
		layoutVisited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bbflame_layout_nodes_visited_total",
			Help: "Nodes dequeued by layout passes.",
		}),
		layoutCulled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bbflame_layout_nodes_culled_total",
			Help: "Subtrees skipped because they lie outside the visible window.",
		}),
		layoutBoxes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bbflame_layout_boxes_total",
			Help: "Boxes emitted by layout passes.",
		}),
		layoutDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bbflame_layout_duration_seconds",
			Help:    "Duration of layout passes.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 4, 8),
		}),
		rootSwitches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bbflame_root_switches_total",
			Help: "Root selections performed by viewport controllers.",
		}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bbflame_cache_events_total",
			Help: "Cache hits, misses and writes by key type.",
		}, []string{"key_type", "event"}),
		cacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bbflame_cache_written_bytes_total",
			Help: "Bytes written to the cache by key type.",
		}, []string{"key_type"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bbflame_http_requests_total",
			Help: "HTTP viewer requests by route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bbflame_http_request_duration_seconds",
			Help:    "HTTP viewer request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		h.layoutPasses, h.layoutVisited, h.layoutCulled, h.layoutBoxes, h.layoutDuration,
		h.rootSwitches, h.cacheEvents, h.cacheBytes, h.requests, h.requestDuration,
	)
	return h
}

// Handler returns the /metrics scrape handler for the hooks' registry.
func (h *PrometheusHooks) Handler() http.Handler {
	return promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{})
}

func (h *PrometheusHooks) OnLayoutPass(_ uint64, visited, culled, boxes int, d time.Duration) {
	h.layoutPasses.Inc()
	h.layoutVisited.Add(float64(visited))
	h.layoutCulled.Add(float64(culled))
	h.layoutBoxes.Add(float64(boxes))
	h.layoutDuration.Observe(d.Seconds())
}

func (h *PrometheusHooks) OnRootSelected(int) { h.rootSwitches.Inc() }

func (h *PrometheusHooks) OnCacheHit(_ context.Context, keyType string) {
	h.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (h *PrometheusHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (h *PrometheusHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.cacheEvents.WithLabelValues(keyType, "set").Inc()
	h.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (h *PrometheusHooks) OnRequest(_ context.Context, method, route string, status int, d time.Duration) {
	h.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	h.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ LayoutHooks = (*PrometheusHooks)(nil)
	_ CacheHooks  = (*PrometheusHooks)(nil)
	_ HTTPHooks   = (*PrometheusHooks)(nil)
)
