package metrics

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the Prometheus registry for the service. A nil Collector is
// valid and records nothing.
type Collector struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	taskMutations   *prometheus.CounterVec
	cycleLaunches   *prometheus.CounterVec
	cycleMembers    prometheus.Histogram
	rollupDuration  prometheus.Histogram

	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64
}

func New() *Collector {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	taskMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "perfhub_task_mutations_total",
		Help: "Task store mutations by operation",
	}, []string{"op"})

	cycleLaunches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "perfhub_cycle_launches_total",
		Help: "Evaluation cycle launches by outcome",
	}, []string{"outcome"})

	cycleMembers := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "perfhub_cycle_members",
		Help:    "Members per launched evaluation cycle",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
	})

	rollupDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "perfhub_rollup_duration_seconds",
		Help:    "Duration of parent progress recomputation",
		Buckets: prometheus.DefBuckets,
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, taskMutations, cycleLaunches, cycleMembers, rollupDuration, goroutines)

	return &Collector{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		taskMutations:   taskMutations,
		cycleLaunches:   cycleLaunches,
		cycleMembers:    cycleMembers,
		rollupDuration:  rollupDuration,
	}
}

func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return c.handler
}

func (c *Collector) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	c.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	c.requestTotal.WithLabelValues(method, path, labelStatus).Inc()

	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == http.StatusTooManyRequests {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

func (c *Collector) ObserveTaskMutation(op string) {
	if c == nil {
		return
	}
	c.taskMutations.WithLabelValues(op).Inc()
}

func (c *Collector) ObserveCycleLaunch(outcome string, members int) {
	if c == nil {
		return
	}
	c.cycleLaunches.WithLabelValues(outcome).Inc()
	if members > 0 {
		c.cycleMembers.Observe(float64(members))
	}
}

func (c *Collector) ObserveRollup(duration time.Duration) {
	if c == nil {
		return
	}
	c.rollupDuration.Observe(duration.Seconds())
}

// Snapshot returns request totals for the admin status endpoint.
func (c *Collector) Snapshot() map[string]any {
	if c == nil {
		return map[string]any{}
	}
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":    total,
		"errorsTotal":      errs,
		"rateLimitedTotal": limited,
		"avgDurationMs":    avg,
		"totalDurationMs":  totalMs,
		"goroutines":       runtime.NumGoroutine(),
	}
}
