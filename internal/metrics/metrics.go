package metrics

import (
	"math"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"healthScope/internal/model"
)

const namespace = "healthscope"

// Metrics groups the pipeline collectors. A nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	fetches      *prometheus.CounterVec
	fetchLatency *prometheus.HistogramVec
	cacheLookups *prometheus.CounterVec
	healthFactor *prometheus.GaugeVec
	tier         *prometheus.GaugeVec
	nextRefresh  prometheus.Gauge
	cycles       *prometheus.CounterVec
}

// New registers the collectors on a fresh registry, plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "Account data fetches by network and result kind.",
		}, []string{"network", "result"}),
		fetchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Latency of getUserAccountData calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"network"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by outcome.",
		}, []string{"outcome"}),
		healthFactor: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "health_factor",
			Help:      "Latest finite health factor per account; +Inf when unbounded.",
		}, []string{"network", "address"}),
		tier: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "risk_tier",
			Help:      "Latest risk tier per account (0 safe, 1 warning, 2 danger).",
		}, []string{"network", "address"}),
		nextRefresh: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "next_refresh_minutes",
			Help:      "Delay until the next scheduled refresh of the pinned account.",
		}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_cycles_total",
			Help:      "Scheduler cycles by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		m.fetches,
		m.fetchLatency,
		m.cacheLookups,
		m.healthFactor,
		m.tier,
		m.nextRefresh,
		m.cycles,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveFetch records one RPC fetch outcome. err == nil counts as "ok".
func (m *Metrics) ObserveFetch(network string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = model.ErrorKind(err)
	}
	m.fetches.WithLabelValues(network, result).Inc()
	m.fetchLatency.WithLabelValues(network).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheLookups.WithLabelValues(outcome).Inc()
}

// ObserveAccount publishes the latest health factor and tier of an account.
func (m *Metrics) ObserveAccount(key model.AccountKey, hf model.HealthFactor, tier model.RiskTier) {
	if m == nil {
		return
	}
	address := key.Address.Hex()
	value := prometheus.Labels{"network": key.Network, "address": address}
	if hf.Infinite {
		m.healthFactor.With(value).Set(math.Inf(1))
	} else {
		m.healthFactor.With(value).Set(hf.Value.InexactFloat64())
	}
	m.tier.With(value).Set(float64(tier))
}

// ForgetAccount drops the per-account series.
func (m *Metrics) ForgetAccount(key model.AccountKey) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{"network": key.Network, "address": key.Address.Hex()}
	m.healthFactor.Delete(labels)
	m.tier.Delete(labels)
}

func (m *Metrics) SetNextRefresh(minutes int) {
	if m == nil {
		return
	}
	m.nextRefresh.Set(float64(minutes))
}

func (m *Metrics) ObserveCycle(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.cycles.WithLabelValues(outcome).Inc()
}
