// Package metrics wraps a Prometheus registry with the counters and
// histograms the engine's own components (validator, cache, planner)
// report against.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the single metrics surface every engine component is
// handed at construction time.
type Registry struct {
	registry *prometheus.Registry

	// Validator metrics (C6)
	validationsTotal   *prometheus.CounterVec
	validationDuration *prometheus.HistogramVec
	validationSteps    prometheus.Histogram
	replayRejections   *prometheus.CounterVec
	maxStepsExceeded   prometheus.Counter

	// Certificate cache metrics (C5)
	cacheHitsTotal      prometheus.Counter
	cacheMissesTotal    prometheus.Counter
	cacheEvictionsTotal *prometheus.CounterVec
	cacheSize           prometheus.Gauge

	// Signing planner metrics (C7)
	signOperationsTotal *prometheus.CounterVec
	signChainLength     prometheus.Histogram
	signBacktracksTotal prometheus.Counter
	certificatesIssued  prometheus.Counter
}

// NewRegistry builds and registers every metric this engine exposes.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,

		validationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trustschema_validations_total",
				Help: "Total number of packets run through the validator, by outcome",
			},
			[]string{"outcome"},
		),
		validationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trustschema_validation_duration_seconds",
				Help:    "Wall-clock time from Validate() to a terminal outcome",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		validationSteps: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "trustschema_validation_steps",
				Help:    "Number of certificate-fetch hops a validation needed before reaching a terminal outcome",
				Buckets: []float64{0, 1, 2, 3, 4, 5, 7, 10},
			},
		),
		replayRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trustschema_replay_rejections_total",
				Help: "Total signed Interests rejected for failing the timestamp/replay check",
			},
			[]string{"reason"},
		),
		maxStepsExceeded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "trustschema_validation_max_steps_exceeded_total",
				Help: "Total validations that hit the step limit before reaching a trust anchor",
			},
		),

		cacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "trustschema_cert_cache_hits_total",
				Help: "Total certificate cache lookups that hit",
			},
		),
		cacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "trustschema_cert_cache_misses_total",
				Help: "Total certificate cache lookups that missed",
			},
		),
		cacheEvictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trustschema_cert_cache_evictions_total",
				Help: "Total certificate cache evictions, by reason",
			},
			[]string{"reason"},
		),
		cacheSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "trustschema_cert_cache_size",
				Help: "Current number of certificates held in the cache",
			},
		),

		signOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trustschema_sign_operations_total",
				Help: "Total Sign() calls, by outcome",
			},
			[]string{"outcome"},
		),
		signChainLength: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "trustschema_sign_chain_length",
				Help:    "Number of certificates materialised by a successful Sign() call",
				Buckets: []float64{0, 1, 2, 3, 4, 5},
			},
		),
		signBacktracksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "trustschema_sign_chain_backtracks_total",
				Help: "Total times the signing planner's DFS abandoned a candidate signer and tried the next alternative",
			},
		),
		certificatesIssued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "trustschema_certificates_issued_total",
				Help: "Total intermediate identity certificates issued by the signing planner",
			},
		),
	}

	r.registry.MustRegister(
		r.validationsTotal,
		r.validationDuration,
		r.validationSteps,
		r.replayRejections,
		r.maxStepsExceeded,
		r.cacheHitsTotal,
		r.cacheMissesTotal,
		r.cacheEvictionsTotal,
		r.cacheSize,
		r.signOperationsTotal,
		r.signChainLength,
		r.signBacktracksTotal,
		r.certificatesIssued,
	)

	return r
}

// Registerer exposes the underlying prometheus.Registry so an HTTP
// handler (promhttp.HandlerFor) can be mounted by the caller without this
// package depending on net/http itself.
func (r *Registry) Registerer() *prometheus.Registry { return r.registry }

// RecordValidation is called once per terminal Validate() outcome.
func (r *Registry) RecordValidation(outcome string, duration time.Duration, steps int) {
	r.validationsTotal.WithLabelValues(outcome).Inc()
	r.validationDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	r.validationSteps.Observe(float64(steps))
}

func (r *Registry) RecordReplayRejection(reason string) {
	r.replayRejections.WithLabelValues(reason).Inc()
}

func (r *Registry) RecordMaxStepsExceeded() {
	r.maxStepsExceeded.Inc()
}

func (r *Registry) RecordCacheHit()  { r.cacheHitsTotal.Inc() }
func (r *Registry) RecordCacheMiss() { r.cacheMissesTotal.Inc() }

func (r *Registry) RecordCacheEviction(reason string) {
	r.cacheEvictionsTotal.WithLabelValues(reason).Inc()
}

func (r *Registry) SetCacheSize(n int) { r.cacheSize.Set(float64(n)) }

func (r *Registry) RecordSignOperation(outcome string, chainLength int) {
	r.signOperationsTotal.WithLabelValues(outcome).Inc()
	if outcome == "success" {
		r.signChainLength.Observe(float64(chainLength))
		r.certificatesIssued.Add(float64(chainLength))
	}
}

func (r *Registry) RecordSignBacktrack() { r.signBacktracksTotal.Inc() }
