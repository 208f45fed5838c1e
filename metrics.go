package idtoken

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/auth0/go-idtoken/core"
)

// outcomeValid labels a successful validation.
const outcomeValid = "valid"

// Metrics receives validation and key fetch measurements.
type Metrics interface {
	// ObserveValidation is called once per Validate call. outcome is
	// "valid" or the error code of the failure.
	ObserveValidation(outcome string, duration time.Duration)
	// ObserveKeyFetch is called once per remote key-set fetch.
	ObserveKeyFetch(authority string, duration time.Duration, err error)
}

// NoopMetrics is a default metrics implementation that does nothing.
type NoopMetrics struct{}

func (NoopMetrics) ObserveValidation(string, time.Duration)      {}
func (NoopMetrics) ObserveKeyFetch(string, time.Duration, error) {}

// PrometheusMetrics implements the Metrics interface using Prometheus.
type PrometheusMetrics struct {
	validations        *prometheus.CounterVec
	validationDuration prometheus.Histogram
	keyFetches         *prometheus.CounterVec
	keyFetchDuration   prometheus.Histogram
}

// NewPrometheusMetrics creates the collectors and registers them on reg,
// or on the default registerer when reg is nil.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	validations, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "idtoken_validations_total",
		Help: "ID token validations by outcome.",
	}, []string{"code"}))
	if err != nil {
		return nil, err
	}

	validationDuration, err := register[prometheus.Histogram](reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "idtoken_validation_duration_seconds",
		Help:    "Time spent validating an ID token, key fetches included.",
		Buckets: prometheus.DefBuckets,
	}))
	if err != nil {
		return nil, err
	}

	keyFetches, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "idtoken_jwks_fetches_total",
		Help: "Remote key-set fetches by outcome.",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}

	keyFetchDuration, err := register[prometheus.Histogram](reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "idtoken_jwks_fetch_duration_seconds",
		Help:    "Time spent fetching a remote key set.",
		Buckets: prometheus.DefBuckets,
	}))
	if err != nil {
		return nil, err
	}

	return &PrometheusMetrics{
		validations:        validations,
		validationDuration: validationDuration,
		keyFetches:         keyFetches,
		keyFetchDuration:   keyFetchDuration,
	}, nil
}

// register registers c, or returns the collector already registered under
// the same descriptor so several validators can share one registry.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, err
	}
	return c, nil
}

func (m *PrometheusMetrics) ObserveValidation(outcome string, duration time.Duration) {
	m.validations.WithLabelValues(outcome).Inc()
	m.validationDuration.Observe(duration.Seconds())
}

func (m *PrometheusMetrics) ObserveKeyFetch(_ string, duration time.Duration, err error) {
	label := "success"
	if err != nil {
		label = "failure"
	}
	m.keyFetches.WithLabelValues(label).Inc()
	m.keyFetchDuration.Observe(duration.Seconds())
}

func outcome(err error) string {
	if err == nil {
		return outcomeValid
	}
	if code := core.Code(err); code != "" {
		return code
	}
	return "unknown"
}
