package service

import (
	"log/slog"

	onboardingmetrics "firmgate/internal/onboarding/metrics"
	"firmgate/pkg/platform/circuit"
	"firmgate/pkg/platform/tracer"
)

type serviceConfig struct {
	logger  *slog.Logger
	metrics *onboardingmetrics.Metrics
	tracer  tracer.Tracer
	breaker *circuit.Breaker
}

type Option func(c *serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

func WithMetrics(m *onboardingmetrics.Metrics) Option {
	return func(c *serviceConfig) {
		c.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(c *serviceConfig) {
		c.tracer = t
	}
}

// WithBreaker fails identity calls fast while b is open. Only failures that
// are not domain errors count against it.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *serviceConfig) {
		c.breaker = b
	}
}
