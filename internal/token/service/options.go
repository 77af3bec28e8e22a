package service

import (
	"log/slog"
	"time"

	tokenmetrics "firmgate/internal/token/metrics"
	"firmgate/pkg/platform/tracer"
)

type serviceConfig struct {
	logger    *slog.Logger
	metrics   *tokenmetrics.Metrics
	tracer    tracer.Tracer
	tx        StoreTx
	generator Generator
	ttl       time.Duration
	baseURL   string
}

type Option func(c *serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

func WithMetrics(m *tokenmetrics.Metrics) Option {
	return func(c *serviceConfig) {
		c.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(c *serviceConfig) {
		c.tracer = t
	}
}

func WithTx(tx StoreTx) Option {
	return func(c *serviceConfig) {
		c.tx = tx
	}
}

// WithGenerator replaces the crypto/rand token generator.
func WithGenerator(g Generator) Option {
	return func(c *serviceConfig) {
		c.generator = g
	}
}

// WithTTL sets the lifetime of issued tokens. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(c *serviceConfig) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithBaseURL sets the origin used by OnboardingLink.
func WithBaseURL(baseURL string) Option {
	return func(c *serviceConfig) {
		c.baseURL = baseURL
	}
}
