package service

import (
	"log/slog"

	firmmetrics "firmgate/internal/firm/metrics"
)

type serviceConfig struct {
	logger  *slog.Logger
	metrics *firmmetrics.Metrics
	tx      StoreTx
}

type Option func(c *serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

func WithMetrics(m *firmmetrics.Metrics) Option {
	return func(c *serviceConfig) {
		c.metrics = m
	}
}

// WithTx replaces the default in-memory transaction runner.
func WithTx(tx StoreTx) Option {
	return func(c *serviceConfig) {
		c.tx = tx
	}
}
