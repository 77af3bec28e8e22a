// Package main relays audit outbox rows to Kafka. It runs beside the server
// when AUDIT_OUTBOX_ENABLED is set.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"firmgate/internal/audit/outbox/metrics"
	outboxpostgres "firmgate/internal/audit/outbox/postgres"
	"firmgate/internal/audit/outbox/worker"
	"firmgate/internal/platform/config"
	"firmgate/internal/platform/database"
	"firmgate/internal/platform/kafka/producer"
	"firmgate/internal/platform/logger"
	"firmgate/pkg/platform/tx"
)

const metricsAddr = ":9090"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.New(ctx, database.ConfigFrom(cfg))
	if err != nil {
		return err
	}
	if pool == nil {
		return errors.New("audit-relay: DATABASE_URL must be set")
	}
	defer pool.Close() //nolint:errcheck // closing on exit

	prod, err := producer.New(producer.DefaultConfig(cfg.KafkaBrokerList()), log)
	if err != nil {
		return fmt.Errorf("audit-relay: %w", err)
	}
	defer prod.Close() //nolint:errcheck // closing on exit

	w := worker.New(outboxpostgres.New(pool.DB()), prod,
		worker.WithTopic(cfg.Kafka.AuditTopic),
		worker.WithBatchSize(cfg.Kafka.BatchSize),
		worker.WithPollInterval(cfg.Kafka.PollEvery),
		worker.WithTx(tx.NewPostgres(pool.DB())),
		worker.WithMetrics(metrics.New()),
		worker.WithLogger(log),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	log.Info("starting audit relay",
		"topic", cfg.Kafka.AuditTopic,
		"batch_size", cfg.Kafka.BatchSize,
		"poll_interval", cfg.Kafka.PollEvery,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(gctx)
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("audit relay stopped with error", "error", err)
		return err
	}
	log.Info("audit relay stopped")
	return nil
}
