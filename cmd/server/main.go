package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"firmgate/internal/access"
	"firmgate/internal/admin"
	"firmgate/internal/audit"
	firmhandler "firmgate/internal/firm/handler"
	firmmetrics "firmgate/internal/firm/metrics"
	firmservice "firmgate/internal/firm/service"
	"firmgate/internal/identity/devidp"
	"firmgate/internal/onboarding/dedupe"
	onboardinghandler "firmgate/internal/onboarding/handler"
	onboardingmetrics "firmgate/internal/onboarding/metrics"
	onboardingservice "firmgate/internal/onboarding/service"
	"firmgate/internal/onboarding/webhook"
	"firmgate/internal/platform/config"
	"firmgate/internal/platform/database"
	"firmgate/internal/platform/health"
	"firmgate/internal/platform/logger"
	"firmgate/internal/platform/redis"
	"firmgate/internal/session"
	tokenhandler "firmgate/internal/token/handler"
	tokenmetrics "firmgate/internal/token/metrics"
	tokenservice "firmgate/internal/token/service"
	httptransport "firmgate/internal/transport/http"
	"firmgate/pkg/platform/circuit"
	"firmgate/pkg/platform/middleware/metadata"
	"firmgate/pkg/platform/middleware/ratelimit"
	request "firmgate/pkg/platform/middleware/request"
	"firmgate/pkg/platform/tracer"
)

const (
	shutdownTimeout   = 10 * time.Second
	poolStatsInterval = 15 * time.Second

	identityFailureThreshold = 5
	identityCooldown         = 30 * time.Second
)

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

	log.Info("initializing firmgate",
		"addr", cfg.Addr,
		"env", cfg.Env,
		"database", cfg.DatabaseURL != "",
		"redis", cfg.Redis.URL != "",
		"audit_outbox", cfg.OutboxEnabled,
	)

	pool, err := database.New(ctx, database.ConfigFrom(cfg))
	if err != nil {
		return err
	}
	defer pool.Close() //nolint:errcheck // closing on exit

	st := newStores(pool, cfg.OutboxEnabled)

	rdb, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}

	var tr tracer.Tracer = tracer.NewNoop()
	if cfg.OTelEnabled {
		tr = tracer.NewOTel()
	}

	auditOpts := []audit.Option{audit.WithLogger(log)}
	if st.outbox != nil {
		auditOpts = append(auditOpts, audit.WithOutbox(st.outbox))
	}
	writer := audit.NewWriter(st.audit, auditOpts...)

	firms := firmservice.New(st.firms, writer,
		firmservice.WithLogger(log),
		firmservice.WithMetrics(firmmetrics.New()),
		firmservice.WithTx(st.tx),
	)
	tokens := tokenservice.New(st.tokens, st.firms, writer,
		tokenservice.WithLogger(log),
		tokenservice.WithMetrics(tokenmetrics.New()),
		tokenservice.WithTracer(tr),
		tokenservice.WithTx(st.tx),
		tokenservice.WithTTL(cfg.TokenTTL),
		tokenservice.WithBaseURL(cfg.BaseURL),
	)

	idp := devidp.New(
		devidp.WithVerification(cfg.RequireEmailVerification),
		devidp.WithLogger(log),
	)
	onboarding := onboardingservice.New(tokens, firms, idp,
		onboardingservice.WithLogger(log),
		onboardingservice.WithMetrics(onboardingmetrics.New()),
		onboardingservice.WithTracer(tr),
		onboardingservice.WithBreaker(circuit.New("identity",
			circuit.WithFailureThreshold(identityFailureThreshold),
			circuit.WithCooldown(identityCooldown),
		)),
	)

	classifier := access.NewClassifier(cfg.AdminEmail, firms, log, access.NewMetrics())
	admins := admin.NewService(st.admins, classifier, writer,
		admin.WithLogger(log),
		admin.WithTx(st.tx),
	)

	proxies, err := metadata.ParseTrustedProxies(cfg.TrustedProxyList())
	if err != nil {
		return fmt.Errorf("parse trusted proxies: %w", err)
	}

	healthHandler := health.New(cfg.Env, log)
	if pool != nil {
		healthHandler.RegisterCheck("database", pool.Health)
	}
	if rdb != nil {
		healthHandler.RegisterCheck("redis", rdb.Health)
	}

	routes := httptransport.Routes{
		Health:     healthHandler,
		Signup:     onboardinghandler.New(onboarding, log),
		Firms:      firmhandler.New(firms, log),
		Tokens:     tokenhandler.New(tokens, log),
		Admin:      admin.New(admins, writer, log),
		Access:     access.NewHandler(classifier, firms, log),
		Classifier: classifier,
	}
	if cfg.WebhookSecret != "" {
		wh, err := newWebhook(cfg.WebhookSecret, onboarding, rdb, log)
		if err != nil {
			return err
		}
		routes.Webhook = wh
	} else {
		log.Warn("WEBHOOK_SECRET not set; identity webhooks disabled")
	}

	router := httptransport.NewRouter(httptransport.Config{
		Logger:      log,
		Sessions:    session.NewMiddlewareAdapter(session.New(cfg.Session.SigningKey, cfg.Session.Issuer, cfg.Session.Audience, cfg.Session.TTL)),
		Metadata:    metadata.NewMiddleware(metadata.Config{TrustedProxies: proxies}),
		RateLimiter: ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst),
		Latency:     request.NewMetrics(),
	}, routes)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if rdb != nil {
		g.Go(func() error {
			rdb.RunPoolStats(gctx, poolStatsInterval)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		if rdb != nil {
			return rdb.Close()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
		return err
	}
	log.Info("server stopped")
	return nil
}

func newWebhook(secret string, reconciler webhook.Reconciler, rdb *redis.Client, log *slog.Logger) (*webhook.Handler, error) {
	verifier, err := webhook.NewSvixVerifier(secret)
	if err != nil {
		return nil, fmt.Errorf("webhook verifier: %w", err)
	}
	var deduper webhook.Deduper = dedupe.NewInMemory()
	if rdb != nil {
		deduper = dedupe.NewRedis(rdb.Client)
	}
	return webhook.New(reconciler, verifier, deduper, log), nil
}
