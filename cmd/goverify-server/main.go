package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goVerify "github.com/MrEthical07/goVerify"
	"github.com/MrEthical07/goVerify/envconfig"
	"github.com/MrEthical07/goVerify/internal/httpapi"
	otelexport "github.com/MrEthical07/goVerify/metrics/export/otel"
	promexport "github.com/MrEthical07/goVerify/metrics/export/prometheus"
	"github.com/MrEthical07/goVerify/userstore/sqlite"
	cron "github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const appName = "goverify"

func main() {
	log := envconfig.InitLogger(appName)

	settings, err := envconfig.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	srv := settings.Server
	cfg := settings.Engine

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, closeRedis, err := openRedis(srv, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to redis")
	}
	defer closeRedis()
	if srv.DevRedis && cfg.ProductionMode {
		log.Warn("GOVERIFY_DEV_REDIS is set in production mode")
	}

	users, err := sqlite.Open(srv.SQLitePath)
	if err != nil {
		log.WithError(err).Fatal("Failed to open user store")
	}
	defer users.Close()

	sender, err := buildSender(ctx, srv, cfg.Codes.DebugEcho, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to configure delivery")
	}

	auditSink, err := buildAuditSink(ctx, srv, cfg.Audit.Enabled, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to configure audit sink")
	}

	builder := goVerify.New().
		WithRedis(rdb).
		WithUserProvider(users).
		WithSender(sender).
		WithLogger(log)
	if auditSink != nil {
		cfg.Audit.Enabled = true
		builder = builder.WithAuditSink(auditSink)
	}
	engine, err := builder.WithConfig(cfg).Build()
	if err != nil {
		log.WithError(err).Fatal("Failed to build engine")
	}
	defer engine.Close()

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metricsHandler = promexport.NewExporter(engine).Handler()
	}

	report := func() { logSnapshot(log, engine) }
	if cfg.Metrics.Enabled && srv.MetricsExporter == "otel" {
		reader := sdkmetric.NewManualReader()
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		defer func() { _ = provider.Shutdown(context.Background()) }()

		exporter, err := otelexport.NewExporter(provider.Meter(appName), engine)
		if err != nil {
			log.WithError(err).Fatal("Failed to register otel exporter")
		}
		defer exporter.Close()
		report = func() { logCollected(ctx, log, reader) }
	}

	c := cron.New()
	if _, err := c.AddFunc(srv.ReportSchedule, report); err != nil {
		log.WithError(err).Fatal("Failed to schedule metrics report")
	}
	c.Start()
	defer c.Stop()

	handler := httpapi.NewRouter(httpapi.Deps{
		Engine:  engine,
		Logger:  log,
		Metrics: metricsHandler,
		Health: map[string]httpapi.HealthCheck{
			"redis":  func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			"sqlite": users.Ping,
		},
		AllowedOrigins:     srv.CORSOrigins,
		TrustProxy:         srv.TrustProxy,
		RatePerSecond:      srv.HTTPRate,
		Burst:              srv.HTTPBurst,
		DefaultCountryCode: srv.DefaultCountryCode,
	})

	server := &http.Server{
		Addr:              srv.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Infof("Starting %s on %s", srv.ServiceName, srv.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("HTTP server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), srv.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Graceful shutdown failed")
	}
}

type snapshotSource interface {
	MetricsSnapshot() goVerify.MetricsSnapshot
	AuditDropped() uint64
	DeliveryDropped() uint64
}

func logSnapshot(log logrus.FieldLogger, src snapshotSource) {
	snap := src.MetricsSnapshot()
	log.WithFields(logrus.Fields{
		"codes_sent":       snap.Counters[goVerify.MetricCodeSent],
		"codes_throttled":  snap.Counters[goVerify.MetricCodeThrottled],
		"delivery_failed":  snap.Counters[goVerify.MetricCodeDeliveryFailed],
		"login_success":    snap.Counters[goVerify.MetricLoginSuccess],
		"login_failure":    snap.Counters[goVerify.MetricLoginFailure],
		"audit_dropped":    src.AuditDropped(),
		"delivery_dropped": src.DeliveryDropped(),
	}).Info("metrics report")
}
