// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
package main

import (
	"context"
	"crypto/sha256"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"afyalink/internal/audit"
	"afyalink/internal/auth"
	consentmetrics "afyalink/internal/consent/metrics"
	consentservice "afyalink/internal/consent/service"
	consentstore "afyalink/internal/consent/store"
	"afyalink/internal/directory"
	"afyalink/internal/ledger"
	"afyalink/internal/notification"
	"afyalink/internal/platform/config"
	"afyalink/internal/platform/health"
	"afyalink/internal/platform/httpserver"
	"afyalink/internal/platform/logger"
	"afyalink/internal/platform/tracer"
	recordsmetrics "afyalink/internal/records/metrics"
	recordsservice "afyalink/internal/records/service"
	recordsstore "afyalink/internal/records/store"
	"afyalink/internal/seeder"
	httptransport "afyalink/internal/transport/http"
	"afyalink/pkg/seal"
)

const tokenTTL = 12 * time.Hour

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing afyalink",
		"addr", cfg.Addr,
		"ledger_path", cfg.LedgerPath,
		"seed_demo_data", cfg.SeedDemoData,
	)

	ldb, err := ledger.OpenLevelDB(cfg.LedgerPath)
	if err != nil {
		log.Error("failed to open ledger", "error", err)
		os.Exit(1)
	}
	defer ldb.Close()
	anchors := ledger.NewResilient(ldb, log)

	// The seal key is operator-supplied text; stretch it to cipher size.
	sealKey := sha256.Sum256([]byte(cfg.SealKey))
	sealer, err := seal.New(sealKey[:])
	if err != nil {
		log.Error("failed to initialize record sealer", "error", err)
		os.Exit(1)
	}

	dir := directory.NewInMemoryStore()
	notifier := notification.NewService(log)
	auditor := audit.NewPublisher(audit.NewInMemoryStore(),
		audit.WithAsyncBuffer(256),
		audit.WithPublisherLogger(log),
	)
	defer auditor.Close()

	trace := tracer.NewOTel()

	consentSvc := consentservice.NewService(consentstore.New(), dir, notifier, auditor, log,
		consentservice.WithMetrics(consentmetrics.New()),
		consentservice.WithTracer(trace),
		consentservice.WithConsentTTL(cfg.ConsentTTL),
	)
	recordsSvc := recordsservice.NewService(recordsstore.New(), consentSvc, dir, notifier, auditor,
		sealer, anchors, log,
		recordsservice.WithMetrics(recordsmetrics.New()),
		recordsservice.WithTracer(trace),
	)

	if cfg.SeedDemoData {
		if err := seeder.New(dir, consentSvc, recordsSvc, log).Seed(context.Background()); err != nil {
			log.Error("failed to seed demo data", "error", err)
			os.Exit(1)
		}
	}

	tokens := auth.NewTokenService(cfg.JWTSigningKey, "afyalink", tokenTTL)

	handlers := httptransport.Handlers{
		Auth:          httptransport.NewAuthHandler(tokens, dir, log),
		Directory:     httptransport.NewDirectoryHandler(dir, log),
		Consent:       httptransport.NewConsentHandler(consentSvc, log),
		Records:       httptransport.NewRecordsHandler(recordsSvc, log),
		Notifications: httptransport.NewNotificationsHandler(notifier, log),
		Dashboard:     httptransport.NewDashboardHandler(consentSvc, recordsSvc, notifier, dir, log),
	}
	probes := health.New()
	probes.RegisterCheck("ledger", func() error {
		if anchors.Degraded() {
			return errors.New("ledger circuit open, anchors degraded")
		}
		return nil
	})

	router := httptransport.NewRouter(handlers, tokens, probes, log)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
