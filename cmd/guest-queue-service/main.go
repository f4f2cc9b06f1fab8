package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"qms/guest-queue-service/internal/config"
	"qms/guest-queue-service/internal/database"
	"qms/guest-queue-service/internal/httpapi"
	"qms/guest-queue-service/internal/logging"
	"qms/guest-queue-service/internal/store"
	"qms/guest-queue-service/internal/store/postgres"
	"qms/guest-queue-service/internal/telemetry"
	"qms/guest-queue-service/internal/worker"
)

const serviceName = "guest-queue-service"

func main() {
	configPath := pflag.StringP("config", "c", "", "path to a YAML config file")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Env)
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DB_DSN is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry := telemetry.Setup(ctx, serviceName, cfg.Env, log)

	pool, err := database.Connect(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := database.Migrate(cfg.DatabaseURL, log); err != nil {
			log.Fatal().Err(err).Msg("db migrate")
		}
	}

	queueStore := postgres.NewStore(pool, postgres.Options{
		Departments:    store.NewDepartments(cfg.Departments),
		Calendar:       store.NewCalendar(cfg.Location),
		StatsCacheSize: cfg.StatsCacheSize,
		StatsCacheTTL:  cfg.StatsCacheTTL,
		GuestCacheTTL:  cfg.GuestCacheTTL,
	})
	handler := httpapi.NewHandler(queueStore, httpapi.Options{
		Logger:         log,
		Ready:          database.NewReadinessChecker(pool),
		AdminJWTSecret: cfg.AdminJWTSecret,
		CORSOrigins:    cfg.CORSOrigins,
		RateLimiter: httpapi.NewRateLimiter(httpapi.RateLimitConfig{
			PerMinute:      cfg.RateLimitPerMinute,
			Burst:          cfg.RateLimitBurst,
			TrustedProxies: cfg.TrustedProxies,
		}),
		CanViewAllDepartments: cfg.CanViewAllDepartments,
	})

	reconciler := worker.NewReconciler(queueStore, worker.Config{
		BatchSize: cfg.ReconcileBatchSize,
		Interval:  cfg.ReconcileInterval,
	}, log)
	go reconciler.Run(ctx)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(handler.Routes(), serviceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Str("timezone", cfg.Location.String()).Msg("guest-queue-service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("telemetry shutdown error")
	}
}
