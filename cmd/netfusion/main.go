package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/netfusion/netfusion/pkg/api"
	"github.com/netfusion/netfusion/pkg/auth"
	"github.com/netfusion/netfusion/pkg/config"
	"github.com/netfusion/netfusion/pkg/httputil"
	"github.com/netfusion/netfusion/pkg/mapmedia"
	"github.com/netfusion/netfusion/pkg/observability"
	"github.com/netfusion/netfusion/pkg/store"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	s, err := store.Open(cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.WithField("driver", cfg.Store.Driver).Info("Store ready")

	if err := ensureBootstrapOwner(ctx, s, cfg.Auth.BootstrapEmail, cfg.Auth.BootstrapPassword, log); err != nil {
		log.Fatalf("Failed to bootstrap owner account: %v", err)
	}

	media, err := mapmedia.NewStore(cfg.Media.MapImageDir)
	if err != nil {
		log.Fatalf("Failed to initialize map media store: %v", err)
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	logger := observability.NewLogger(observability.ParseLogLevel(cfg.Log.Level), os.Stdout)

	s.SetObserver(metrics.ObserveStoreOperation)
	go refreshEntityGauges(ctx, s, metrics, log)

	sessions := auth.NewSessionManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL, cfg.Auth.CookieName)

	server := api.NewServer(api.Options{
		Store:      s,
		Sessions:   sessions,
		Media:      media,
		Metrics:    metrics,
		Logger:     logger,
		ResetToken: cfg.Auth.ResetToken,
	})

	handler := httputil.CORSMiddleware(cfg.Server.CORSOrigins)(server)

	mainServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	health := observability.NewHealthChecker(s.DB())
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", health.Liveness)
	healthMux.HandleFunc("/readyz", health.Readiness)
	healthMux.Handle("/metrics", metrics.Handler())
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	go func() {
		log.WithField("addr", healthServer.Addr).Info("Health/metrics server listening")
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Health server failed")
		}
	}()

	go func() {
		log.WithField("addr", mainServer.Addr).Info("API server listening")
		if err := mainServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("API server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := mainServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("API server shutdown failed")
	}
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Health server shutdown failed")
	}
}

// refreshEntityGauges keeps the user/site/device gauges in step with the
// database, refreshing once at startup and then on an interval.
func refreshEntityGauges(ctx context.Context, s *store.Store, metrics *observability.Metrics, log *logrus.Logger) {
	refresh := func() {
		counts, err := s.CountEntities(ctx)
		if err != nil {
			log.WithError(err).Warn("Failed to refresh entity gauges")
			return
		}
		metrics.SetEntityCounts(counts.Users, counts.Sites, counts.Devices)
	}

	refresh()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}

// ensureBootstrapOwner seeds a fallback owner account so a fresh deployment
// is never locked out. Does nothing when the email already exists.
func ensureBootstrapOwner(ctx context.Context, s *store.Store, email, password string, log *logrus.Logger) error {
	if email == "" || password == "" {
		return nil
	}

	_, err := s.GetUserByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if _, err := s.CreateUser(ctx, email, auth.RoleOwner, hash); err != nil {
		return err
	}
	log.WithField("email", email).Warn("Bootstrap owner account created; change its password")
	return nil
}
