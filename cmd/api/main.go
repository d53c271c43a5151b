package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/chatforge/gateway/internal/api"
	"github.com/chatforge/gateway/internal/api/handlers"
	"github.com/chatforge/gateway/internal/captcha"
	"github.com/chatforge/gateway/internal/config"
	"github.com/chatforge/gateway/internal/metrics"
	"github.com/chatforge/gateway/internal/persona"
	"github.com/chatforge/gateway/internal/provider"
	"github.com/chatforge/gateway/internal/ratelimit"
	"github.com/chatforge/gateway/internal/storage/redis"
	"github.com/chatforge/gateway/internal/tenant"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger, err := newLogger(cfg.Server.Mode)
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer logger.Sync()

	// Tenant table: Postgres when configured, otherwise the static table.
	registry, err := buildRegistry(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to load tenant table", zap.Error(err))
	}

	// Optional redis cache for tenant config reads.
	var cache *redis.Client
	if cfg.Redis.URL != "" {
		cache = redis.NewClient(cfg.Redis.URL)
		defer cache.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	collector := metrics.NewCollector(reg)

	limiters := ratelimit.NewManager(logger)
	captchaStore := captcha.NewStoreWith(cfg.Captcha.TTL, cfg.Captcha.MaxAttempts, logger)
	resolver := persona.NewResolver(personaProfiles(cfg), logger)

	mock := provider.NewMock()
	external := provider.NewExternal(provider.ExternalConfig{
		BaseURL:           cfg.Provider.BaseURL,
		APIKey:            cfg.Provider.APIKey,
		Model:             cfg.Provider.Model,
		TimeoutSeconds:    cfg.Provider.TimeoutSeconds,
		CostPer1KTokens:   cfg.Provider.CostPer1KTokens,
		RequestsPerSecond: cfg.Provider.RequestsPerSecond,
	}, collector, logger)

	handler := handlers.NewHandler(cfg, registry, limiters, captchaStore, resolver, mock, external, collector, cache, logger)
	server := api.NewServer(cfg, handler, reg, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: server.Router,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go limiters.StartCleanup(ctx, cfg.RateLimit.CleanupInterval)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Gateway started", zap.String("port", cfg.Server.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newLogger(mode string) (*zap.Logger, error) {
	if mode == "release" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func buildRegistry(cfg *config.Config, logger *zap.Logger) (*tenant.Registry, error) {
	if cfg.Database.URL != "" {
		db, err := tenant.NewConnection(cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		defer db.Close()

		seed, err := tenant.LoadFromPostgres(db)
		if err != nil {
			return nil, err
		}
		logger.Info("Tenant table loaded from database", zap.Int("tenants", len(seed)))
		return tenant.NewRegistry(seed), nil
	}

	seed := make([]tenant.Config, 0, len(cfg.Tenants))
	for id, t := range cfg.Tenants {
		kind := tenant.ProviderKind(t.Provider)
		if kind == "" {
			kind = tenant.ProviderMock
		}
		rpm := t.RequestsPerMinute
		if rpm <= 0 {
			rpm = cfg.RateLimit.RequestsPerMinute
		}
		burst := t.Burst
		if burst <= 0 {
			burst = cfg.RateLimit.Burst
		}
		exempt := t.ExemptPaths
		if exempt == nil {
			exempt = cfg.RateLimit.ExemptPaths
		}
		seed = append(seed, tenant.Config{
			ID:       id,
			Provider: kind,
			RateLimit: tenant.RateLimitPolicy{
				RequestsPerMinute: rpm,
				Burst:             burst,
				ExemptPaths:       exempt,
			},
			Branding: tenant.Branding{
				PrimaryColor:   t.PrimaryColor,
				WelcomeMessage: t.WelcomeMessage,
			},
		})
	}
	logger.Info("Tenant table loaded from static config", zap.Int("tenants", len(seed)))
	return tenant.NewRegistry(seed), nil
}

func personaProfiles(cfg *config.Config) map[string]persona.Profile {
	profiles := make(map[string]persona.Profile, len(cfg.Tenants))
	for id, t := range cfg.Tenants {
		if t.Persona == "" && t.Tone == "" && t.PromptTemplate == "" {
			continue
		}
		profiles[id] = persona.Profile{
			Persona:         t.Persona,
			Tone:            t.Tone,
			TemplateVersion: t.TemplateVersion,
			PromptTemplate:  t.PromptTemplate,
			BlockedTopics:   t.BlockedTopics,
			RefusalMessage:  t.RefusalMessage,
			RedirectTo:      t.RedirectTo,
		}
	}
	return profiles
}
