package handlers

import (
	"go.uber.org/zap"

	"github.com/chatforge/gateway/internal/captcha"
	"github.com/chatforge/gateway/internal/config"
	"github.com/chatforge/gateway/internal/metrics"
	"github.com/chatforge/gateway/internal/persona"
	"github.com/chatforge/gateway/internal/provider"
	"github.com/chatforge/gateway/internal/ratelimit"
	"github.com/chatforge/gateway/internal/storage/redis"
	"github.com/chatforge/gateway/internal/tenant"
)

type Handler struct {
	cfg      *config.Config
	tenants  *tenant.Registry
	limiters *ratelimit.Manager
	captcha  *captcha.Store
	personas *persona.Resolver
	mock     provider.Provider
	external provider.Provider
	metrics  *metrics.Collector
	cache    *redis.Client // nil when redis is not configured
	logger   *zap.Logger
}

func NewHandler(
	cfg *config.Config,
	tenants *tenant.Registry,
	limiters *ratelimit.Manager,
	captchaStore *captcha.Store,
	personas *persona.Resolver,
	mock, external provider.Provider,
	collector *metrics.Collector,
	cache *redis.Client,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		cfg:      cfg,
		tenants:  tenants,
		limiters: limiters,
		captcha:  captchaStore,
		personas: personas,
		mock:     mock,
		external: external,
		metrics:  collector,
		cache:    cache,
		logger:   logger,
	}
}
