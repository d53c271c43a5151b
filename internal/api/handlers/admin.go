package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chatforge/gateway/internal/tenant"
)

type updateTenantRequest struct {
	Provider          string   `json:"provider" binding:"required,oneof=mock external"`
	RequestsPerMinute int      `json:"requests_per_minute" binding:"required,min=1"`
	Burst             int      `json:"burst" binding:"required,min=1"`
	ExemptPaths       []string `json:"exempt_paths"`
	PrimaryColor      string   `json:"primary_color"`
	WelcomeMessage    string   `json:"welcome_message"`
}

// UpdateTenant hot-swaps a tenant config. New requests see the new config;
// in-flight pipelines keep the snapshot they already resolved.
func (h *Handler) UpdateTenant(c *gin.Context) {
	tenantID := c.Param("tenantId")
	c.Set("tenant_id", tenantID)

	var req updateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := tenant.Config{
		ID:       tenantID,
		Provider: tenant.ProviderKind(req.Provider),
		RateLimit: tenant.RateLimitPolicy{
			RequestsPerMinute: req.RequestsPerMinute,
			Burst:             req.Burst,
			ExemptPaths:       req.ExemptPaths,
		},
		Branding: tenant.Branding{
			PrimaryColor:   req.PrimaryColor,
			WelcomeMessage: req.WelcomeMessage,
		},
	}
	h.tenants.Put(cfg)

	if h.cache != nil {
		if err := h.cache.InvalidateTenantConfig(c.Request.Context(), tenantID); err != nil {
			h.logger.Warn("Failed to invalidate tenant config cache", zap.Error(err))
		}
	}

	h.logger.Info("Tenant config updated",
		zap.String("tenant_id", tenantID),
		zap.String("admin", c.GetString("admin_subject")),
	)

	c.JSON(http.StatusOK, cfg)
}
