package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chatforge/gateway/internal/tenant"
)

// GetTenantConfig serves the public tenant config, cacheable by ETag and
// max-age. Backed by the redis cache when one is configured.
func (h *Handler) GetTenantConfig(c *gin.Context) {
	tenantID := c.Param("tenantId")
	c.Set("tenant_id", tenantID)

	var cfg tenant.Config
	cached := false
	if h.cache != nil {
		if err := h.cache.GetCachedTenantConfig(c.Request.Context(), tenantID, &cfg); err == nil {
			cached = true
		}
	}

	if !cached {
		var err error
		cfg, err = h.tenants.Get(tenantID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown tenant", "code": "TENANT_NOT_FOUND"})
			return
		}
		if h.cache != nil {
			if err := h.cache.CacheTenantConfig(c.Request.Context(), tenantID, cfg); err != nil {
				h.logger.Warn("Failed to cache tenant config", zap.Error(err))
			}
		}
	}

	body, err := json.Marshal(cfg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	sum := sha256.Sum256(body)
	etag := `"` + hex.EncodeToString(sum[:8]) + `"`

	c.Header("ETag", etag)
	c.Header("Cache-Control", "public, max-age=60")
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}

	c.Data(http.StatusOK, "application/json", body)
}
