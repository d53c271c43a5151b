package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chatforge/gateway/internal/persona"
)

func (h *Handler) GetPersonaConfig(c *gin.Context) {
	tenantID := c.Param("tenantId")
	c.Set("tenant_id", tenantID)

	if _, err := h.tenants.Get(tenantID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown tenant", "code": "TENANT_NOT_FOUND"})
		return
	}

	profile := h.personas.ProfileFor(tenantID)
	// The safety word list stays server-side.
	profile.BlockedTopics = nil
	c.JSON(http.StatusOK, profile)
}

func (h *Handler) PersonaStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tenants": h.personas.StatsSnapshot()})
}

func (h *Handler) ValidatePersona(c *gin.Context) {
	var profile persona.Profile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"valid": false, "error": err.Error()})
		return
	}

	if err := h.personas.Validate(profile); err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}
