package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chatforge/gateway/internal/provider"
	"github.com/chatforge/gateway/internal/ratelimit"
	"github.com/chatforge/gateway/internal/sanitize"
	"github.com/chatforge/gateway/internal/tenant"
)

type chatRequest struct {
	TenantID       string `json:"tenantId"`
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
}

// Chat is the request pipeline: tenant resolution, admission control, input
// sanitation, persona resolution, provider selection and stream relay.
// Validation and admission failures return structured JSON before any
// stream opens; once streaming, every fault becomes a terminal error event.
func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "code": "INVALID_BODY"})
		return
	}

	// Header takes precedence over body.
	tenantID := c.GetHeader("X-Tenant-ID")
	if tenantID == "" {
		tenantID = req.TenantID
	}
	if tenantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant id is required", "code": "MISSING_TENANT_ID"})
		return
	}
	c.Set("tenant_id", tenantID)

	cfg, err := h.tenants.Get(tenantID)
	if err != nil {
		h.metrics.RecordRequest(tenantID, http.StatusNotFound)
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown tenant", "code": "TENANT_NOT_FOUND"})
		return
	}

	limiter := h.limiters.For(tenantID, ratelimit.Policy{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Burst:             cfg.RateLimit.Burst,
		ExemptPaths:       cfg.RateLimit.ExemptPaths,
	})
	if !limiter.IsExemptPath(c.Request.URL.Path) {
		res := limiter.Allow(tenantID)
		if !res.Allowed {
			h.metrics.RecordRateLimited(tenantID)
			h.metrics.RecordRequest(tenantID, http.StatusTooManyRequests)
			c.Header("Retry-After", strconv.Itoa(res.RetryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"code":        "RATE_LIMITED",
				"retry_after": res.RetryAfter,
			})
			return
		}
	}

	if strings.TrimSpace(req.Content) == "" {
		h.metrics.RecordRequest(tenantID, http.StatusBadRequest)
		c.JSON(http.StatusBadRequest, gin.H{"error": "content must not be empty", "code": "EMPTY_CONTENT"})
		return
	}
	content := sanitize.Clean(req.Content)

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.New().String()
	}

	h.metrics.RecordRequest(tenantID, http.StatusOK)
	h.streamResponse(c, cfg, tenantID, conversationID, content)
}

// streamResponse runs the streaming half of the pipeline. The transport
// status is committed once the persona event is written, so from here on
// every fault is reported in-stream.
func (h *Handler) streamResponse(c *gin.Context, cfg tenant.Config, tenantID, conversationID, content string) {
	sse, err := newSSEWriter(c.Writer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported", "code": "INTERNAL"})
		return
	}
	sse.setHeaders()
	c.Status(http.StatusOK)

	start := time.Now()
	result := h.personas.Resolve(tenantID, content, nil)

	emit := func(ev provider.Event) bool {
		if err := sse.writeEvent(ev); err != nil {
			return false
		}
		h.metrics.RecordStreamEvent(tenantID, string(ev.Kind))
		return true
	}

	// Persona metadata is always the first stream event.
	if !emit(provider.Event{
		Kind:            provider.EventPersona,
		Persona:         result.Persona,
		Tone:            result.Tone,
		TemplateVersion: result.TemplateVersion,
	}) {
		return
	}

	// Safety short-circuit: the refusal is the complete answer and the
	// provider is never invoked.
	if result.SafetyFilter {
		emit(provider.Event{Kind: provider.EventContent, Token: result.Response})
		emit(provider.Event{Kind: provider.EventDone, LatencyMS: time.Since(start).Milliseconds()})
		h.metrics.RecordStreamDuration(tenantID, "safety", time.Since(start))
		return
	}

	prov := provider.Select(cfg.Provider, h.cfg.Provider.ForceMock, h.cfg.Provider.APIKey != "", h.mock, h.external)

	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Panic in stream pipeline",
				zap.Any("panic", r),
				zap.String("tenant_id", tenantID),
			)
			emit(provider.Event{Kind: provider.EventError, Error: "internal error"})
		}
		h.metrics.RecordStreamDuration(tenantID, prov.Name(), time.Since(start))
	}()

	ctx := c.Request.Context()
	events := prov.StreamResponse(ctx, provider.Request{
		TenantID:       tenantID,
		ConversationID: conversationID,
		Content:        content,
		Persona:        result.Persona,
		Tone:           result.Tone,
		PromptTemplate: result.PromptTemplate,
	})

	terminated := false
	for ev := range events {
		if !emit(ev) {
			// Client gone; drain so the producer sees ctx cancellation
			// and stops promptly.
			for range events {
			}
			return
		}
		if ev.Kind == provider.EventDone || ev.Kind == provider.EventError {
			terminated = true
		}
	}

	// The provider closed without a terminal event; never leave the
	// stream unterminated.
	if !terminated && ctx.Err() == nil {
		emit(provider.Event{Kind: provider.EventDone, LatencyMS: time.Since(start).Milliseconds()})
	}
}
