package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/chatforge/gateway/internal/api/handlers"
	"github.com/chatforge/gateway/internal/api/middleware"
	"github.com/chatforge/gateway/internal/config"
)

type Server struct {
	Config  *config.Config
	Router  *gin.Engine
	Handler *handlers.Handler
}

func NewServer(cfg *config.Config, handler *handlers.Handler, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	gin.SetMode(ginMode(cfg.Server.Mode))
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger(logger))

	server := &Server{
		Config:  cfg,
		Router:  router,
		Handler: handler,
	}

	server.setupRoutes(gatherer)
	return server
}

func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	h := s.Handler

	s.Router.GET("/health", h.Health)
	s.Router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// Chat pipeline
	s.Router.POST("/ai/query", h.Chat)

	// Tenant introspection
	s.Router.GET("/tenant/:tenantId/config", h.GetTenantConfig)
	s.Router.GET("/tenant/:tenantId/persona/config", h.GetPersonaConfig)

	// Persona introspection
	s.Router.GET("/persona/stats", h.PersonaStats)
	s.Router.POST("/persona/validate", h.ValidatePersona)

	// Abuse protection
	abuse := s.Router.Group("/abuse/captcha")
	{
		abuse.POST("/generate", h.GenerateCaptcha)
		abuse.POST("/verify", h.VerifyCaptcha)
	}

	// Admin (protected)
	admin := s.Router.Group("/admin")
	admin.Use(middleware.AdminAuth(s.Config.Admin.JWTSecret))
	{
		admin.PUT("/tenants/:tenantId", h.UpdateTenant)
	}
}

func ginMode(mode string) string {
	switch mode {
	case "release":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}
