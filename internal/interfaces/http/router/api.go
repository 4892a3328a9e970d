package router

import (
	"net/http"

	appidentity "github.com/backoffice/prdesk/internal/application/identity"
	apppricing "github.com/backoffice/prdesk/internal/application/pricing"
	"github.com/backoffice/prdesk/internal/domain/identity"
	"github.com/backoffice/prdesk/internal/infrastructure/auth"
	"github.com/backoffice/prdesk/internal/infrastructure/config"
	"github.com/backoffice/prdesk/internal/infrastructure/logger"
	"github.com/backoffice/prdesk/internal/infrastructure/metrics"
	"github.com/backoffice/prdesk/internal/interfaces/http/dto"
	"github.com/backoffice/prdesk/internal/interfaces/http/handler"
	"github.com/backoffice/prdesk/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies are the services the API is built from. Metrics and Health
// are optional.
type Dependencies struct {
	Logger    *zap.Logger
	HTTP      config.HTTPConfig
	JWT       *auth.JWTService
	Blacklist auth.TokenBlacklist
	Auth      *appidentity.AuthService
	Workflow  *apppricing.WorkflowService
	Metrics   *metrics.Metrics
	Health    handler.Pinger
	Version   string
}

// New builds the gin engine serving the prdesk REST contract
func New(deps Dependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	if deps.Metrics != nil {
		engine.Use(middleware.HTTPMetrics(deps.Metrics))
	}
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = deps.HTTP.CORSAllowOrigins
	engine.Use(middleware.CORS(cors))
	engine.Use(middleware.BodyLimit(deps.HTTP.MaxBodySize))

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorBody(dto.ErrCodeNotFound, "Route not found", c.GetString(logger.RequestIDKey)))
	})
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, dto.NewErrorBody("METHOD_NOT_ALLOWED", "Method not allowed", c.GetString(logger.RequestIDKey)))
	})

	health := handler.NewHealthHandler(deps.Health, deps.Version)
	engine.GET("/health", health.Health)
	if deps.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	jwtAuth := middleware.JWTAuth(middleware.JWTMiddlewareConfig{
		JWTService:     deps.JWT,
		TokenBlacklist: deps.Blacklist,
		Logger:         log,
	})

	mount(engine,
		authRoutes(handler.NewAuthHandler(deps.Auth), jwtAuth, deps.HTTP),
		salesRoutes(handler.NewSalesHandler(deps.Workflow), jwtAuth),
		analystRoutes(handler.NewAnalystHandler(deps.Workflow), jwtAuth),
	)

	return engine
}

func authRoutes(h *handler.AuthHandler, jwtAuth gin.HandlerFunc, cfg config.HTTPConfig) *resource {
	var limit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if cfg.AuthRateLimitRequests > 0 {
		limit = middleware.RateLimit(middleware.NewRateLimiter(cfg.AuthRateLimitRequests, cfg.AuthRateLimitWindow))
	}
	return newResource("/auth").
		post("/register", limit, h.Register).
		post("/login", limit, h.Login).
		post("/logout", jwtAuth, h.Logout).
		get("/profile", jwtAuth, h.Profile)
}

func salesRoutes(h *handler.SalesHandler, jwtAuth gin.HandlerFunc) *resource {
	return newResource("/sales/pr", jwtAuth, middleware.RequireRole(identity.RoleSalesExecutive)).
		post("/save", h.Save).
		post("/submit", h.Submit).
		get("", h.List).
		get("/:id", h.Get).
		put("/:id", h.Update).
		delete("/:id", h.Delete).
		post("/:id/resubmit", h.Resubmit).
		post("/:id/send-to-pa", h.SendToAnalyst)
}

func analystRoutes(h *handler.AnalystHandler, jwtAuth gin.HandlerFunc) *resource {
	return newResource("/pa/pr", jwtAuth, middleware.RequireRole(identity.RolePricingAnalyst)).
		get("", h.ListAvailable).
		get("/my", h.ListMine).
		get("/:id", h.Get).
		post("/:id/assign", h.Assign).
		post("/:id/approve-reject", h.Decide)
}
