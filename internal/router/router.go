package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	accessHandler "github.com/clinicore/phi-gate/internal/handler/access"
	auditHandler "github.com/clinicore/phi-gate/internal/handler/audit"
	authHandler "github.com/clinicore/phi-gate/internal/handler/auth"
	consentHandler "github.com/clinicore/phi-gate/internal/handler/consent"
	healthHandler "github.com/clinicore/phi-gate/internal/handler/health"
	"github.com/clinicore/phi-gate/internal/middleware"
)

// Router wires middleware and handlers onto the gin engine
type Router struct {
	engine *gin.Engine
	authMW *middleware.AuthMiddleware

	auth    *authHandler.Handler
	access  *accessHandler.Handler
	consent *consentHandler.Handler
	audit   *auditHandler.Handler
	health  *healthHandler.Handler
}

func NewRouter(
	authMW *middleware.AuthMiddleware,
	auth *authHandler.Handler,
	access *accessHandler.Handler,
	consent *consentHandler.Handler,
	audit *auditHandler.Handler,
	health *healthHandler.Handler,
) *Router {
	return &Router{
		engine:  gin.New(),
		authMW:  authMW,
		auth:    auth,
		access:  access,
		consent: consent,
		audit:   audit,
		health:  health,
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Setup installs the middleware chain and registers all routes
func (r *Router) Setup(requestsPerSecond float64, burst int) {
	middleware.RegisterValidators()

	limiter := middleware.NewIPRateLimiter(rate.Limit(requestsPerSecond), burst)

	r.engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.SecurityHeaders(),
		limiter.RateLimit(),
	)

	r.health.RegisterRoutes(r.engine)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.engine.Group("/api/v1")
	r.auth.RegisterRoutes(api, r.authMW)
	r.access.RegisterRoutes(api, r.authMW)
	r.consent.RegisterRoutes(api, r.authMW)
	r.audit.RegisterRoutes(api, r.authMW)
}
