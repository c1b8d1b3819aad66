package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/travel-booking/internal/config"
	"github.com/iliyamo/travel-booking/internal/handler"
	"github.com/iliyamo/travel-booking/internal/middleware"
	"github.com/iliyamo/travel-booking/internal/model"
)

// Handlers groups everything Setup registers.  Redis may be nil, which
// disables the rate limiter and the response cache.
type Handlers struct {
	Auth     *handler.AuthHandler
	Resource *handler.ResourceHandler
	Booking  *handler.BookingHandler
	Admin    *handler.AdminHandler
	DB       handler.Pinger
	Redis    *redis.Client
}

// Setup registers every route of the API on e.
func Setup(e *echo.Echo, cfg config.Config, h Handlers) {
	RegisterRoutes(e, h.DB)
	RegisterAuth(e, h.Auth, cfg.JWTSecret)
	RegisterPublic(e, h.Resource, middleware.NewRedisCache(cfg.Cache, h.Redis))
	RegisterBooking(e, h.Booking, cfg.JWTSecret, middleware.NewTokenBucket(cfg.RateLimit, h.Redis))
	RegisterAdmin(e, h.Admin, cfg.JWTSecret)
}

// RegisterRoutes registers routes that need no authentication: liveness,
// readiness and the Prometheus exposition.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	if db != nil {
		e.GET("/readyz", handler.Ready(db))
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the token endpoints under /v1/auth and the
// authenticated profile endpoint.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// /refresh rotates the refresh token, /refresh-access does not.
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout needs no access token: a refresh token in the body is enough.
	g.POST("/logout", a.Logout)
	e.POST("/v1/logout", a.Logout)

	e.GET("/v1/me", a.Me,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleAdmin),
	)
}

// RegisterPublic registers the guest catalogue.  cache wraps only these
// read-only routes.
func RegisterPublic(e *echo.Echo, r *handler.ResourceHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/resources", cache)
	g.GET("", r.List)
	g.GET("/:id", r.Get)
}
