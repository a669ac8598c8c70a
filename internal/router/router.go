// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/fibre52/survey-api/internal/config"
	"github.com/fibre52/survey-api/internal/handler"
	"github.com/fibre52/survey-api/internal/middleware"
	"github.com/fibre52/survey-api/internal/model"
)

// RegisterRoutes registers routes that live outside the API prefix.
// Currently that is only the health check used by load balancers.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAPI wires the /api/v1 surface: the credential-lifecycle endpoints,
// account administration, and the per-route rate limiters that guard them.
// The global limiter wraps the whole group; the per-flow limiters stack on
// top of it, so a request must clear both to reach a handler.
func RegisterAPI(
	e *echo.Echo,
	a *handler.AuthHandler,
	u *handler.UserHandler,
	users middleware.UserLookup,
	cfg config.Config,
	policies config.RateLimitPolicies,
	store middleware.CounterStore,
) {
	limit := func(p config.RateLimitPolicy, key middleware.KeyFunc) echo.MiddlewareFunc {
		if !policies.Enabled || store == nil {
			return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
		}
		return middleware.RateLimit(p, store, key)
	}
	checkAuth := func(roles ...string) echo.MiddlewareFunc {
		return middleware.CheckAuth(cfg.JWTSecret, users, roles...)
	}

	api := e.Group("/api/v1", limit(policies.Global, middleware.KeyByIdentity))

	// Anonymous credential flows. Login and check-user share the
	// brute-force limiter; every recovery step shares the password-reset
	// limiter so an attacker cannot rotate between them for extra attempts.
	auth := api.Group("/auth")
	auth.POST("/check-user", a.CheckUser, limit(policies.Auth, middleware.KeyByEmail))
	auth.POST("/login", a.Login, limit(policies.Auth, middleware.KeyByEmail))
	auth.GET("/access-token", a.AccessToken)
	auth.POST("/forgot-password", a.ForgotPassword, limit(policies.PasswordRst, middleware.KeyByEmail))
	auth.POST("/validate-otp", a.ValidateOTP, limit(policies.PasswordRst, middleware.KeyByEmail))
	auth.PATCH("/reset-password", a.ResetPassword, limit(policies.PasswordRst, middleware.KeyByEmail))
	auth.POST("/set-password", a.SetPassword, limit(policies.Strict, middleware.KeyByIdentity))
	auth.POST("/resend-otp", a.ResendOTP, limit(policies.PasswordRst, middleware.KeyByEmail))

	// Authenticated session endpoints.
	auth.GET("/user", a.CurrentUser, checkAuth())
	auth.POST("/logout", a.Logout, checkAuth())

	// Account administration.
	api.POST("/users", u.Create, limit(policies.Registration, middleware.KeyByIP))
	api.PATCH("/users/:id/status", u.UpdateStatus,
		checkAuth(model.RoleAdmin), limit(policies.Strict, middleware.KeyByIdentity))
}
