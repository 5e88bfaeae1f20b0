// Package router wires handlers to routes and applies the per-group
// middleware (JWT, role checks, plan gates, caching).
package router

import (
    "github.com/labstack/echo/v4"

    "github.com/homescope/viewing-api/internal/handler"
    "github.com/homescope/viewing-api/internal/middleware"
)

// RegisterRoutes registers routes that need no authentication at all.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints. Register, login,
// refresh and logout live under /v1/auth without a session; /v1/me is
// protected.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
    g := e.Group("/v1/auth")
    g.POST("/register", a.Register)
    g.POST("/login", a.Login)
    g.POST("/refresh", a.Refresh)
    // Logout accepts a refresh token in the body; with a bearer token and
    // no body it revokes every session instead.
    g.POST("/logout", a.Logout, middleware.OptionalJWT(jwtSecret))

    auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
    auth.GET("/me", a.Me)
}

// RegisterPublic registers the guest-browsable listing directory. The
// cache middleware is applied here and only here: these responses are
// identical for every caller.
func RegisterPublic(e *echo.Echo, p *handler.PropertyHandler, cache echo.MiddlewareFunc) {
    e.GET("/v1/properties", p.ListAvailable, cache)
    e.GET("/v1/properties/:id", p.GetOne, cache)
}

// RegisterSearch registers the advanced listing search. Any
// authenticated role may call it, but the plan gate requires an active
// PREMIUM (or higher) subscription.
func RegisterSearch(e *echo.Echo, p *handler.PropertyHandler, jwtSecret string, planGate echo.MiddlewareFunc) {
    e.GET("/v1/search/properties", p.Search, middleware.JWTAuth(jwtSecret), planGate)
}
