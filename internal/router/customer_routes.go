package router

import (
    "github.com/labstack/echo/v4"

    "github.com/homescope/viewing-api/internal/handler"
    "github.com/homescope/viewing-api/internal/middleware"
    "github.com/homescope/viewing-api/internal/model"
)

// RegisterCustomer registers the viewing endpoints a requesting user
// drives. Scheduling and the personal list are USER routes; cancel also
// admits admins, and single-viewing reads admit every role because the
// engine authorizes per record (requester, listing owner or admin).
func RegisterCustomer(e *echo.Echo, h *handler.ViewingCustomerHandler, jwtSecret string) {
    user := e.Group(
        "/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole(model.RoleUser),
    )
    user.POST("/viewings", h.Schedule)
    user.GET("/my-viewings", h.ListMine)

    cancel := e.Group(
        "/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole(model.RoleUser, model.RoleAdmin),
    )
    cancel.POST("/viewings/:id/cancel", h.Cancel)

    any := e.Group(
        "/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole(model.RoleUser, model.RoleAgent, model.RoleAdmin),
    )
    any.GET("/viewings/:id", h.GetOne)
}

// RegisterSubscriptions registers the subscription lifecycle endpoints.
// Every authenticated role may hold a subscription.
func RegisterSubscriptions(e *echo.Echo, h *handler.SubscriptionHandler, jwtSecret string) {
    g := e.Group(
        "/v1/subscriptions",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole(model.RoleUser, model.RoleAgent, model.RoleAdmin),
    )
    g.POST("", h.Subscribe)
    g.GET("/me", h.Status)
    g.POST("/upgrade", h.Upgrade)
    g.POST("/cancel", h.Cancel)
    g.POST("/renew", h.Renew)
    g.POST("/auto-renew", h.ToggleAutoRenew)
}
