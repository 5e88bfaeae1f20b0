package router

import (
    "github.com/labstack/echo/v4"

    "github.com/homescope/viewing-api/internal/handler"
    "github.com/homescope/viewing-api/internal/middleware"
    "github.com/homescope/viewing-api/internal/model"
)

// RegisterAgent registers AGENT-scoped viewing endpoints under /v1.
// Ownership of the underlying listing is enforced by the scheduling
// engine; the role check keeps regular users off these routes entirely.
func RegisterAgent(e *echo.Echo, h *handler.ViewingAgentHandler, jwtSecret string) {
    g := e.Group(
        "/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole(model.RoleAgent),
    )

    g.POST("/viewings/:id/confirm", h.Confirm)
    g.POST("/viewings/:id/reject", h.Reject)
    g.POST("/viewings/:id/complete", h.Complete)

    g.GET("/agent/viewings", h.ListMine)
    g.GET("/properties/:propertyId/viewings", h.ListForProperty)
    g.GET("/properties/:propertyId/viewings/confirmed-count", h.CountConfirmed)
}
