package router

import (
    "github.com/labstack/echo/v4"

    "github.com/homescope/viewing-api/internal/handler"
    "github.com/homescope/viewing-api/internal/middleware"
    "github.com/homescope/viewing-api/internal/model"
)

// RegisterAdmin registers operator endpoints under /v1/admin plus the
// hard-delete route. ADMIN only.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
    g := e.Group(
        "/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole(model.RoleAdmin),
    )

    g.DELETE("/viewings/:id", h.DeleteViewing)
    g.GET("/admin/viewings", h.ListViewingsInRange)
    g.POST("/admin/sweeps", h.RunSweeps)
}
