package handler

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/homescope/viewing-api/internal/model"
    "github.com/homescope/viewing-api/internal/scheduler"
)

// ViewingAgentHandler exposes the endpoints an agent drives: confirming,
// rejecting and completing viewing requests on their listings.
type ViewingAgentHandler struct {
    Sched *scheduler.Service
}

func NewViewingAgentHandler(s *scheduler.Service) *ViewingAgentHandler {
    return &ViewingAgentHandler{Sched: s}
}

type rejectReq struct {
    Reason string `json:"reason" validate:"required,max=1000"`
}

// Confirm moves a PENDING viewing on the agent's property to CONFIRMED.
func (h *ViewingAgentHandler) Confirm(c echo.Context) error {
    return h.transition(c, model.ViewingConfirmed, nil)
}

// Reject moves a PENDING viewing to REJECTED. A non-empty reason is
// required; the engine rejects the transition without one.
func (h *ViewingAgentHandler) Reject(c echo.Context) error {
    var req rejectReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := c.Validate(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "reason required"})
    }
    reason := strings.TrimSpace(req.Reason)
    return h.transition(c, model.ViewingRejected, &reason)
}

// Complete marks a CONFIRMED viewing as having taken place.
func (h *ViewingAgentHandler) Complete(c echo.Context) error {
    return h.transition(c, model.ViewingCompleted, nil)
}

func (h *ViewingAgentHandler) transition(c echo.Context, target model.ViewingStatus, reason *string) error {
    uid, ok := getUserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid viewing id"})
    }

    v, err := h.Sched.Transition(c.Request().Context(), id, uid, target, reason)
    if err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusOK, newViewingResp(v))
}

// ListForProperty returns viewings on one property, optionally filtered
// by ?status=.
func (h *ViewingAgentHandler) ListForProperty(c echo.Context) error {
    propID, err := pathID(c, "propertyId")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid property id"})
    }
    st, err := statusFilter(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }

    vs, err := h.Sched.ListForProperty(c.Request().Context(), propID, st)
    if err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"viewings": newViewingList(vs)})
}

// ListMine returns viewings across all of the agent's listings.
func (h *ViewingAgentHandler) ListMine(c echo.Context) error {
    uid, ok := getUserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    st, err := statusFilter(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }

    vs, err := h.Sched.ListForOwner(c.Request().Context(), uid, st)
    if err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"viewings": newViewingList(vs)})
}

// CountConfirmed returns how many CONFIRMED viewings a property has,
// a quick demand signal for the listing.
func (h *ViewingAgentHandler) CountConfirmed(c echo.Context) error {
    propID, err := pathID(c, "propertyId")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid property id"})
    }

    n, err := h.Sched.CountConfirmed(c.Request().Context(), propID)
    if err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"property_id": propID, "confirmed": n})
}
