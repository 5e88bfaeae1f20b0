package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/homescope/viewing-api/internal/model"
    "github.com/homescope/viewing-api/internal/subscription"
)

// SubscriptionHandler exposes the subscription lifecycle for the
// authenticated user. Every route operates on the caller's own
// subscription; there is no cross-user access here.
type SubscriptionHandler struct {
    Subs *subscription.Manager
}

func NewSubscriptionHandler(m *subscription.Manager) *SubscriptionHandler {
    return &SubscriptionHandler{Subs: m}
}

type subscribeReq struct {
    PlanType string `json:"plan_type" validate:"required"`
}

// Subscribe creates the user's subscription on the requested tier.
func (h *SubscriptionHandler) Subscribe(c echo.Context) error {
    uid, ok := getUserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    plan, err := h.bindPlan(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }

    s, err := h.Subs.Create(c.Request().Context(), uid, plan)
    if err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusCreated, newSubscriptionResp(s, time.Now().UTC()))
}

// Upgrade moves the subscription to a strictly higher tier.
func (h *SubscriptionHandler) Upgrade(c echo.Context) error {
    uid, ok := getUserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    plan, err := h.bindPlan(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }

    s, err := h.Subs.Upgrade(c.Request().Context(), uid, plan)
    if err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusOK, newSubscriptionResp(s, time.Now().UTC()))
}

// Cancel deactivates the subscription and switches auto-renew off.
func (h *SubscriptionHandler) Cancel(c echo.Context) error {
    return h.mutate(c, h.Subs.Cancel)
}

// Renew reactivates the subscription with a fresh term from today.
func (h *SubscriptionHandler) Renew(c echo.Context) error {
    return h.mutate(c, h.Subs.Renew)
}

// ToggleAutoRenew flips the auto-renew flag.
func (h *SubscriptionHandler) ToggleAutoRenew(c echo.Context) error {
    return h.mutate(c, h.Subs.ToggleAutoRenew)
}

// Status returns the user's subscription, with expiry derived against
// today's date.
func (h *SubscriptionHandler) Status(c echo.Context) error {
    uid, ok := getUserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }

    s, err := h.Subs.Get(c.Request().Context(), uid)
    if err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusOK, newSubscriptionResp(s, time.Now().UTC()))
}

func (h *SubscriptionHandler) bindPlan(c echo.Context) (model.PlanType, error) {
    var req subscribeReq
    if err := c.Bind(&req); err != nil {
        return "", err
    }
    if err := c.Validate(&req); err != nil {
        return "", err
    }
    plan, ok := model.ParsePlanType(req.PlanType)
    if !ok {
        // Let the engine surface ErrInvalidPlan with its own mapping.
        return model.PlanType(req.PlanType), nil
    }
    return plan, nil
}

func (h *SubscriptionHandler) mutate(c echo.Context, op func(ctx context.Context, userID uint64) (*model.Subscription, error)) error {
    uid, ok := getUserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }

    s, err := op(c.Request().Context(), uid)
    if err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusOK, newSubscriptionResp(s, time.Now().UTC()))
}
