// Package handler contains the HTTP layer: request DTOs, response
// shapes and the mapping from engine errors to status codes.
package handler

import (
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/homescope/viewing-api/internal/model"
    "github.com/homescope/viewing-api/internal/repository"
)

const dateLayout = "2006-01-02"

// getUserID extracts the authenticated user's ID from the context as
// set by the JWT middleware. JWT numeric claims decode as float64, so
// several representations are accepted.
func getUserID(c echo.Context) (uint64, bool) {
    switch v := c.Get("user_id").(type) {
    case uint64:
        return v, true
    case int64:
        if v > 0 {
            return uint64(v), true
        }
    case int:
        if v > 0 {
            return uint64(v), true
        }
    case float64:
        if v > 0 {
            return uint64(v), true
        }
    case string:
        if n, err := strconv.ParseUint(v, 10, 64); err == nil {
            return n, true
        }
    }
    return 0, false
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
    return strconv.ParseUint(c.Param(name), 10, 64)
}

// errorStatus maps engine errors to HTTP status codes. Unrecognized
// errors become 500s.
func errorStatus(err error) int {
    switch {
    case errors.Is(err, repository.ErrNotFound):
        return http.StatusNotFound
    case errors.Is(err, repository.ErrInvalidSchedule):
        return http.StatusBadRequest
    case errors.Is(err, repository.ErrInvalidPlan):
        return http.StatusBadRequest
    case errors.Is(err, repository.ErrConflictingViewing):
        return http.StatusConflict
    case errors.Is(err, repository.ErrAlreadyExists):
        return http.StatusConflict
    case errors.Is(err, repository.ErrEmailExists):
        return http.StatusConflict
    case errors.Is(err, repository.ErrForbidden):
        return http.StatusForbidden
    case errors.Is(err, repository.ErrInvalidTransition):
        return http.StatusUnprocessableEntity
    case errors.Is(err, repository.ErrInvalidDowngrade):
        return http.StatusUnprocessableEntity
    default:
        return http.StatusInternalServerError
    }
}

// engineError renders an engine error as a JSON body with the mapped
// status. Internal errors are masked.
func engineError(c echo.Context, err error) error {
    status := errorStatus(err)
    msg := err.Error()
    if status == http.StatusInternalServerError {
        msg = "internal error"
        c.Logger().Errorf("handler: %v", err)
    }
    return c.JSON(status, echo.Map{"error": msg})
}

// ----- shared response shapes -----

type viewingResp struct {
    ID              uint64     `json:"id"`
    UserID          uint64     `json:"user_id"`
    PropertyID      uint64     `json:"property_id"`
    ViewingDate     string     `json:"viewing_date"`
    ViewingTime     string     `json:"viewing_time"`
    Status          string     `json:"status"`
    Notes           *string    `json:"notes,omitempty"`
    RejectionReason *string    `json:"rejection_reason,omitempty"`
    CreatedAt       time.Time  `json:"created_at"`
    ConfirmedAt     *time.Time `json:"confirmed_at,omitempty"`
    RejectedAt      *time.Time `json:"rejected_at,omitempty"`
    CompletedAt     *time.Time `json:"completed_at,omitempty"`
    CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
}

func newViewingResp(v *model.Viewing) viewingResp {
    return viewingResp{
        ID:              v.ID,
        UserID:          v.UserID,
        PropertyID:      v.PropertyID,
        ViewingDate:     v.ViewingDate.Format(dateLayout),
        ViewingTime:     v.ViewingTime,
        Status:          string(v.Status),
        Notes:           v.Notes,
        RejectionReason: v.RejectionReason,
        CreatedAt:       v.CreatedAt,
        ConfirmedAt:     v.ConfirmedAt,
        RejectedAt:      v.RejectedAt,
        CompletedAt:     v.CompletedAt,
        CancelledAt:     v.CancelledAt,
    }
}

func newViewingList(vs []model.Viewing) []viewingResp {
    out := make([]viewingResp, 0, len(vs))
    for i := range vs {
        out = append(out, newViewingResp(&vs[i]))
    }
    return out
}

type subscriptionResp struct {
    ID         uint64    `json:"id"`
    UserID     uint64    `json:"user_id"`
    PlanType   string    `json:"plan_type"`
    StartDate  string    `json:"start_date"`
    EndDate    *string   `json:"end_date"`
    PriceCents *int64    `json:"price_cents"`
    Active     bool      `json:"active"`
    AutoRenew  bool      `json:"auto_renew"`
    IsExpired  bool      `json:"is_expired"`
    CreatedAt  time.Time `json:"created_at"`
    UpdatedAt  time.Time `json:"updated_at"`
}

func newSubscriptionResp(s *model.Subscription, today time.Time) subscriptionResp {
    var end *string
    if s.EndDate != nil {
        f := s.EndDate.Format(dateLayout)
        end = &f
    }
    return subscriptionResp{
        ID:         s.ID,
        UserID:     s.UserID,
        PlanType:   string(s.PlanType),
        StartDate:  s.StartDate.Format(dateLayout),
        EndDate:    end,
        PriceCents: s.PriceCents,
        Active:     s.Active,
        AutoRenew:  s.AutoRenew,
        IsExpired:  s.IsExpired(today),
        CreatedAt:  s.CreatedAt,
        UpdatedAt:  s.UpdatedAt,
    }
}

type propertyResp struct {
    ID         uint64    `json:"id"`
    OwnerID    uint64    `json:"owner_id"`
    Title      string    `json:"title"`
    City       string    `json:"city"`
    Address    string    `json:"address"`
    PriceCents uint64    `json:"price_cents"`
    Available  bool      `json:"available"`
    CreatedAt  time.Time `json:"created_at"`
    UpdatedAt  time.Time `json:"updated_at"`
}

func newPropertyResp(p *model.Property) propertyResp {
    return propertyResp{
        ID:         p.ID,
        OwnerID:    p.OwnerID,
        Title:      p.Title,
        City:       p.City,
        Address:    p.Address,
        PriceCents: p.PriceCents,
        Available:  p.Available,
        CreatedAt:  p.CreatedAt,
        UpdatedAt:  p.UpdatedAt,
    }
}

// statusFilter parses an optional ?status= query parameter.
func statusFilter(c echo.Context) (*model.ViewingStatus, error) {
    raw := c.QueryParam("status")
    if raw == "" {
        return nil, nil
    }
    st, ok := model.ParseViewingStatus(raw)
    if !ok {
        return nil, errors.New("unknown status: " + raw)
    }
    return &st, nil
}
