package handler

import (
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/homescope/viewing-api/internal/model"
    "github.com/homescope/viewing-api/internal/repository"
)

// PropertyHandler serves the listing directory: public browsing plus
// the subscription-gated advanced search.
type PropertyHandler struct {
    Props *repository.PropertyRepo
}

func NewPropertyHandler(p *repository.PropertyRepo) *PropertyHandler {
    return &PropertyHandler{Props: p}
}

// ListAvailable returns every listing open for viewings. Public and
// cacheable.
func (h *PropertyHandler) ListAvailable(c echo.Context) error {
    ps, err := h.Props.ListAvailable(c.Request().Context())
    if err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"properties": propertyList(ps)})
}

// GetOne returns a single listing by ID. Public and cacheable.
func (h *PropertyHandler) GetOne(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid property id"})
    }

    p, err := h.Props.GetByID(c.Request().Context(), id)
    if err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusOK, newPropertyResp(p))
}

// Search filters available listings by city and price band. The route
// is gated behind a PREMIUM subscription.
func (h *PropertyHandler) Search(c echo.Context) error {
    city := c.QueryParam("city")
    minPrice, err := queryPrice(c, "min_price_cents")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "min_price_cents must be a non-negative integer"})
    }
    maxPrice, err := queryPrice(c, "max_price_cents")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "max_price_cents must be a non-negative integer"})
    }
    if maxPrice > 0 && minPrice > maxPrice {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "min_price_cents exceeds max_price_cents"})
    }

    ps, err := h.Props.Search(c.Request().Context(), city, minPrice, maxPrice)
    if err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"properties": propertyList(ps)})
}

func queryPrice(c echo.Context, name string) (uint64, error) {
    raw := c.QueryParam(name)
    if raw == "" {
        return 0, nil
    }
    return strconv.ParseUint(raw, 10, 64)
}

func propertyList(ps []model.Property) []propertyResp {
    out := make([]propertyResp, 0, len(ps))
    for i := range ps {
        out = append(out, newPropertyResp(&ps[i]))
    }
    return out
}
