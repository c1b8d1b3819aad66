package handler

import (
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/travel-booking/internal/model"
    "github.com/iliyamo/travel-booking/internal/repository"
)

// AdminHandler seeds inventory and audits it.  Capacity can be set only at
// creation; there is no endpoint that edits it afterwards.
type AdminHandler struct {
    Resources *repository.ResourceRepo
}

func NewAdminHandler(r *repository.ResourceRepo) *AdminHandler {
    return &AdminHandler{Resources: r}
}

type createResourceReq struct {
    Kind        string     `json:"kind"`
    Code        string     `json:"code"`
    Name        string     `json:"name"`
    Origin      string     `json:"origin"`
    Destination string     `json:"destination"`
    Location    string     `json:"location"`
    StartsAt    *time.Time `json:"starts_at"`
    EndsAt      *time.Time `json:"ends_at"`
    Capacity    int        `json:"capacity"`
    PriceCents  int64      `json:"price_cents"`
}

func (r createResourceReq) validate() (*model.Resource, string) {
    res := &model.Resource{
        Kind:          model.ResourceKind(strings.ToUpper(strings.TrimSpace(r.Kind))),
        Code:          strings.ToUpper(strings.TrimSpace(r.Code)),
        Name:          strings.TrimSpace(r.Name),
        Origin:        strings.TrimSpace(r.Origin),
        Destination:   strings.TrimSpace(r.Destination),
        Location:      strings.TrimSpace(r.Location),
        StartsAt:      r.StartsAt,
        EndsAt:        r.EndsAt,
        CapacityTotal: r.Capacity,
        PriceCents:    r.PriceCents,
    }
    switch {
    case !res.Kind.Valid():
        return nil, "kind must be FLIGHT or PLACE"
    case res.Code == "":
        return nil, "code required"
    case res.CapacityTotal < 0:
        return nil, "capacity must not be negative"
    case res.PriceCents < 0:
        return nil, "price_cents must not be negative"
    case res.StartsAt != nil && res.EndsAt != nil && res.EndsAt.Before(*res.StartsAt):
        return nil, "ends_at before starts_at"
    case res.Kind == model.KindFlight && (res.Origin == "" || res.Destination == ""):
        return nil, "flights need origin and destination"
    case res.Kind == model.KindPlace && res.Location == "":
        return nil, "places need a location"
    }
    if res.Name == "" {
        res.Name = res.Code
    }
    return res, ""
}

// CreateResource adds a flight or place with all of its capacity free.
func (h *AdminHandler) CreateResource(c echo.Context) error {
    var req createResourceReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    res, msg := req.validate()
    if res == nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
    }
    if _, err := h.Resources.Create(c.Request().Context(), res); err != nil {
        if errors.Is(err, repository.ErrDuplicate) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "code already exists"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database_error"})
    }
    return c.JSON(http.StatusCreated, res)
}

// Audit compares remaining capacity with the confirmed bookings.
func (h *AdminHandler) Audit(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    report, err := h.Resources.Audit(c.Request().Context(), id)
    if err != nil {
        if isNotFound(err) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "resource not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database_error"})
    }
    return c.JSON(http.StatusOK, report)
}
