package handler

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/travel-booking/internal/service"
)

// IdempotencyKeyHeader carries the client's key for safely repeating a
// reservation request.
const IdempotencyKeyHeader = "Idempotency-Key"

// BookingHandler exposes the booking engine to authenticated users.
type BookingHandler struct {
    Engine *service.BookingService
}

func NewBookingHandler(engine *service.BookingService) *BookingHandler {
    return &BookingHandler{Engine: engine}
}

// Reserve books one unit of /resources/:id for the caller.
func (h *BookingHandler) Reserve(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    resourceID, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid resource id"})
    }
    key := strings.TrimSpace(c.Request().Header.Get(IdempotencyKeyHeader))
    if len(key) > 64 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "Idempotency-Key longer than 64 characters"})
    }

    b, err := h.Engine.Reserve(c.Request().Context(), uid, resourceID, key)
    if err != nil {
        return serviceError(c, err)
    }
    return c.JSON(http.StatusCreated, b)
}

// Cancel cancels one of the caller's bookings.
func (h *BookingHandler) Cancel(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    if err := h.Engine.Cancel(c.Request().Context(), id, uid); err != nil {
        return serviceError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// Get shows one of the caller's bookings with its resource.
func (h *BookingHandler) Get(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    d, err := h.Engine.Get(c.Request().Context(), id, uid)
    if err != nil {
        return serviceError(c, err)
    }
    return c.JSON(http.StatusOK, d)
}

// ListMine lists the caller's bookings, newest first.
func (h *BookingHandler) ListMine(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    list, err := h.Engine.ListForUser(c.Request().Context(), uid)
    if err != nil {
        return serviceError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"data": list, "total": len(list)})
}
