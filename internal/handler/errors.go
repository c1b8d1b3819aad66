package handler

import (
    "errors"
    "log/slog"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/travel-booking/internal/service"
)

// serviceError maps the service sentinels onto HTTP responses.  Anything
// unrecognised is a 500 and is logged; its text is not shown to clients.
func serviceError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, service.ErrNoCapacity):
        return c.JSON(http.StatusConflict, echo.Map{"error": "no_capacity", "message": "no seats or rooms left"})
    case errors.Is(err, service.ErrAlreadyBooked):
        return c.JSON(http.StatusConflict, echo.Map{"error": "already_booked", "message": "a booking with this Idempotency-Key already exists"})
    case errors.Is(err, service.ErrResourceNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "resource not found"})
    case errors.Is(err, service.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
    case errors.Is(err, service.ErrUnauthenticated), errors.Is(err, service.ErrAuthFailure):
        msg := "unauthorized"
        if errors.Is(err, service.ErrAuthFailure) {
            msg = "invalid credentials"
        }
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg})
    case errors.Is(err, service.ErrUnauthorized):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, service.ErrDuplicateEmail):
        return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
    case errors.Is(err, service.ErrDuplicateUsername):
        return c.JSON(http.StatusConflict, echo.Map{"error": "username already exists"})
    case errors.Is(err, service.ErrInvalidInput):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    case errors.Is(err, service.ErrTransientFailure):
        c.Response().Header().Set("Retry-After", "1")
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "temporarily unavailable, retry"})
    }
    slog.Error("unhandled error", "path", c.Path(), "err", err)
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
