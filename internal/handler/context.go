package handler // handler defines http handlers

import (
    "errors"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/travel-booking/internal/middleware"
    "github.com/iliyamo/travel-booking/internal/repository"
)

var errNoUser = errors.New("invalid user_id in context")

// getUserID returns the id JWTAuth stored for the current request.
func getUserID(c echo.Context) (uint64, error) {
    if id, ok := middleware.UserID(c); ok {
        return id, nil
    }
    return 0, errNoUser
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    return id, err == nil && id > 0
}

func isNotFound(err error) bool { return errors.Is(err, repository.ErrNotFound) }
