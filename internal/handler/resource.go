package handler

import (
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/travel-booking/internal/model"
    "github.com/iliyamo/travel-booking/internal/repository"
)

// ResourceHandler serves the public catalogue of flights and places.
type ResourceHandler struct {
    Resources *repository.ResourceRepo
}

func NewResourceHandler(r *repository.ResourceRepo) *ResourceHandler {
    return &ResourceHandler{Resources: r}
}

// parseTimeParam accepts RFC3339 timestamps or plain dates (YYYY-MM-DD).
func parseTimeParam(v string) (*time.Time, bool) {
    v = strings.TrimSpace(v)
    if v == "" {
        return nil, true
    }
    for _, layout := range []string{time.RFC3339, "2006-01-02"} {
        if t, err := time.Parse(layout, v); err == nil {
            return &t, true
        }
    }
    return nil, false
}

// List filters resources by kind, origin, destination, location, free text,
// availability and start window.  Ordered by start time, no ranking.
func (h *ResourceHandler) List(c echo.Context) error {
    q := repository.ResourceQuery{
        Kind:        model.ResourceKind(strings.ToUpper(strings.TrimSpace(c.QueryParam("kind")))),
        Origin:      strings.TrimSpace(c.QueryParam("origin")),
        Destination: strings.TrimSpace(c.QueryParam("destination")),
        Location:    strings.TrimSpace(c.QueryParam("location")),
        Text:        strings.TrimSpace(c.QueryParam("q")),
    }
    if q.Kind != "" && !q.Kind.Valid() {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "kind must be FLIGHT or PLACE"})
    }
    q.AvailableOnly, _ = strconv.ParseBool(c.QueryParam("available"))

    var ok bool
    if q.From, ok = parseTimeParam(c.QueryParam("from")); !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from"})
    }
    if q.To, ok = parseTimeParam(c.QueryParam("to")); !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid to"})
    }

    page, _ := strconv.Atoi(c.QueryParam("page"))
    if page < 1 {
        page = 1
    }
    ps, _ := strconv.Atoi(c.QueryParam("page_size"))
    if ps < 1 {
        ps = 20
    }
    if ps > 100 {
        ps = 100
    }
    q.Page, q.PageSize = page, ps

    items, total, err := h.Resources.Search(c.Request().Context(), q)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database_error"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "data":      items,
        "total":     total,
        "page":      page,
        "page_size": ps,
    })
}

// Get returns a single resource with its live remaining capacity.
func (h *ResourceHandler) Get(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    res, err := h.Resources.GetByID(c.Request().Context(), id)
    if err != nil {
        if isNotFound(err) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "resource not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database_error"})
    }
    return c.JSON(http.StatusOK, res)
}
