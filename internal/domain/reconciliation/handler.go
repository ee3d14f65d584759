package reconciliation

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/wckliment/ikon-practice-sub001/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the reconciliation endpoints. The path spelling
// matches the rest of the application's API surface.
func (h *Handler) RegisterRoutes(staff *echo.Group) {
	staff.POST("/reconcilliation", h.Record)
	staff.GET("/reconcilliation/:patNum", h.ListPending)
	staff.PUT("/reconcilliation/:id/resolve", h.Resolve)
}

func (h *Handler) Record(c echo.Context) error {
	var e Entry
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Record(c.Request().Context(), &e); err != nil {
		if errors.Is(err, ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "could not record entry")
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) ListPending(c echo.Context) error {
	patNum := c.Param("patNum")
	if patNum == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "patient number is required")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPendingForPatient(c.Request().Context(), patNum, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not list entries")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) Resolve(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Resolve(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "entry not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "could not resolve entry")
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}
