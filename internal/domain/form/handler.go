package form

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

// templatePayload is the request shape for create/update: the template row
// plus its full field list.
type templatePayload struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	LocationID  *string  `json:"location_id"`
	Fields      []*Field `json:"fields"`
}

func (h *Handler) RegisterRoutes(staff *echo.Group) {
	staff.POST("/custom-forms", h.Create)
	staff.GET("/custom-forms", h.List)
	staff.GET("/custom-forms/:id", h.Get)
	staff.PUT("/custom-forms/:id", h.Update)
	staff.DELETE("/custom-forms/:id", h.Delete)
}

func (h *Handler) bind(c echo.Context) (*Template, []*Field, error) {
	var payload templatePayload
	if err := c.Bind(&payload); err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t := &Template{Name: payload.Name, Description: payload.Description}
	if payload.LocationID != nil {
		lid, err := uuid.Parse(*payload.LocationID)
		if err != nil {
			return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "invalid location_id")
		}
		t.LocationID = &lid
	}
	if userID, ok := c.Get("user_id").(string); ok && userID != "" {
		t.CreatedBy = &userID
	}
	return t, payload.Fields, nil
}

func (h *Handler) Create(c echo.Context) error {
	t, fields, err := h.bind(c)
	if err != nil {
		return err
	}
	if err := h.svc.Create(c.Request().Context(), t, fields); err != nil {
		if errors.Is(err, ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create form")
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"form": t, "fields": fields})
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	t, fields, err := h.svc.GetTemplate(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "form not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "could not load form")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"form": t, "fields": fields})
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	t, fields, err := h.bind(c)
	if err != nil {
		return err
	}
	t.ID = id
	if err := h.svc.Update(c.Request().Context(), t, fields); err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "form not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "could not update form")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"form": t, "fields": fields})
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "form not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "could not delete form")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not list forms")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}
