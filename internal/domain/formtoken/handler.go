package formtoken

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/wckliment/ikon-practice-sub001/internal/domain/form"
	"github.com/wckliment/ikon-practice-sub001/internal/platform/opendental"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts staff endpoints on the authenticated group and the
// link-opening/self-service endpoints on the public group.
func (h *Handler) RegisterRoutes(staff, public *echo.Group) {
	staff.POST("/custom-form-tokens/generate", h.Generate)
	staff.GET("/custom-form-tokens/patient/:patNum", h.ListPending)
	staff.DELETE("/custom-form-tokens/:id", h.Delete)
	staff.POST("/custom-form-tokens/tablet", h.SendTablet)

	public.POST("/custom-form-tokens/public-generate", h.Generate)
	public.GET("/custom-form-tokens/:token", h.Resolve)
}

type generateRequest struct {
	FormID     string  `json:"form_id"`
	PatientID  *string `json:"patient_id"`
	LocationID *string `json:"location_id"`
	Method     string  `json:"method"`
}

func (h *Handler) Generate(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	formID, err := uuid.Parse(req.FormID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "form_id is required")
	}
	var locationID *uuid.UUID
	if req.LocationID != nil {
		lid, err := uuid.Parse(*req.LocationID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid location_id")
		}
		locationID = &lid
	}

	issued, err := h.svc.Issue(c.Request().Context(), formID, req.PatientID, locationID, req.Method)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, form.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "form not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "could not generate token")
	}
	return c.JSON(http.StatusCreated, map[string]string{
		"token": issued.Token.Token,
		"link":  issued.Link,
	})
}

func (h *Handler) Resolve(c echo.Context) error {
	resolved, err := h.svc.Resolve(c.Request().Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, form.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "token not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "could not resolve token")
	}
	return c.JSON(http.StatusOK, resolved)
}

func (h *Handler) ListPending(c echo.Context) error {
	items, err := h.svc.ListPendingForPatient(c.Request().Context(), c.Param("patNum"))
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "could not list pending forms")
	}
	if items == nil {
		items = []*Summary{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "token not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "could not delete token")
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

type tabletRequest struct {
	FormID     string `json:"form_id"`
	PatientID  string `json:"patient_id"`
	LocationID string `json:"location_id"`
}

func (h *Handler) SendTablet(c echo.Context) error {
	var req tabletRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	formID, err := uuid.Parse(req.FormID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "form_id is required")
	}
	locationID, err := uuid.Parse(req.LocationID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "location_id is required")
	}

	issued, message, err := h.svc.SendTablet(c.Request().Context(), formID, req.PatientID, locationID)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, form.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "form not found")
		case errors.Is(err, opendental.ErrMissingCredentials), errors.Is(err, opendental.ErrUpstream):
			return echo.NewHTTPError(http.StatusBadGateway, "patient directory unavailable")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "could not send tablet form")
	}
	return c.JSON(http.StatusCreated, map[string]string{
		"token":   issued.Token.Token,
		"message": message,
	})
}
