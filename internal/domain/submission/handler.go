package submission

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/wckliment/ikon-practice-sub001/internal/domain/form"
	"github.com/wckliment/ikon-practice-sub001/internal/platform/snapshots"
	"github.com/wckliment/ikon-practice-sub001/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the staff submission path (which uploads back to the
// EHR) and the public path (which does not). Which path runs is decided
// here, by route, not re-derived inside the service.
func (h *Handler) RegisterRoutes(staff, public *echo.Group) {
	staff.POST("/custom-forms/:id/submissions", h.SubmitStaff)
	staff.GET("/submissions/:id", h.Get)
	staff.GET("/submissions/:id/pdf", h.GetPDF)
	staff.GET("/submissions/patient/:patNum", h.ListByPatient)

	public.POST("/custom-forms/:id/public-submissions", h.SubmitPublic)
}

type submitRequest struct {
	PatientID     *string       `json:"patient_id"`
	LocationID    *string       `json:"location_id"`
	SubmittedByIP *string       `json:"submitted_by_ip"`
	Answers       []AnswerInput `json:"answers"`
}

func (h *Handler) buildRequest(c echo.Context) (*Request, error) {
	templateID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid form id")
	}
	var body submitRequest
	if err := c.Bind(&body); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req := &Request{
		TemplateID:    templateID,
		PatientID:     body.PatientID,
		SubmittedByIP: body.SubmittedByIP,
		Answers:       body.Answers,
	}
	if req.SubmittedByIP == nil {
		ip := c.RealIP()
		req.SubmittedByIP = &ip
	}
	if body.LocationID != nil {
		lid, err := uuid.Parse(*body.LocationID)
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid location_id")
		}
		req.LocationID = &lid
	}
	return req, nil
}

func (h *Handler) submit(c echo.Context, run func(*Request) (*Submission, error)) error {
	req, err := h.buildRequest(c)
	if err != nil {
		return err
	}
	sub, err := run(req)
	if err != nil {
		switch {
		case errors.Is(err, form.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "form not found")
		case errors.Is(err, ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrDuplicate):
			return echo.NewHTTPError(http.StatusConflict, "form already submitted for this patient")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "could not record submission")
	}
	return c.JSON(http.StatusCreated, map[string]string{"submission_id": sub.ID.String()})
}

func (h *Handler) SubmitStaff(c echo.Context) error {
	return h.submit(c, func(req *Request) (*Submission, error) {
		return h.svc.SubmitAndUpload(c.Request().Context(), req)
	})
}

func (h *Handler) SubmitPublic(c echo.Context) error {
	return h.submit(c, func(req *Request) (*Submission, error) {
		return h.svc.Submit(c.Request().Context(), req)
	})
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sub, answers, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "submission not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "could not load submission")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"submission": sub, "answers": answers})
}

func (h *Handler) GetPDF(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pdf, err := h.svc.GetPDF(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, snapshots.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "pdf not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "could not load pdf")
	}
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), c.Param("patNum"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not list submissions")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}
