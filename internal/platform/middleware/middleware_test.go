package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func newContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// ── RequestID ──

func TestRequestID_GeneratesWhenAbsent(t *testing.T) {
	c, rec := newContext(t)
	h := RequestID()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rid := RequestIDFrom(c)
	if rid == "" {
		t.Fatal("expected a generated request id")
	}
	if got := rec.Header().Get(echo.HeaderXRequestID); got != rid {
		t.Errorf("response header %q does not match context id %q", got, rid)
	}
}

func TestRequestID_HonorsInboundHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRequestID, "upstream-id")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := RequestID()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if RequestIDFrom(c) != "upstream-id" {
		t.Errorf("expected inbound id to win, got %q", RequestIDFrom(c))
	}
}

func TestRequestIDFrom_WithoutMiddleware(t *testing.T) {
	c, _ := newContext(t)
	if RequestIDFrom(c) != "" {
		t.Error("expected empty id when middleware did not run")
	}
}

// ── Logger ──

func TestLogger_PassesHandlerResultThrough(t *testing.T) {
	c, _ := newContext(t)
	want := echo.NewHTTPError(http.StatusNotFound, "missing")
	h := Logger(zerolog.Nop())(func(c echo.Context) error { return want })
	if err := h(c); err != want {
		t.Errorf("expected handler error back, got %v", err)
	}
}

func TestLogger_SuccessPath(t *testing.T) {
	c, rec := newContext(t)
	h := Logger(zerolog.Nop())(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

// ── Recovery ──

func TestRecovery_ConvertsPanicTo500(t *testing.T) {
	c, _ := newContext(t)
	h := Recovery(zerolog.Nop())(func(c echo.Context) error {
		panic("boom")
	})
	err := h(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %v", err)
	}
}

func TestRecovery_NoPanicPassesThrough(t *testing.T) {
	c, _ := newContext(t)
	h := Recovery(zerolog.Nop())(func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})
	if err := h(c); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
