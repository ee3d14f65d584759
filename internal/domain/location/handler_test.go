package location

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestHandler_GetByCode_RedactsCredentials(t *testing.T) {
	svc, _ := newTestService()
	l := &Location{Name: "Downtown", Code: "dtwn", CustomerKey: str("super-secret"), DeveloperKey: str("also-secret")}
	if err := svc.Create(context.Background(), l); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h := NewHandler(svc)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("code")
	c.SetParamValues("dtwn")

	if err := h.GetByCode(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "secret") {
		t.Error("credential pair leaked through the public endpoint")
	}
	if !strings.Contains(body, "Downtown") {
		t.Errorf("expected location name in response, got %s", body)
	}
}

func TestHandler_GetByCode_NotFound(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("code")
	c.SetParamValues("ghost")

	err := h.GetByCode(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestLocationJSON_OmitsCredentials(t *testing.T) {
	svc, _ := newTestService()
	l := &Location{Name: "Downtown", Code: "dtwn", CustomerKey: str("super-secret"), DeveloperKey: str("also-secret")}
	if err := svc.Create(context.Background(), l); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h := NewHandler(svc)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(l.ID.String())

	if err := h.Get(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(rec.Body.String(), "secret") {
		t.Error("credential pair must never serialize")
	}
}
