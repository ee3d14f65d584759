package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testSecret = []byte("test-secret")

func signedRequest(t *testing.T, secret []byte, role, locationID string) *http.Request {
	t.Helper()
	token, err := IssueToken(secret, "user-1", role, locationID, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	return req
}

func TestMiddleware_ValidToken(t *testing.T) {
	e := echo.New()
	req := signedRequest(t, testSecret, "front-desk", "loc-1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var gotUser, gotRole, gotLoc string
	next := func(c echo.Context) error {
		ctx := c.Request().Context()
		gotUser = UserIDFromContext(ctx)
		gotRole = RoleFromContext(ctx)
		gotLoc = LocationIDFromContext(ctx)
		return nil
	}
	if err := Middleware(testSecret)(next)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotUser != "user-1" || gotRole != "front-desk" || gotLoc != "loc-1" {
		t.Errorf("claims not propagated: %q %q %q", gotUser, gotRole, gotLoc)
	}
}

func TestMiddleware_MissingHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	err := Middleware(testSecret)(func(echo.Context) error { return nil })(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestMiddleware_WrongSecret(t *testing.T) {
	e := echo.New()
	req := signedRequest(t, []byte("other-secret"), "admin", "")
	c := e.NewContext(req, httptest.NewRecorder())

	err := Middleware(testSecret)(func(echo.Context) error { return nil })(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestMiddleware_ExpiredToken(t *testing.T) {
	e := echo.New()
	token, err := IssueToken(testSecret, "user-1", "admin", "", jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	c := e.NewContext(req, httptest.NewRecorder())

	mwErr := Middleware(testSecret)(func(echo.Context) error { return nil })(c)
	if he, ok := mwErr.(*echo.HTTPError); !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", mwErr)
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	run := func(role string, required ...string) error {
		req := signedRequest(t, testSecret, role, "")
		c := e.NewContext(req, httptest.NewRecorder())
		handler := Middleware(testSecret)(RequireRole(required...)(func(echo.Context) error { return nil }))
		return handler(c)
	}

	if err := run("front-desk", "front-desk"); err != nil {
		t.Errorf("matching role rejected: %v", err)
	}
	if err := run("admin", "front-desk"); err != nil {
		t.Errorf("admin must pass every check: %v", err)
	}
	err := run("hygienist", "front-desk")
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %v", err)
	}
}

func TestDevMiddleware(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	var role string
	next := func(c echo.Context) error {
		role = RoleFromContext(c.Request().Context())
		return nil
	}
	if err := DevMiddleware()(next)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role != "admin" {
		t.Errorf("expected admin role, got %q", role)
	}
}
