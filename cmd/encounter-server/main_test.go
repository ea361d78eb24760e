package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/encounter/internal/config"
	"github.com/ehr/encounter/internal/platform/auth"
)

func TestParseDefaultInstitution(t *testing.T) {
	id, err := parseDefaultInstitution("")
	if err != nil || id != nil {
		t.Errorf("expected nil for empty value, got %v %v", id, err)
	}

	id, err = parseDefaultInstitution("6f1c1a0e-2b7e-4c55-9d5b-0b1f0f6d2a11")
	if err != nil || id == nil || id.String() != "6f1c1a0e-2b7e-4c55-9d5b-0b1f0f6d2a11" {
		t.Errorf("unexpected result %v %v", id, err)
	}

	if _, err := parseDefaultInstitution("clinic-1"); err == nil {
		t.Error("expected error for a non-uuid value")
	}
}

func TestUseMigrationsDir(t *testing.T) {
	if useMigrationsDir("") {
		t.Error("expected empty dir to use the embedded migrations")
	}
	if useMigrationsDir("./does-not-exist") {
		t.Error("expected a missing dir to use the embedded migrations")
	}
	if !useMigrationsDir(t.TempDir()) {
		t.Error("expected an existing dir to be used")
	}
}

func TestAuthMiddleware_Dev(t *testing.T) {
	mw := authMiddleware(&config.Config{Env: "development"})
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Dev-User", "dr-1")
	c := e.NewContext(req, httptest.NewRecorder())

	var user string
	err := mw(func(c echo.Context) error {
		user = auth.UserIDFromContext(c.Request().Context())
		return nil
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != "dr-1" {
		t.Errorf("expected dr-1, got %q", user)
	}
}

func TestAuthMiddleware_RequiresToken(t *testing.T) {
	mw := authMiddleware(&config.Config{Env: "production", AuthSigningKey: "secret"})
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	called := false
	err := mw(func(echo.Context) error {
		called = true
		return nil
	})(c)
	if err == nil || called {
		t.Error("expected a request without a bearer token to be rejected")
	}
}

func TestNewEcho_Health(t *testing.T) {
	e := newEcho(&config.Config{CORSOrigins: []string{"*"}}, zerolog.Nop())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Error("expected a request id header")
	}
}

func TestNewEcho_CORSPreflightAllowsDelete(t *testing.T) {
	e := newEcho(&config.Config{CORSOrigins: []string{"http://clinic.test"}}, zerolog.Nop())
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/component-types/1", nil)
	req.Header.Set(echo.HeaderOrigin, "http://clinic.test")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodDelete)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	allowed := rec.Header().Get(echo.HeaderAccessControlAllowMethods)
	if !strings.Contains(allowed, http.MethodDelete) {
		t.Errorf("expected DELETE in allowed methods, got %q", allowed)
	}
}
