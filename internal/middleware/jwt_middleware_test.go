package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sweetshop/internal/middleware"
	"sweetshop/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator map[string]*models.Principal

func (s stubValidator) ValidateToken(token string) (*models.Principal, error) {
	if p, ok := s[token]; ok {
		return p, nil
	}
	return nil, errors.New("invalid token")
}

func newTestApp() *fiber.App {
	validator := stubValidator{
		"user-token":  {UserID: "u1", Role: models.RoleUser, ExpiresAt: time.Now().Add(time.Hour)},
		"admin-token": {UserID: "a1", Role: models.RoleAdmin, ExpiresAt: time.Now().Add(time.Hour)},
	}

	app := fiber.New()
	authed := app.Group("", middleware.AuthRequired(validator))
	authed.Get("/me", func(c *fiber.Ctx) error {
		return c.SendString(middleware.PrincipalFrom(c).UserID)
	})
	authed.Get("/admin", middleware.RequireRole(models.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestAuthRequired(t *testing.T) {
	app := newTestApp()

	tests := []struct {
		name   string
		header string
		path   string
		want   int
	}{
		{"missing header", "", "/me", http.StatusUnauthorized},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "/me", http.StatusUnauthorized},
		{"empty bearer", "Bearer ", "/me", http.StatusUnauthorized},
		{"unknown token", "Bearer nope", "/me", http.StatusUnauthorized},
		{"valid user", "Bearer user-token", "/me", http.StatusOK},
		{"user on admin route", "Bearer user-token", "/admin", http.StatusForbidden},
		{"admin on admin route", "Bearer admin-token", "/admin", http.StatusNoContent},
		{"anonymous on admin route", "", "/admin", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestRequireRoleWithoutPrincipal(t *testing.T) {
	app := fiber.New()
	app.Get("/admin", middleware.RequireRole(models.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
