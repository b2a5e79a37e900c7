package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/socialflow/configs"
	"github.com/maheshrc27/socialflow/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp() (*fiber.App, config.Config) {
	cfg := config.Config{SecretKey: "0123456789abcdef0123456789abcdef", CookieName: "session"}
	app := fiber.New()
	app.Use(NewAuthMiddleware(cfg).AuthMiddleware())
	app.Get("/me", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("user_id").(string))
	})
	return app, cfg
}

func TestAuthMiddleware(t *testing.T) {
	app, cfg := newApp()
	token, err := utils.GenerateToken(cfg.SecretKey, "9", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "session", Value: token}) }, fiber.StatusOK},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, fiber.StatusOK},
		{"missing", func(r *http.Request) {}, fiber.StatusUnauthorized},
		{"forged", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, fiber.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tt.setup(req)

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestAuthMiddlewareClearsInvalidCookie(t *testing.T) {
	app, _ := newApp()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "expired"})

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Set-Cookie"), "session=;")
}
