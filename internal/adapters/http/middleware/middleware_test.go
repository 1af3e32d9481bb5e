package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"foodlink/internal/core/domain"
	"foodlink/internal/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSigner = jwt.NewSigner("middleware-secret", "middleware-refresh", 15*time.Minute, time.Hour, nil)

func token(t *testing.T, userID uint, role string) string {
	t.Helper()
	tok, err := testSigner.Access(jwt.Identity{UserID: userID, Email: "user@example.com", Username: "user", Role: domain.Role(role)})
	require.NoError(t, err)
	return tok
}

func call(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp, string(body)
}

func TestExtractToken(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(extractToken(c))
	})

	tests := []struct {
		name, query, header, cookie, want string
	}{
		{name: "none"},
		{name: "query", query: "?access_token=q", want: "q"},
		{name: "header beats query", query: "?access_token=q", header: "Bearer h", want: "h"},
		{name: "cookie beats header", query: "?access_token=q", header: "Bearer h", cookie: "c", want: "c"},
		{name: "non bearer header ignored", query: "?access_token=q", header: "Basic h", want: "q"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "access_token", Value: tt.cookie})
			}
			_, body := call(t, app, req)
			assert.Equal(t, tt.want, body)
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	app := fiber.New()
	app.Get("/", AuthMiddleware(testSigner), func(c *fiber.Ctx) error {
		actor, ok := GetActor(c)
		require.True(t, ok)
		return c.SendString(string(actor.Role))
	})

	bearer := func(tok string) *http.Request {
		req := httptest.NewRequest("GET", "/", nil)
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
		return req
	}

	resp, body := call(t, app, bearer(token(t, 3, "ngo")))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ngo", body)

	resp, body = call(t, app, bearer(""))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "Access token required")

	past := func() time.Time { return time.Now().Add(-time.Hour) }
	expired, err := jwt.NewSigner("middleware-secret", "middleware-refresh", time.Minute, time.Hour, past).
		Access(jwt.Identity{UserID: 3, Role: domain.RoleNGO})
	require.NoError(t, err)
	resp, body = call(t, app, bearer(expired))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "Access token expired")

	resp, _ = call(t, app, bearer(token(t, 3, "admin")))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	foreign, err := jwt.NewSigner("other-secret", "other-refresh", time.Minute, time.Hour, nil).
		Access(jwt.Identity{UserID: 3, Role: domain.RoleNGO})
	require.NoError(t, err)
	resp, _ = call(t, app, bearer(foreign))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestOptionalAuth(t *testing.T) {
	app := fiber.New()
	app.Get("/", OptionalAuth(testSigner), func(c *fiber.Ctx) error {
		if actor, ok := GetActor(c); ok {
			return c.SendString(string(actor.Role))
		}
		return c.SendString("anonymous")
	})

	_, body := call(t, app, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, "anonymous", body)

	_, body = call(t, app, httptest.NewRequest("GET", "/?access_token=garbage", nil))
	assert.Equal(t, "anonymous", body)

	_, body = call(t, app, httptest.NewRequest("GET", "/?access_token="+token(t, 1, "donor"), nil))
	assert.Equal(t, "donor", body)
}

func TestRoleMiddleware(t *testing.T) {
	app := fiber.New()
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) }
	app.Get("/donor", AuthMiddleware(testSigner), DonorOnly(), ok)
	app.Get("/ngo", AuthMiddleware(testSigner), NGOOnly(), ok)
	app.Get("/either", AuthMiddleware(testSigner), RoleMiddleware(domain.RoleDonor, domain.RoleNGO), ok)
	app.Get("/anonymous", RoleMiddleware(domain.RoleDonor), ok)

	donor, ngo := token(t, 1, "donor"), token(t, 2, "ngo")
	tests := []struct {
		path, token string
		want        int
	}{
		{"/donor", donor, fiber.StatusNoContent},
		{"/donor", ngo, fiber.StatusForbidden},
		{"/ngo", ngo, fiber.StatusNoContent},
		{"/ngo", donor, fiber.StatusForbidden},
		{"/either", donor, fiber.StatusNoContent},
		{"/either", ngo, fiber.StatusNoContent},
		{"/anonymous", "", fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		req := httptest.NewRequest("GET", tt.path, nil)
		if tt.token != "" {
			req.Header.Set("Authorization", "Bearer "+tt.token)
		}
		resp, _ := call(t, app, req)
		assert.Equal(t, tt.want, resp.StatusCode, tt.path)
	}
}

func TestCacheHeaders(t *testing.T) {
	app := fiber.New()
	app.Get("/public", CacheControl(time.Hour), func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/private", PrivateCacheHeaders(30*time.Second), func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/missing", CacheControl(time.Hour), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNotFound) })
	app.Get("/live", NoCacheHeaders(), func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, _ := call(t, app, httptest.NewRequest("GET", "/public", nil))
	assert.Equal(t, "public, max-age=3600", resp.Header.Get(fiber.HeaderCacheControl))

	resp, _ = call(t, app, httptest.NewRequest("GET", "/private", nil))
	assert.Equal(t, "private, max-age=30", resp.Header.Get(fiber.HeaderCacheControl))

	resp, _ = call(t, app, httptest.NewRequest("GET", "/missing", nil))
	assert.Empty(t, resp.Header.Get(fiber.HeaderCacheControl))

	resp, _ = call(t, app, httptest.NewRequest("GET", "/live", nil))
	assert.Equal(t, "no-store, no-cache, must-revalidate", resp.Header.Get(fiber.HeaderCacheControl))
	assert.Equal(t, "no-cache", resp.Header.Get(fiber.HeaderPragma))
}

func TestCustomErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: CustomErrorHandler})
	app.Get("/teapot", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "short and stout") })

	resp, body := call(t, app, httptest.NewRequest("GET", "/teapot", nil))
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
	assert.Contains(t, body, "short and stout")

	resp, _ = call(t, app, httptest.NewRequest("GET", "/nowhere", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
