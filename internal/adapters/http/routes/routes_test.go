package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"foodlink/internal/adapters/http/middleware"
	"foodlink/internal/adapters/persistence/models"
	"foodlink/internal/config"
	"foodlink/internal/core/services"
	"foodlink/internal/pkg/password"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type apiClient struct {
	t   *testing.T
	app *fiber.App
}

func newTestApp(t *testing.T) *apiClient {
	t.Helper()
	password.Cost = bcrypt.MinCost

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	require.NoError(t, config.NewSeeder(db, zap.NewNop(), time.Now).Run(false))

	cfg := &config.Config{
		AppMode: "dev",
		JWT: config.JWTConfig{
			Secret:           "routes-access-secret",
			RefreshSecret:    "routes-refresh-secret",
			AccessTokenMins:  15,
			RefreshTokenDays: 7,
		},
		Cookie: config.CookieConfig{SameSite: "Lax"},
		Engine: config.EngineConfig{
			Location:     time.UTC,
			SweepSpec:    "@hourly",
			TxMaxRetries: 3,
		},
	}

	app := fiber.New(fiber.Config{ErrorHandler: middleware.CustomErrorHandler})
	Setup(app, db, services.NewContainer(db, cfg, zap.NewNop()), cfg, zap.NewNop())
	return &apiClient{t: t, app: app}
}

func (a *apiClient) do(method, path, token string, body interface{}) (int, envelope) {
	a.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.app.Test(req, 5000)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	if len(raw) > 0 {
		require.NoError(a.t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func (a *apiClient) register(username, role, org string) string {
	a.t.Helper()

	status, env := a.do("POST", "/api/v1/auth/register", "", fiber.Map{
		"username":          username,
		"email":             username + "@example.com",
		"password":          "secret123",
		"confirm_password":  "secret123",
		"role":              role,
		"full_name":         "Test " + username,
		"city":              "Springfield",
		"organization_name": org,
	})
	require.Equal(a.t, fiber.StatusCreated, status, env.Error)

	var data struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(a.t, data.AccessToken)
	return data.AccessToken
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, v))
}

func TestDonationClaimFlow(t *testing.T) {
	api := newTestApp(t)

	donor := api.register("baker", "donor", "")
	ngo := api.register("shelter", "ngo", "Springfield Shelter")

	status, env := api.do("GET", "/api/v1/categories", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	var categories []map[string]interface{}
	decode(t, env.Data, &categories)
	assert.Len(t, categories, len(config.DefaultCategories))

	donation := fiber.Map{
		"category_id":    2,
		"title":          "Sourdough loaves",
		"quantity":       12,
		"unit":           "pieces",
		"expiry_date":    time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02"),
		"pickup_address": "12 Baker Street",
		"pickup_city":    "Springfield",
	}

	status, _ = api.do("POST", "/api/v1/donations", ngo, donation)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = api.do("POST", "/api/v1/donations", "", donation)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, env = api.do("POST", "/api/v1/donations", donor, donation)
	require.Equal(t, fiber.StatusCreated, status, env.Error)
	var created struct {
		ID     uint   `json:"id"`
		Status string `json:"status"`
	}
	decode(t, env.Data, &created)
	assert.Equal(t, "available", created.Status)

	status, env = api.do("GET", "/api/v1/donations?city=springfield", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	var page struct {
		Data []struct {
			ID uint `json:"id"`
		} `json:"data"`
		Meta struct {
			Total int64 `json:"total"`
		} `json:"meta"`
	}
	decode(t, env.Data, &page)
	assert.EqualValues(t, 1, page.Meta.Total)
	require.Len(t, page.Data, 1)
	assert.Equal(t, created.ID, page.Data[0].ID)

	claimPath := fmt.Sprintf("/api/v1/donations/%d/claim", created.ID)
	status, env = api.do("POST", claimPath, ngo, fiber.Map{"notes": "van arrives at noon"})
	require.Equal(t, fiber.StatusCreated, status, env.Error)
	var claim struct {
		ID     uint   `json:"id"`
		Status string `json:"status"`
	}
	decode(t, env.Data, &claim)
	assert.Equal(t, "claimed", claim.Status)

	status, _ = api.do("POST", claimPath, ngo, nil)
	assert.Equal(t, fiber.StatusConflict, status)

	// claimed donations leave the public list
	status, env = api.do("GET", "/api/v1/donations", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	decode(t, env.Data, &page)
	assert.Zero(t, page.Meta.Total)

	schedulePath := fmt.Sprintf("/api/v1/claims/%d/schedule", claim.ID)
	status, _ = api.do("PUT", schedulePath, ngo, fiber.Map{
		"pickup_scheduled_at": time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
	})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = api.do("PUT", schedulePath, ngo, fiber.Map{"pickup_scheduled_at": "tomorrow"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, env = api.do("PUT", schedulePath, ngo, fiber.Map{
		"pickup_scheduled_at": time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339),
	})
	require.Equal(t, fiber.StatusOK, status, env.Error)
	decode(t, env.Data, &claim)
	assert.Equal(t, "scheduled", claim.Status)

	// only NGOs progress claims
	status, _ = api.do("PUT", fmt.Sprintf("/api/v1/claims/%d/complete", claim.ID), donor, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, env = api.do("PUT", fmt.Sprintf("/api/v1/claims/%d/complete", claim.ID), ngo, nil)
	require.Equal(t, fiber.StatusOK, status, env.Error)
	decode(t, env.Data, &claim)
	assert.Equal(t, "completed", claim.Status)

	status, _ = api.do("PUT", fmt.Sprintf("/api/v1/claims/%d/cancel", claim.ID), ngo, nil)
	assert.Equal(t, fiber.StatusConflict, status)

	status, env = api.do("GET", fmt.Sprintf("/api/v1/donations/%d", created.ID), "", nil)
	require.Equal(t, fiber.StatusOK, status)
	decode(t, env.Data, &created)
	assert.Equal(t, "completed", created.Status)

	status, env = api.do("GET", "/api/v1/dashboard", donor, nil)
	require.Equal(t, fiber.StatusOK, status)
	var dashboard struct {
		TotalDonations     int64 `json:"total_donations"`
		CompletedDonations int64 `json:"completed_donations"`
	}
	decode(t, env.Data, &dashboard)
	assert.EqualValues(t, 1, dashboard.TotalDonations)
	assert.EqualValues(t, 1, dashboard.CompletedDonations)

	status, env = api.do("GET", "/api/v1/stats", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	var stats struct {
		CompletedClaims int64 `json:"completed_claims"`
		ActiveNGOs      int64 `json:"active_ngos"`
	}
	decode(t, env.Data, &stats)
	assert.EqualValues(t, 1, stats.CompletedClaims)
	assert.EqualValues(t, 1, stats.ActiveNGOs)
}

func TestRoutes_Misc(t *testing.T) {
	api := newTestApp(t)

	resp, err := api.app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	status, _ := api.do("GET", "/api/v1/donations/abc", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = api.do("GET", "/api/v1/donations/999", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = api.do("GET", "/api/v1/dashboard", "not-a-token", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	ngo := api.register("pantry", "ngo", "City Pantry")
	status, _ = api.do("GET", "/api/v1/donations/mine", ngo, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, env := api.do("GET", "/api/v1/auth/me", ngo, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.True(t, env.Success)
}
