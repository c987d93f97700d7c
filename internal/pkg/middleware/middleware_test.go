package middleware

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/FormFox/app/models"
	"github.com/ManuelReschke/FormFox/app/repository"
	"github.com/ManuelReschke/FormFox/internal/pkg/database"
	"github.com/ManuelReschke/FormFox/internal/pkg/pager"
	"github.com/ManuelReschke/FormFox/internal/pkg/session"
	"github.com/ManuelReschke/FormFox/internal/pkg/usercontext"
)

type stubUsers struct {
	byEmail   map[string]*models.User
	byKeyHash map[string]*models.User
	lookupErr error
	touched   []uint
}

func (s *stubUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := s.byEmail[email]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUsers) GetByAPIKeyHash(ctx context.Context, hash string) (*models.User, *models.UserSettings, error) {
	if s.lookupErr != nil {
		return nil, nil, s.lookupErr
	}
	if u, ok := s.byKeyHash[hash]; ok {
		return u, &models.UserSettings{ID: u.ID + 100, UserID: u.ID}, nil
	}
	return nil, nil, gorm.ErrRecordNotFound
}

func (s *stubUsers) TouchAPIKey(ctx context.Context, settingsID uint, at time.Time) error {
	s.touched = append(s.touched, settingsID)
	return nil
}

func whoami(c *fiber.Ctx) error {
	return c.JSON(usercontext.GetUserContext(c))
}

func TestUserContextMiddleware(t *testing.T) {
	codec, err := session.NewCodec("middleware-secret")
	require.NoError(t, err)
	users := &stubUsers{byEmail: map[string]*models.User{
		"ann@example.com": {ID: 4, Email: "ann@example.com", Name: "Ann", Status: models.STATUS_ACTIVE},
		"off@example.com": {ID: 5, Email: "off@example.com", Status: models.STATUS_DISABLED},
	}}

	for _, strict := range []bool{true, false} {
		var guard *session.Guard
		if strict {
			guard = session.NewGuard(codec, session.WithUserLookup(users))
		} else {
			guard = session.NewGuard(codec)
		}
		app := fiber.New()
		app.Use(UserContextMiddleware(guard, users))
		app.Get("/me", RequireAuth, whoami)

		token, _, err := codec.Issue("ann@example.com", time.Now())
		require.NoError(t, err)
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Cookie", session.CookieName+"="+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, "strict=%v", strict)

		token, _, err = codec.Issue("off@example.com", time.Now())
		require.NoError(t, err)
		req = httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Cookie", session.CookieName+"="+token)
		resp, err = app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "disabled user, strict=%v", strict)

		resp, err = app.Test(httptest.NewRequest("GET", "/me", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	}
}

func TestAPIKeyAuthMiddleware(t *testing.T) {
	raw := "ffx_testkey"
	users := &stubUsers{byKeyHash: map[string]*models.User{
		models.HashAPIKey(raw):        {ID: 7, Email: "api@example.com", Status: models.STATUS_ACTIVE},
		models.HashAPIKey("ffx_dead"): {ID: 8, Status: models.STATUS_DISABLED},
	}}
	app := fiber.New()
	app.Get("/api", APIKeyAuthMiddleware(users), whoami)

	tests := []struct {
		name   string
		header string
		value  string
		status int
	}{
		{"missing", "", "", fiber.StatusUnauthorized},
		{"x-api-key", "X-API-Key", raw, fiber.StatusOK},
		{"bearer", "Authorization", "Bearer " + raw, fiber.StatusOK},
		{"bearer lower-case", "Authorization", "bearer " + raw, fiber.StatusOK},
		{"unknown", "X-API-Key", "ffx_nope", fiber.StatusUnauthorized},
		{"disabled user", "X-API-Key", "ffx_dead", fiber.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
	assert.Contains(t, users.touched, uint(107))

	users.lookupErr = errors.New("db down")
	req := httptest.NewRequest("GET", "/api", nil)
	req.Header.Set("X-API-Key", raw)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestAPIKeyAuthMiddlewareRejectsRevokedKey(t *testing.T) {
	db, err := database.OpenTestDB()
	require.NoError(t, err)
	pg, err := pager.New(db)
	require.NoError(t, err)
	repos := repository.NewRepositories(db, pg)
	ctx := context.Background()

	user, err := models.CreateUser("Key Holder", "holder@example.com", "secret123")
	require.NoError(t, err)
	require.NoError(t, repos.User.Create(ctx, user))
	settings, err := repos.User.GetSettings(ctx, user.ID)
	require.NoError(t, err)
	raw, err := settings.IssueAPIKey()
	require.NoError(t, err)
	require.NoError(t, repos.User.SaveSettings(ctx, settings))

	app := fiber.New()
	app.Get("/api", APIKeyAuthMiddleware(repos.User), whoami)
	call := func() int {
		req := httptest.NewRequest("GET", "/api", nil)
		req.Header.Set("X-API-Key", raw)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusOK, call())
	touched, err := repos.User.GetSettings(ctx, user.ID)
	require.NoError(t, err)
	assert.NotNil(t, touched.APIKeyLastUsedAt)
	assert.Equal(t, models.PlanFree, touched.EffectivePlan())

	touched.RevokeAPIKey()
	require.NoError(t, repos.User.SaveSettings(ctx, touched))
	assert.Equal(t, fiber.StatusUnauthorized, call())
}

func TestRequireGuest(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		usercontext.Set(c, usercontext.UserContext{IsLoggedIn: c.Get("X-Logged-In") == "1"})
		return c.Next()
	})
	app.Post("/login", RequireGuest, func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest("POST", "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	req := httptest.NewRequest("POST", "/login", nil)
	req.Header.Set("X-Logged-In", "1")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}
