package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/FormFox/app/models"
)

type fakeUsers struct {
	users map[string]*models.User
	err   error
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func cookieFor(t *testing.T, c *Codec, subject string, exp int64) string {
	t.Helper()
	token, err := c.Sign(Payload{Version: 1, Subject: subject, ExpiresAt: exp})
	require.NoError(t, err)
	return CookieName + "=" + token
}

func TestGuardExpiryBoundary(t *testing.T) {
	c := newTestCodec(t)
	now := time.Unix(1700000000, 0)
	g := NewGuard(c, WithClock(func() time.Time { return now }))

	_, ok := g.Authenticate(context.Background(), cookieFor(t, c, "a@b.c", now.Unix()-1))
	assert.False(t, ok, "expired one second ago")

	_, ok = g.Authenticate(context.Background(), cookieFor(t, c, "a@b.c", now.Unix()))
	assert.False(t, ok, "expires now")

	subject, ok := g.Authenticate(context.Background(), cookieFor(t, c, "a@b.c", now.Unix()+1))
	assert.True(t, ok)
	assert.Equal(t, "a@b.c", subject)
}

func TestGuardAuthenticateUserWithoutLookup(t *testing.T) {
	c := newTestCodec(t)
	g := NewGuard(c)
	assert.False(t, g.Strict())

	subject, user, ok := g.AuthenticateUser(context.Background(), cookieFor(t, c, "a@b.c", time.Now().Add(time.Hour).Unix()))
	assert.True(t, ok)
	assert.Equal(t, "a@b.c", subject)
	assert.Nil(t, user)
}

func TestGuardLowercasesSubject(t *testing.T) {
	c := newTestCodec(t)
	g := NewGuard(c)

	subject, ok := g.Authenticate(context.Background(), cookieFor(t, c, "Jane@Example.com", time.Now().Add(time.Hour).Unix()))
	require.True(t, ok)
	assert.Equal(t, "jane@example.com", subject)
}

func TestGuardCookieParsing(t *testing.T) {
	c := newTestCodec(t)
	g := NewGuard(c)
	token, err := c.Sign(Payload{Version: 1, Subject: "a@b.c", ExpiresAt: time.Now().Add(time.Hour).Unix()})
	require.NoError(t, err)

	ok := func(header string) bool {
		_, ok := g.Authenticate(context.Background(), header)
		return ok
	}

	assert.True(t, ok("theme=dark; "+CookieName+"="+token+"; other=1"))
	assert.True(t, ok(CookieName+"="+url.QueryEscape(token)))
	assert.True(t, ok(CookieName+"="+token+"; "+CookieName+"=garbage"), "first occurrence wins")
	assert.False(t, ok(CookieName+"=garbage; "+CookieName+"="+token))
	assert.False(t, ok(""))
	assert.False(t, ok("x"+CookieName+"="+token))
	assert.False(t, ok(CookieName+"=%zz"))
	assert.False(t, ok(CookieName+"="+strings.Replace(token, ".", "+", 1)))
}

func TestGuardStrictMode(t *testing.T) {
	c := newTestCodec(t)
	now := time.Unix(1700000000, 0)
	revoked := now.Add(-time.Hour)
	users := &fakeUsers{users: map[string]*models.User{
		"active@example.com":   {Email: "active@example.com", Status: models.STATUS_ACTIVE},
		"disabled@example.com": {Email: "disabled@example.com", Status: models.STATUS_DISABLED},
		"revoked@example.com":  {Email: "revoked@example.com", Status: models.STATUS_ACTIVE, SessionsRevokedAt: &revoked},
	}}
	g := NewGuard(c, WithClock(func() time.Time { return now }), WithUserLookup(users))
	require.True(t, g.Strict())

	exp := now.Add(TTL - 2*time.Hour).Unix()

	subject, user, ok := g.AuthenticateUser(context.Background(), cookieFor(t, c, "active@example.com", exp))
	assert.True(t, ok)
	assert.Equal(t, "active@example.com", subject)
	require.NotNil(t, user)
	assert.Equal(t, "active@example.com", user.Email)

	_, ok = g.Authenticate(context.Background(), cookieFor(t, c, "ghost@example.com", exp))
	assert.False(t, ok, "unknown subject")

	_, ok = g.Authenticate(context.Background(), cookieFor(t, c, "disabled@example.com", exp))
	assert.False(t, ok, "disabled user")

	_, ok = g.Authenticate(context.Background(), cookieFor(t, c, "revoked@example.com", exp))
	assert.False(t, ok, "issued before revocation")

	_, ok = g.Authenticate(context.Background(), cookieFor(t, c, "revoked@example.com", now.Add(TTL).Unix()))
	assert.True(t, ok, "issued after revocation")

	users.err = errors.New("db down")
	_, ok = g.Authenticate(context.Background(), cookieFor(t, c, "active@example.com", exp))
	assert.False(t, ok, "lookup errors reject")
}

func TestIssueAndClearCookie(t *testing.T) {
	app := fiber.New()
	app.Get("/in", func(c *fiber.Ctx) error {
		IssueCookie(c, "tok.sig", time.Now().Add(TTL))
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/out", func(c *fiber.Ctx) error {
		ClearCookie(c)
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/in", nil))
	require.NoError(t, err)
	setCookie := resp.Header.Get("Set-Cookie")
	assert.Contains(t, setCookie, CookieName+"=tok.sig")
	assert.Contains(t, setCookie, "HttpOnly")
	assert.Contains(t, strings.ToLower(setCookie), "samesite=lax")
	assert.Contains(t, setCookie, "path=/")
	assert.Contains(t, setCookie, "max-age=43200")

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/out", nil))
	require.NoError(t, err)
	assert.Contains(t, resp.Header.Get("Set-Cookie"), CookieName+"=;")
}
