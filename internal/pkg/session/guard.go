package session

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/ManuelReschke/FormFox/app/models"
)

// UserLookup resolves a session subject to its account.
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// Guard authenticates requests from the raw Cookie header.
type Guard struct {
	codec *Codec
	users UserLookup
	now   func() time.Time
}

type GuardOption func(*Guard)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) GuardOption {
	return func(g *Guard) { g.now = now }
}

// WithUserLookup enables strict mode: the subject must still exist, be
// active and the token must not predate a session revocation.
func WithUserLookup(users UserLookup) GuardOption {
	return func(g *Guard) { g.users = users }
}

func NewGuard(codec *Codec, opts ...GuardOption) *Guard {
	g := &Guard{codec: codec, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Codec returns the codec used to verify tokens.
func (g *Guard) Codec() *Codec {
	return g.codec
}

// Strict reports whether subjects are checked against the user store.
func (g *Guard) Strict() bool {
	return g.users != nil
}

// Authenticate returns the lower-cased subject of a valid session cookie.
func (g *Guard) Authenticate(ctx context.Context, cookieHeader string) (string, bool) {
	subject, _, ok := g.AuthenticateUser(ctx, cookieHeader)
	return subject, ok
}

// AuthenticateUser is Authenticate that also returns the account loaded in
// strict mode. The user is nil when no lookup is configured.
func (g *Guard) AuthenticateUser(ctx context.Context, cookieHeader string) (string, *models.User, bool) {
	token, ok := CookieValue(cookieHeader, CookieName)
	if !ok {
		return "", nil, false
	}
	payload, ok := g.codec.Verify(token)
	if !ok {
		return "", nil, false
	}
	if payload.ExpiresAt <= g.now().Unix() {
		return "", nil, false
	}
	subject := strings.ToLower(payload.Subject)

	if g.users == nil {
		return subject, nil, true
	}

	user, err := g.users.GetByEmail(ctx, subject)
	if err != nil || user == nil {
		return "", nil, false
	}
	if !user.IsActive() || user.SessionIssuedBeforeRevocation(payload.IssuedAt()) {
		return "", nil, false
	}
	return subject, user, true
}

// CookieValue extracts and URL-decodes the first cookie called name from a
// raw Cookie header. A '+' is kept literally.
func CookieValue(header, name string) (string, bool) {
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		k, v, found := strings.Cut(part, "=")
		if !found || strings.TrimSpace(k) != name {
			continue
		}
		v = strings.TrimSpace(v)
		if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
			v = v[1 : len(v)-1]
		}
		decoded, err := url.PathUnescape(v)
		if err != nil || decoded == "" {
			return "", false
		}
		return decoded, true
	}
	return "", false
}
