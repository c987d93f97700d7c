package oauth

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/github"
	"github.com/markbates/goth/providers/google"
	"github.com/redis/go-redis/v9"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/ManuelReschke/FormFox/internal/pkg/cache"
	"github.com/ManuelReschke/FormFox/internal/pkg/env"
)

// stateRedisDB keeps OAuth state apart from queue and cache keys.
const stateRedisDB = 2

// CallbackURL returns the redirect URL registered with a provider.
func CallbackURL(provider string) string {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if base == "" {
		base = "http://localhost:" + env.GetEnv("APP_PORT", "4000")
	}
	return base + "/auth/" + provider + "/callback"
}

// Setup registers the providers that have credentials configured and
// installs the OAuth state session store. It returns the provider names.
func Setup(rdb *redis.Client) []string {
	var providers []goth.Provider
	var names []string

	if key, secret := env.GetEnv("GOOGLE_KEY", ""), env.GetEnv("GOOGLE_SECRET", ""); key != "" && secret != "" {
		providers = append(providers, google.New(key, secret, CallbackURL("google"), "email", "profile"))
		names = append(names, "google")
	}
	if key, secret := env.GetEnv("GITHUB_KEY", ""), env.GetEnv("GITHUB_SECRET", ""); key != "" && secret != "" {
		providers = append(providers, github.New(key, secret, CallbackURL("github"), "user:email"))
		names = append(names, "github")
	}

	goth.ClearProviders()
	goth.UseProviders(providers...)
	if len(names) == 0 {
		log.Info("[OAuth] No providers configured")
	}

	cfg := session.Config{
		KeyLookup:      "cookie:" + gothic.SessionName,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		CookieSecure:   !env.IsDev(),
		Expiration:     15 * time.Minute,
	}
	if rdb != nil {
		cfg.Storage = cache.FiberStorage(rdb, stateRedisDB)
	}
	gothfiber.SessionStore = session.New(cfg)

	return names
}
