package oauth

import (
	"testing"

	"github.com/markbates/goth"
	gothfiber "github.com/shareed2k/goth_fiber"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallbackURL(t *testing.T) {
	t.Setenv("PUBLIC_DOMAIN", "https://forms.example.com/")
	assert.Equal(t, "https://forms.example.com/auth/github/callback", CallbackURL("github"))

	t.Setenv("PUBLIC_DOMAIN", "")
	t.Setenv("APP_PORT", "8080")
	assert.Equal(t, "http://localhost:8080/auth/google/callback", CallbackURL("google"))
}

func TestSetupRegistersConfiguredProviders(t *testing.T) {
	t.Setenv("GOOGLE_KEY", "")
	t.Setenv("GOOGLE_SECRET", "")
	t.Setenv("GITHUB_KEY", "gh-key")
	t.Setenv("GITHUB_SECRET", "gh-secret")

	names := Setup(nil)
	assert.Equal(t, []string{"github"}, names)
	assert.NotNil(t, gothfiber.SessionStore)

	p, err := goth.GetProvider("github")
	require.NoError(t, err)
	assert.Equal(t, "github", p.Name())

	_, err = goth.GetProvider("google")
	assert.Error(t, err)
}
