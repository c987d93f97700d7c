package models_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/FormFox/app/models"
	"github.com/ManuelReschke/FormFox/internal/pkg/database"
)

var apiKeyPattern = regexp.MustCompile(`^ffx_[a-z2-7]{32}$`)

func TestNewAPIKeyShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		key, err := models.NewAPIKey()
		require.NoError(t, err)
		assert.Regexp(t, apiKeyPattern, key)
		assert.False(t, seen[key], "duplicate key %s", key)
		seen[key] = true
	}
}

func TestIssueAPIKeyStoresOnlyHashAndPrefix(t *testing.T) {
	us := &models.UserSettings{UserID: 3}
	assert.False(t, us.HasActiveAPIKey())

	first, err := us.IssueAPIKey()
	require.NoError(t, err)
	assert.True(t, us.HasActiveAPIKey())
	assert.Equal(t, models.HashAPIKey(first), us.APIKeyHash)
	assert.Equal(t, first[:16], us.APIKeyPrefix)
	assert.NotContains(t, us.APIKeyHash, first)
	require.NotNil(t, us.APIKeyCreatedAt)

	// a reissue replaces the old key
	second, err := us.IssueAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.NotEqual(t, models.HashAPIKey(first), us.APIKeyHash)
	assert.Equal(t, models.HashAPIKey(" "+second+"\n"), us.APIKeyHash)
}

func TestRevokeAndReissueAPIKey(t *testing.T) {
	us := &models.UserSettings{UserID: 9}
	_, err := us.IssueAPIKey()
	require.NoError(t, err)

	us.RevokeAPIKey()
	assert.False(t, us.HasActiveAPIKey())
	assert.Empty(t, us.APIKeyHash)
	assert.Empty(t, us.APIKeyPrefix)
	require.NotNil(t, us.APIKeyRevokedAt)

	_, err = us.IssueAPIKey()
	require.NoError(t, err)
	assert.True(t, us.HasActiveAPIKey())
	assert.Nil(t, us.APIKeyRevokedAt)
}

func TestEffectivePlan(t *testing.T) {
	var missing *models.UserSettings
	assert.Equal(t, models.PlanFree, missing.EffectivePlan())
	assert.Equal(t, models.PlanFree, (&models.UserSettings{}).EffectivePlan())
	assert.Equal(t, "pro", (&models.UserSettings{Plan: "pro"}).EffectivePlan())
}

func TestGetOrCreateUserSettingsStartsOnFreePlan(t *testing.T) {
	db, err := database.OpenTestDB()
	require.NoError(t, err)

	created, err := models.GetOrCreateUserSettings(db, 42)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, models.PlanFree, created.Plan)
	assert.False(t, created.HasActiveAPIKey())

	created.Plan = "starter"
	require.NoError(t, db.Save(created).Error)

	again, err := models.GetOrCreateUserSettings(db, 42)
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, "starter", again.Plan)

	var count int64
	require.NoError(t, db.Model(&models.UserSettings{}).Where("user_id = ?", 42).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
