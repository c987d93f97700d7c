package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/FormFox/app/models"
	"github.com/ManuelReschke/FormFox/internal/pkg/database"
	"github.com/ManuelReschke/FormFox/internal/pkg/pager"
)

func newTestRepos(t *testing.T) (*gorm.DB, *Repositories) {
	t.Helper()
	db, err := database.OpenTestDB()
	require.NoError(t, err)
	pg, err := pager.New(db)
	require.NoError(t, err)
	return db, NewRepositories(db, pg)
}

func createUser(t *testing.T, repos *Repositories, email string) *models.User {
	t.Helper()
	u, err := models.CreateUser("Tester", email, "secret123")
	require.NoError(t, err)
	require.NoError(t, repos.User.Create(context.Background(), u))
	return u
}

func TestUserRepository_EmailIsCaseInsensitive(t *testing.T) {
	_, repos := newTestRepos(t)
	ctx := context.Background()
	u := createUser(t, repos, "Alice@Example.com")

	got, err := repos.User.GetByEmail(ctx, "  ALICE@example.COM ")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	exists, err := repos.User.ExistsByEmail(ctx, "alice@EXAMPLE.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repos.User.ExistsByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUserRepository_RevokeSessions(t *testing.T) {
	_, repos := newTestRepos(t)
	ctx := context.Background()
	u := createUser(t, repos, "carol@example.com")

	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repos.User.RevokeSessions(ctx, u.ID, at))

	got, err := repos.User.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SessionsRevokedAt)
	assert.True(t, got.SessionIssuedBeforeRevocation(at.Add(-time.Second)))
	assert.False(t, got.SessionIssuedBeforeRevocation(at))

	assert.ErrorIs(t, repos.User.RevokeSessions(ctx, 9999, at), gorm.ErrRecordNotFound)
}

func TestUserRepository_APIKeyLookup(t *testing.T) {
	_, repos := newTestRepos(t)
	ctx := context.Background()
	u := createUser(t, repos, "dave@example.com")

	settings, err := repos.User.GetSettings(ctx, u.ID)
	require.NoError(t, err)
	raw, err := settings.IssueAPIKey()
	require.NoError(t, err)
	require.NoError(t, repos.User.SaveSettings(ctx, settings))

	gotUser, gotSettings, err := repos.User.GetByAPIKeyHash(ctx, models.HashAPIKey(raw))
	require.NoError(t, err)
	assert.Equal(t, u.ID, gotUser.ID)
	assert.Equal(t, settings.ID, gotSettings.ID)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repos.User.TouchAPIKey(ctx, settings.ID, now))

	settings.RevokeAPIKey()
	require.NoError(t, repos.User.SaveSettings(ctx, settings))
	_, _, err = repos.User.GetByAPIKeyHash(ctx, models.HashAPIKey(raw))
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, _, err = repos.User.GetByAPIKeyHash(ctx, " ")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository_FindOrCreateByProvider(t *testing.T) {
	db, repos := newTestRepos(t)
	ctx := context.Background()
	existing := createUser(t, repos, "erin@example.com")

	// Links to the existing account by e-mail.
	u, err := repos.User.FindOrCreateByProvider(ctx, "github", "gh-1", "Erin@Example.com", "Erin")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, u.ID)

	// Second sign-in resolves through the link even if the e-mail changed.
	u, err = repos.User.FindOrCreateByProvider(ctx, "github", "gh-1", "other@example.com", "Erin")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, u.ID)

	// Unknown identity and e-mail creates a new user.
	u, err = repos.User.FindOrCreateByProvider(ctx, "google", "g-7", "frank@example.com", "")
	require.NoError(t, err)
	assert.NotEqual(t, existing.ID, u.ID)
	assert.Equal(t, "frank@example.com", u.Name)
	assert.True(t, u.IsActive())

	var links int64
	require.NoError(t, db.Model(&models.ProviderAccount{}).Count(&links).Error)
	assert.Equal(t, int64(2), links)

	_, err = repos.User.FindOrCreateByProvider(ctx, "google", "g-8", "", "")
	assert.Error(t, err)
}

func seedForm(t *testing.T, db *gorm.DB, userID uint, slug string) *models.Form {
	t.Helper()
	f := &models.Form{UserID: userID, Slug: slug, Name: "Form " + slug, IsActive: true}
	require.NoError(t, db.Create(f).Error)
	return f
}

func TestFormRepository(t *testing.T) {
	db, repos := newTestRepos(t)
	ctx := context.Background()

	f1 := seedForm(t, db, 1, "slug-one")
	seedForm(t, db, 1, "slug-two")
	seedForm(t, db, 2, "slug-three")

	got, err := repos.Form.GetBySlug(ctx, "slug-one")
	require.NoError(t, err)
	assert.Equal(t, f1.ID, got.ID)

	_, err = repos.Form.GetByIDForUser(ctx, f1.ID, 2)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	list, err := repos.Form.ListByUser(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	n, err := repos.Form.CountByUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	exists, err := repos.Form.SlugExists(ctx, "slug-two")
	require.NoError(t, err)
	assert.True(t, exists)

	// Booleans can be switched off.
	got.IsActive = false
	got.TicketingEnabled = true
	got.Name = "Renamed"
	require.NoError(t, repos.Form.Update(ctx, got))
	reloaded, err := repos.Form.GetByID(ctx, f1.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsActive)
	assert.True(t, reloaded.TicketingEnabled)
	assert.Equal(t, "Renamed", reloaded.Name)
}

func TestFormRepository_DeleteRemovesSubmissions(t *testing.T) {
	db, repos := newTestRepos(t)
	ctx := context.Background()
	f := seedForm(t, db, 1, "to-delete")
	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&models.Submission{FormID: f.ID, Payload: map[string]interface{}{"i": i}}).Error)
	}

	require.NoError(t, repos.Form.Delete(ctx, f.ID))

	var subs int64
	require.NoError(t, db.Model(&models.Submission{}).Where("form_id = ?", f.ID).Count(&subs).Error)
	assert.Zero(t, subs)
	assert.ErrorIs(t, repos.Form.Delete(ctx, f.ID), gorm.ErrRecordNotFound)
}

func TestSubmissionRepository(t *testing.T) {
	db, repos := newTestRepos(t)
	ctx := context.Background()
	f := seedForm(t, db, 1, "subs")
	other := seedForm(t, db, 1, "other")

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		require.NoError(t, db.Create(&models.Submission{
			FormID:    f.ID,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Payload:   map[string]interface{}{"email": fmt.Sprintf("user%d@example.com", i)},
		}).Error)
	}

	page, err := repos.Submission.Page(ctx, f.ID, pager.Options{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	require.NotNil(t, page.NextCursor)

	all, err := repos.Submission.ListForExport(ctx, f.ID, "", "")
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "user4@example.com", all[0].PayloadString("email"))

	filtered, err := repos.Submission.ListForExport(ctx, f.ID, "USER3", "")
	require.NoError(t, err)
	require.Len(t, filtered, 1)

	n, err := repos.Submission.CountByForm(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	// Deleting through the wrong form is a miss.
	assert.ErrorIs(t, repos.Submission.Delete(ctx, other.ID, all[0].ID), gorm.ErrRecordNotFound)
	require.NoError(t, repos.Submission.Delete(ctx, f.ID, all[0].ID))
	_, err = repos.Submission.GetByID(ctx, all[0].ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestIntegrationRepository_Upsert(t *testing.T) {
	_, repos := newTestRepos(t)
	ctx := context.Background()

	_, err := repos.Integration.GetByUserID(ctx, 1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	s := &models.IntegrationSettings{UserID: 1, BaseURL: "https://a.example", ProjectKey: "A", Enabled: true, APITokenEnc: "blob1"}
	require.NoError(t, repos.Integration.Upsert(ctx, s))
	firstID := s.ID

	s2 := &models.IntegrationSettings{UserID: 1, BaseURL: "https://b.example", ProjectKey: "B", Enabled: true, APITokenEnc: "blob2"}
	require.NoError(t, repos.Integration.Upsert(ctx, s2))
	assert.Equal(t, firstID, s2.ID)

	got, err := repos.Integration.GetByUserID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "https://b.example", got.BaseURL)
	assert.Equal(t, "B", got.ProjectKey)
	assert.Equal(t, "blob2", got.APITokenEnc)
}
