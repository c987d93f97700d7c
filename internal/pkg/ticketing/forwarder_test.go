package ticketing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/FormFox/app/models"
	"github.com/ManuelReschke/FormFox/internal/pkg/secretbox"
)

type stubForms map[string]*models.Form

func (s stubForms) GetByID(ctx context.Context, id string) (*models.Form, error) {
	if f, ok := s[id]; ok {
		return f, nil
	}
	return nil, errors.New("not found")
}

type stubSubmissions map[string]*models.Submission

func (s stubSubmissions) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	if sub, ok := s[id]; ok {
		return sub, nil
	}
	return nil, errors.New("not found")
}

type stubIntegrations map[uint]*models.IntegrationSettings

func (s stubIntegrations) GetByUserID(ctx context.Context, userID uint) (*models.IntegrationSettings, error) {
	if st, ok := s[userID]; ok {
		return st, nil
	}
	return nil, errors.New("not found")
}

type recordingCreator struct {
	creds Credentials
	issue Issue
	err   error
}

func (r *recordingCreator) CreateIssue(ctx context.Context, creds Credentials, issue Issue) (*CreatedIssue, error) {
	r.creds = creds
	r.issue = issue
	if r.err != nil {
		return nil, r.err
	}
	return &CreatedIssue{Key: "OPS-7"}, nil
}

func newTestForwarder(t *testing.T, enabled bool) (*Forwarder, *recordingCreator, *models.IntegrationSettings) {
	t.Helper()
	box, err := secretbox.New("test-encryption-secret")
	require.NoError(t, err)
	enc, err := box.Encrypt("jira-token")
	require.NoError(t, err)

	form := sampleForm()
	form.UserID = 5
	form.TicketingEnabled = enabled
	settings := &models.IntegrationSettings{
		UserID:       5,
		BaseURL:      "https://jira.example.com",
		AccountEmail: "bot@example.com",
		APITokenEnc:  enc,
		ProjectKey:   "OPS",
		Enabled:      true,
	}
	creator := &recordingCreator{}
	fw := NewForwarder(
		stubForms{form.ID: form},
		stubSubmissions{"sub-1": sampleSubmission()},
		stubIntegrations{5: settings},
		box,
		creator,
	)
	return fw, creator, settings
}

func TestForward(t *testing.T) {
	fw, creator, _ := newTestForwarder(t, true)

	created, err := fw.Forward(context.Background(), "form-1", "sub-1", 5)
	require.NoError(t, err)
	assert.Equal(t, "OPS-7", created.Key)
	assert.Equal(t, "jira-token", creator.creds.APIToken)
	assert.Equal(t, "bot@example.com", creator.creds.Email)
	assert.Equal(t, "OPS", creator.issue.ProjectKey)
}

func TestForward_DisabledForm(t *testing.T) {
	fw, _, _ := newTestForwarder(t, false)
	_, err := fw.Forward(context.Background(), "form-1", "sub-1", 5)
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestForward_NotConfigured(t *testing.T) {
	fw, _, settings := newTestForwarder(t, true)
	settings.Enabled = false
	_, err := fw.Forward(context.Background(), "form-1", "sub-1", 5)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestForward_WrongOwner(t *testing.T) {
	fw, creator, settings := newTestForwarder(t, true)
	fw.integrations = stubIntegrations{6: settings}

	_, err := fw.Forward(context.Background(), "form-1", "sub-1", 6)
	require.Error(t, err)
	assert.Empty(t, creator.creds.APIToken)
}

func TestForward_UndecryptableToken(t *testing.T) {
	fw, _, settings := newTestForwarder(t, true)
	settings.APITokenEnc = "garbage"

	_, err := fw.Forward(context.Background(), "form-1", "sub-1", 5)
	assert.ErrorIs(t, err, secretbox.ErrDecrypt)
}

func TestForward_ClientErrorPropagates(t *testing.T) {
	fw, creator, _ := newTestForwarder(t, true)
	creator.err = &StatusError{StatusCode: 503}

	_, err := fw.Forward(context.Background(), "form-1", "sub-1", 5)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.True(t, statusErr.Retryable())
}
