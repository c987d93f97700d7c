package ticketing

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/FormFox/app/models"
)

// ErrNotConfigured is returned when the owner has no usable integration.
var ErrNotConfigured = errors.New("ticketing integration not configured")

// ErrDisabled is returned when the form does not forward submissions.
var ErrDisabled = errors.New("ticketing disabled for form")

type FormLoader interface {
	GetByID(ctx context.Context, id string) (*models.Form, error)
}

type SubmissionLoader interface {
	GetByID(ctx context.Context, id string) (*models.Submission, error)
}

type IntegrationLoader interface {
	GetByUserID(ctx context.Context, userID uint) (*models.IntegrationSettings, error)
}

// TokenOpener decrypts a stored API token.
type TokenOpener interface {
	Decrypt(blob string) (string, error)
}

// IssueCreator is satisfied by *Client.
type IssueCreator interface {
	CreateIssue(ctx context.Context, creds Credentials, issue Issue) (*CreatedIssue, error)
}

// Forwarder turns a stored submission into a ticket.
type Forwarder struct {
	forms        FormLoader
	submissions  SubmissionLoader
	integrations IntegrationLoader
	tokens       TokenOpener
	client       IssueCreator
}

func NewForwarder(forms FormLoader, submissions SubmissionLoader, integrations IntegrationLoader, tokens TokenOpener, client IssueCreator) *Forwarder {
	return &Forwarder{
		forms:        forms,
		submissions:  submissions,
		integrations: integrations,
		tokens:       tokens,
		client:       client,
	}
}

// Forward creates the ticket for submissionID. The API token is decrypted
// here and lives only for the duration of the request.
func (f *Forwarder) Forward(ctx context.Context, formID, submissionID string, ownerID uint) (*CreatedIssue, error) {
	settings, err := f.integrations.GetByUserID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load integration settings: %w", err)
	}
	if !settings.Ready() {
		return nil, ErrNotConfigured
	}

	form, err := f.forms.GetByID(ctx, formID)
	if err != nil {
		return nil, fmt.Errorf("load form: %w", err)
	}
	if form.UserID != ownerID {
		return nil, fmt.Errorf("form %s does not belong to user %d", formID, ownerID)
	}
	if !form.TicketingEnabled {
		return nil, ErrDisabled
	}

	sub, err := f.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("load submission: %w", err)
	}
	if sub.FormID != form.ID {
		return nil, fmt.Errorf("submission %s does not belong to form %s", submissionID, formID)
	}

	token, err := f.tokens.Decrypt(settings.APITokenEnc)
	if err != nil {
		return nil, fmt.Errorf("decrypt api token: %w", err)
	}

	created, err := f.client.CreateIssue(ctx, Credentials{
		BaseURL:  settings.BaseURL,
		Email:    settings.AccountEmail,
		APIToken: token,
	}, BuildIssue(form, sub, settings))
	if err != nil {
		return nil, err
	}

	log.Infof("[Ticketing] Created issue %s for submission %s", created.Key, sub.ID)
	return created, nil
}
