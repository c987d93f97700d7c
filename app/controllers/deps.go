package controllers

import (
	"context"
	"time"

	"github.com/ManuelReschke/FormFox/app/repository"
	"github.com/ManuelReschke/FormFox/internal/pkg/billing"
	"github.com/ManuelReschke/FormFox/internal/pkg/jobqueue"
	"github.com/ManuelReschke/FormFox/internal/pkg/quota"
	"github.com/ManuelReschke/FormFox/internal/pkg/secretbox"
	"github.com/ManuelReschke/FormFox/internal/pkg/session"
)

// TicketEnqueuer schedules forwarding of a submission to the ticketing service.
type TicketEnqueuer interface {
	EnqueueTicketCreate(ctx context.Context, p jobqueue.TicketCreateJobPayload) (*jobqueue.Job, error)
}

// ExportEnqueuer schedules an upload of a form's submissions as CSV.
type ExportEnqueuer interface {
	EnqueueSubmissionExport(ctx context.Context, p jobqueue.SubmissionExportJobPayload) (*jobqueue.Job, error)
}

type ViewCounter interface {
	AddFormView(ctx context.Context, formID string) error
}

type CaptchaVerifier interface {
	Enabled() bool
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

// Cache holds rendered public form schemas.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Deps are the collaborators shared by all controllers. Optional
// collaborators may be left nil and their feature is skipped.
type Deps struct {
	Repos   *repository.Repositories
	Ledger  *quota.Ledger
	Codec   *session.Codec
	Billing *billing.Service
	Box     *secretbox.Box

	Captcha CaptchaVerifier
	Tickets TicketEnqueuer
	Exports ExportEnqueuer
	Views   ViewCounter
	Cache   Cache

	// IPSalt is mixed into stored client IP hashes.
	IPSalt string
	Now    func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
