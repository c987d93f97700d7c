package jobqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/FormFox/internal/pkg/secretbox"
	"github.com/ManuelReschke/FormFox/internal/pkg/ticketing"
)

// TicketForwarder is satisfied by *ticketing.Forwarder.
type TicketForwarder interface {
	Forward(ctx context.Context, formID, submissionID string, ownerID uint) (*ticketing.CreatedIssue, error)
}

// TicketCreateHandler returns the handler for JobTypeTicketCreate jobs.
// Log lines carry ids only, never submission values.
func TicketCreateHandler(fw TicketForwarder) Handler {
	return func(ctx context.Context, job *Job) error {
		payload, err := DecodePayload[TicketCreateJobPayload](job)
		if err != nil {
			return Permanent(fmt.Errorf("invalid ticket payload: %w", err))
		}
		if payload.FormID == "" || payload.SubmissionID == "" {
			return Permanent(errors.New("ticket payload is missing ids"))
		}

		_, err = fw.Forward(ctx, payload.FormID, payload.SubmissionID, payload.UserID)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ticketing.ErrNotConfigured), errors.Is(err, ticketing.ErrDisabled):
			log.Infof("[JobQueue] Skipping ticket for submission %s: %v", payload.SubmissionID, err)
			return nil
		case errors.Is(err, secretbox.ErrDecrypt), errors.Is(err, ticketing.ErrBlockedAddress):
			return Permanent(err)
		}

		var statusErr *ticketing.StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return Permanent(err)
		}
		return err
	}
}

// EnqueueTicketCreate schedules ticket creation for a stored submission.
func (q *Queue) EnqueueTicketCreate(ctx context.Context, p TicketCreateJobPayload) (*Job, error) {
	return q.EnqueueJob(ctx, JobTypeTicketCreate, p)
}
