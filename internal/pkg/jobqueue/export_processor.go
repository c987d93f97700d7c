package jobqueue

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
)

// SubmissionExporter writes a form's submissions to object storage and
// returns the object key.
type SubmissionExporter interface {
	ExportSubmissions(ctx context.Context, p SubmissionExportJobPayload) (string, error)
}

// SubmissionExportHandler returns the handler for JobTypeSubmissionExport jobs.
func SubmissionExportHandler(exp SubmissionExporter) Handler {
	return func(ctx context.Context, job *Job) error {
		payload, err := DecodePayload[SubmissionExportJobPayload](job)
		if err != nil {
			return Permanent(fmt.Errorf("invalid export payload: %w", err))
		}
		if payload.FormID == "" {
			return Permanent(fmt.Errorf("export payload is missing form id"))
		}

		key, err := exp.ExportSubmissions(ctx, *payload)
		if err != nil {
			return err
		}
		log.Infof("[JobQueue] Exported submissions of form %s to %s", payload.FormID, key)
		return nil
	}
}

// EnqueueSubmissionExport schedules an object storage export.
func (q *Queue) EnqueueSubmissionExport(ctx context.Context, p SubmissionExportJobPayload) (*Job, error) {
	return q.EnqueueJob(ctx, JobTypeSubmissionExport, p)
}
