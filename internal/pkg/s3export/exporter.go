package s3export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/ManuelReschke/FormFox/app/models"
	"github.com/ManuelReschke/FormFox/internal/pkg/csvexport"
	"github.com/ManuelReschke/FormFox/internal/pkg/jobqueue"
)

// FormLoader loads a form by id.
type FormLoader interface {
	GetByID(ctx context.Context, id string) (*models.Form, error)
}

// SubmissionSource returns all submissions of a form matching the filters,
// newest first.
type SubmissionSource interface {
	ListForExport(ctx context.Context, formID, search, rangeKey string) ([]models.Submission, error)
}

// Exporter renders submissions to CSV and uploads them. It implements
// jobqueue.SubmissionExporter.
type Exporter struct {
	client      *Client
	forms       FormLoader
	submissions SubmissionSource
	now         func() time.Time
}

func NewExporter(client *Client, forms FormLoader, submissions SubmissionSource) *Exporter {
	return &Exporter{client: client, forms: forms, submissions: submissions, now: time.Now}
}

func (e *Exporter) ExportSubmissions(ctx context.Context, p jobqueue.SubmissionExportJobPayload) (string, error) {
	form, err := e.forms.GetByID(ctx, p.FormID)
	if err != nil {
		return "", fmt.Errorf("load form: %w", err)
	}
	if form.UserID != p.UserID {
		return "", jobqueue.Permanent(fmt.Errorf("form %s does not belong to user %d", p.FormID, p.UserID))
	}

	subs, err := e.submissions.ListForExport(ctx, form.ID, p.Search, p.Range)
	if err != nil {
		return "", fmt.Errorf("load submissions: %w", err)
	}

	var buf bytes.Buffer
	if err := csvexport.Write(&buf, subs); err != nil {
		return "", fmt.Errorf("render csv: %w", err)
	}

	key := e.client.config.ObjectKey(form.ID, e.now())
	if _, err := e.client.Upload(ctx, key, buf.Bytes(), "text/csv; charset=utf-8"); err != nil {
		return "", err
	}
	return key, nil
}
