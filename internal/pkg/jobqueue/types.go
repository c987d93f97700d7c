package jobqueue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// JobType selects the handler a job is dispatched to.
type JobType string

const (
	JobTypeTicketCreate     JobType = "ticket_create"
	JobTypeSubmissionExport JobType = "submission_export"
)

// JobStatus is the state recorded on the stored job body.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusRetrying   JobStatus = "retrying"
	JobStatusFailed     JobStatus = "failed"
)

// Job is one unit of background work. Completed jobs are deleted, so a
// stored job is always pending, running, waiting for a retry or dead.
type Job struct {
	ID          string          `json:"id"`
	Type        JobType         `json:"type"`
	Status      JobStatus       `json:"status"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	ErrorMsg    string          `json:"error_msg,omitempty"`
	RetryCount  int             `json:"retry_count"`
	MaxRetries  int             `json:"max_retries"`
}

// TicketCreateJobPayload references the submission to forward. The
// submission content is loaded by the worker and never stored in the job.
type TicketCreateJobPayload struct {
	FormID       string `json:"form_id"`
	SubmissionID string `json:"submission_id"`
	UserID       uint   `json:"user_id"`
}

// SubmissionExportJobPayload describes a CSV export to object storage.
type SubmissionExportJobPayload struct {
	FormID string `json:"form_id"`
	UserID uint   `json:"user_id"`
	Search string `json:"search,omitempty"`
	Range  string `json:"range,omitempty"`
}

var errNoPayload = errors.New("job has no payload")

// DecodePayload unmarshals the payload of job into a T.
func DecodePayload[T any](job *Job) (*T, error) {
	if len(job.Payload) == 0 {
		return nil, errNoPayload
	}
	var p T
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", job.Type, err)
	}
	return &p, nil
}

func (j *Job) start(now time.Time) {
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// fail records a failed attempt and reports whether another one is due.
// Permanent errors use up the remaining attempts.
func (j *Job) fail(err error, now time.Time) bool {
	j.RetryCount++
	if IsPermanent(err) && j.RetryCount < j.MaxRetries {
		j.RetryCount = j.MaxRetries
	}
	j.ErrorMsg = err.Error()
	j.UpdatedAt = now
	if j.RetryCount < j.MaxRetries {
		j.Status = JobStatusRetrying
		return true
	}
	j.Status = JobStatusFailed
	return false
}
