package ticketing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Credentials authenticate against the ticketing REST API.
type Credentials struct {
	BaseURL  string
	Email    string
	APIToken string
}

// CreatedIssue is the reference returned by the provider.
type CreatedIssue struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`
}

// StatusError is returned for non-2xx responses. Response bodies are not
// kept because providers may echo submitted values.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ticketing api returned status %d", e.StatusCode)
}

// Retryable reports whether the request may succeed when repeated.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client talks to a Jira-compatible REST API (v2).
type Client struct {
	HTTPClient *http.Client
}

// NewClient returns a client that refuses to connect to loopback, private
// or link-local addresses. Base URLs are user input.
func NewClient() *Client {
	return &Client{HTTPClient: publicHTTPClient(15 * time.Second)}
}

// CreateIssue posts issue to {base}/rest/api/2/issue.
func (c *Client) CreateIssue(ctx context.Context, creds Credentials, issue Issue) (*CreatedIssue, error) {
	base := strings.TrimRight(strings.TrimSpace(creds.BaseURL), "/")
	if base == "" || creds.Email == "" || creds.APIToken == "" {
		return nil, errors.New("ticketing credentials are incomplete")
	}
	if issue.ProjectKey == "" {
		return nil, errors.New("project key is required")
	}

	body, err := json.Marshal(map[string]interface{}{"fields": issueFields(issue)})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/rest/api/2/issue", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(creds.Email, creds.APIToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	var out CreatedIssue
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decode create issue response: %w", err)
	}
	return &out, nil
}

func issueFields(issue Issue) map[string]interface{} {
	fields := map[string]interface{}{
		"project":     map[string]string{"key": issue.ProjectKey},
		"summary":     issue.Summary,
		"description": issue.Description,
	}
	if issue.IssueTypeID != "" {
		fields["issuetype"] = map[string]string{"id": issue.IssueTypeID}
	} else {
		fields["issuetype"] = map[string]string{"name": "Task"}
	}
	if issue.PriorityID != "" {
		fields["priority"] = map[string]string{"id": issue.PriorityID}
	}
	for k, v := range issue.CustomFieldValues {
		if _, reserved := fields[k]; reserved {
			continue
		}
		fields[k] = v
	}
	return fields
}
