package ticketing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ManuelReschke/FormFox/app/models"
)

const (
	maxSummaryLength     = 255
	maxDescriptionLength = 30000
)

// Issue is the provider-neutral content of a ticket created for a submission.
type Issue struct {
	ProjectKey        string
	Summary           string
	Description       string
	IssueTypeID       string
	PriorityID        string
	CustomFieldValues map[string]interface{}
}

// BuildIssue renders a submission into an issue. Custom fields map provider
// field ids to payload keys, e.g. {"customfield_10010": "email"}.
func BuildIssue(form *models.Form, sub *models.Submission, settings *models.IntegrationSettings) Issue {
	issue := Issue{
		ProjectKey:        settings.ProjectKey,
		Summary:           summary(form, sub),
		Description:       description(form, sub),
		IssueTypeID:       settings.IssueTypeID,
		PriorityID:        settings.PriorityID,
		CustomFieldValues: map[string]interface{}{},
	}

	for fieldID, raw := range settings.CustomFields {
		key, ok := raw.(string)
		if !ok || key == "" {
			continue
		}
		if v, ok := sub.Payload[key]; ok {
			issue.CustomFieldValues[fieldID] = v
		}
	}
	return issue
}

func summary(form *models.Form, sub *models.Submission) string {
	s := fmt.Sprintf("[%s] New submission", form.Name)
	if email := sub.PayloadString("email"); email != "" {
		s += " from " + email
	}
	return truncate(s, maxSummaryLength)
}

func description(form *models.Form, sub *models.Submission) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Form: %s\n", form.Name)
	fmt.Fprintf(&b, "Submission: %s\n", sub.ID)
	fmt.Fprintf(&b, "Received: %s\n\n", sub.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC"))

	keys := orderedKeys(form, sub)
	for _, k := range keys {
		label := k
		if f, ok := form.Field(k); ok && f.Label != "" {
			label = f.Label
		}
		fmt.Fprintf(&b, "*%s*: %v\n", label, sub.Payload[k])
	}
	return truncate(b.String(), maxDescriptionLength)
}

// orderedKeys lists payload keys in schema order, then any remaining keys sorted.
func orderedKeys(form *models.Form, sub *models.Submission) []string {
	seen := map[string]struct{}{}
	keys := make([]string, 0, len(sub.Payload))
	for _, f := range form.Fields {
		if _, ok := sub.Payload[f.Name]; ok {
			keys = append(keys, f.Name)
			seen[f.Name] = struct{}{}
		}
	}
	var rest []string
	for k := range sub.Payload {
		if _, ok := seen[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
