package models

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	FieldTypeText     = "text"
	FieldTypeEmail    = "email"
	FieldTypeTextarea = "textarea"
	FieldTypeNumber   = "number"
	FieldTypeCheckbox = "checkbox"
	FieldTypeSelect   = "select"
)

const (
	maxFieldValueLength = 10000
	maxFormFields       = 50
)

// FormField describes one input of a public form.
type FormField struct {
	Name     string   `json:"name" validate:"required,max=64,excludesall=.$ "`
	Label    string   `json:"label" validate:"max=200"`
	Type     string   `json:"type" validate:"required,oneof=text email textarea number checkbox select"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty" validate:"omitempty,dive,max=200"`
}

type Form struct {
	ID               string                         `gorm:"primaryKey;type:char(36)" json:"id"`
	UserID           uint                           `gorm:"not null;index" json:"user_id"`
	Slug             string                         `gorm:"uniqueIndex;type:varchar(32);not null" json:"slug"`
	Name             string                         `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=1,max=150"`
	Description      string                         `gorm:"type:text" json:"description" validate:"max=2000"`
	Fields           datatypes.JSONSlice[FormField] `json:"fields" validate:"max=50,dive"`
	RedirectURL      string                         `gorm:"type:varchar(500);default:''" json:"redirect_url" validate:"omitempty,url,max=500"`
	IsActive         bool                           `gorm:"default:true" json:"is_active"`
	TicketingEnabled bool                           `gorm:"default:false" json:"ticketing_enabled"`
	ViewCount        uint64                         `gorm:"default:0" json:"view_count"`
	CreatedAt        time.Time                      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time                      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (f *Form) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

// Field returns the schema entry with the given name.
func (f *Form) Field(name string) (FormField, bool) {
	for _, field := range f.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return FormField{}, false
}

// ValidateFields checks that field names are unique within the form.
func (f *Form) ValidateFields() error {
	if len(f.Fields) > maxFormFields {
		return fmt.Errorf("a form can have at most %d fields", maxFormFields)
	}
	seen := make(map[string]struct{}, len(f.Fields))
	for _, field := range f.Fields {
		if _, ok := seen[field.Name]; ok {
			return fmt.Errorf("duplicate field name %q", field.Name)
		}
		seen[field.Name] = struct{}{}
	}
	return nil
}

// SubmissionError lists per-field problems of a rejected submission.
type SubmissionError struct {
	Fields map[string]string
}

func (e *SubmissionError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	return "invalid submission: " + strings.Join(names, ", ")
}

// ValidateSubmission checks raw input against the form schema and returns the
// cleaned payload. Fields not declared on the form are dropped. A form without
// a schema accepts any string values as-is.
func (f *Form) ValidateSubmission(input map[string]string) (map[string]interface{}, error) {
	payload := make(map[string]interface{}, len(input))
	problems := map[string]string{}

	if len(f.Fields) == 0 {
		for k, v := range input {
			k = strings.TrimSpace(k)
			if k == "" || strings.HasPrefix(k, "_") {
				continue
			}
			if len(v) > maxFieldValueLength {
				problems[k] = "value too long"
				continue
			}
			payload[k] = v
		}
	}

	for _, field := range f.Fields {
		value := strings.TrimSpace(input[field.Name])
		if value == "" {
			if field.Required {
				problems[field.Name] = "required"
			}
			continue
		}
		if len(value) > maxFieldValueLength {
			problems[field.Name] = "value too long"
			continue
		}
		switch field.Type {
		case FieldTypeEmail:
			if _, err := mail.ParseAddress(value); err != nil {
				problems[field.Name] = "invalid email"
				continue
			}
		case FieldTypeSelect:
			if len(field.Options) > 0 && !containsString(field.Options, value) {
				problems[field.Name] = "invalid option"
				continue
			}
		}
		payload[field.Name] = value
	}

	if len(problems) > 0 {
		return nil, &SubmissionError{Fields: problems}
	}
	return payload, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
