package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Submission is one accepted post to a public form. CreatedAt is stored with
// millisecond precision in UTC so it can serve as a cursor key.
type Submission struct {
	ID        string            `gorm:"primaryKey;type:char(36)" json:"id"`
	FormID    string            `gorm:"type:char(36);not null;index:idx_submissions_form_created,priority:1" json:"form_id"`
	Payload   datatypes.JSONMap `json:"payload"`
	IPHash    string            `gorm:"type:char(64);default:''" json:"-"`
	CreatedAt time.Time         `gorm:"not null;index:idx_submissions_form_created,priority:2" json:"created_at"`
}

func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	s.CreatedAt = s.CreatedAt.UTC().Truncate(time.Millisecond)
	return nil
}

// PayloadString returns the payload value of key as string, empty if absent.
func (s *Submission) PayloadString(key string) string {
	if s.Payload == nil {
		return ""
	}
	if v, ok := s.Payload[key].(string); ok {
		return v
	}
	return ""
}
