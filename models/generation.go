package models

import (
	"time"

	"gorm.io/gorm"
)

// Generation statuses as reported by the rendering backend
const (
	GenerationStatusPending    = "pending"
	GenerationStatusProcessing = "processing"
	GenerationStatusCompleted  = "completed"
	GenerationStatusFailed     = "failed"
)

// Generation is one request to the AI rendering backend
type Generation struct {
	gorm.Model
	UserID uint  `gorm:"not null;index" json:"user_id"`
	TeamID *uint `gorm:"index" json:"team_id,omitempty"`

	// Resolved style at submission time
	ContextID *uint  `json:"context_id,omitempty"`
	PackageID string `gorm:"not null" json:"package_id"`
	Settings  []byte `gorm:"type:jsonb" json:"settings"`
	Prompt    string `gorm:"type:text" json:"prompt"`

	// personal or team; decides which credit pool was debited
	GenerationType string `gorm:"not null" json:"generation_type"`
	CreditsCharged int    `gorm:"not null" json:"credits_charged"`

	// Selected selfie storage keys, snapshotted at submission
	SelfieKeys []string `gorm:"serializer:json" json:"selfie_keys"`

	// Backend task tracking
	Status        string     `gorm:"default:'pending';index" json:"status"`
	BackendTaskID string     `gorm:"index" json:"backend_task_id"`
	ResultURLs    []string   `gorm:"serializer:json" json:"result_urls,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	SubmittedAt   *time.Time `json:"submitted_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`

	// Relations
	User    User     `json:"-"`
	Context *Context `json:"context,omitempty"`
}

// InFlight reports whether the backend may still change this generation.
func (g *Generation) InFlight() bool {
	return g.Status == GenerationStatusPending || g.Status == GenerationStatusProcessing
}
