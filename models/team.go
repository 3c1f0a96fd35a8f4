package models

import (
	"time"

	"gorm.io/gorm"
)

// Team represents a shared workspace with a pooled credit balance
type Team struct {
	gorm.Model
	Name string `gorm:"not null" json:"name"`

	// Shared credit pool, debited by team-scoped generations
	Credits         int `gorm:"default:0" json:"credits"`
	CreditsConsumed int `gorm:"default:0" json:"credits_consumed"`

	// Active team style preset
	ActiveContextID *uint `json:"active_context_id,omitempty"`

	// Relations
	Members       []TeamMember `gorm:"foreignKey:TeamID" json:"members,omitempty"`
	Contexts      []Context    `gorm:"foreignKey:TeamID" json:"contexts,omitempty"`
	ActiveContext *Context     `gorm:"foreignKey:ActiveContextID" json:"active_context,omitempty"`
}

// TeamMember represents team members and their roles
type TeamMember struct {
	gorm.Model
	TeamID uint `gorm:"not null;index" json:"team_id"`
	UserID uint `gorm:"not null;index" json:"user_id"`

	Role string `gorm:"default:'team_member'" json:"role"` // team_admin, team_member

	// Relations
	Team Team `json:"-"`
	User User `json:"-"`
}

// TeamInvite is a pending email invitation to join a team
type TeamInvite struct {
	gorm.Model
	TeamID    uint      `gorm:"not null;index" json:"team_id"`
	InviterID uint      `gorm:"not null" json:"inviter_id"`
	Email     string    `gorm:"not null;index" json:"email"`
	Token     string    `gorm:"uniqueIndex;not null" json:"-"`
	Role      string    `gorm:"default:'team_member'" json:"role"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`

	AcceptedAt *time.Time `json:"accepted_at,omitempty"`

	// Relations
	Team Team `json:"-"`
}
