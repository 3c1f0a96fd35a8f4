package models

import "gorm.io/gorm"

// Context is a named, persisted style preset. A context is owned by a
// user (personal), a team, or neither (the system free-package preset).
type Context struct {
	gorm.Model
	Name string `gorm:"not null" json:"name"`

	// Owning scope; both nil for the system free-package context
	UserID *uint `gorm:"index" json:"user_id,omitempty"`
	TeamID *uint `gorm:"index" json:"team_id,omitempty"`

	// PackageID selects the code-defined package that interprets Settings
	PackageID string `gorm:"default:''" json:"package_id"`

	// Settings is the raw, package-specific settings blob
	Settings []byte `gorm:"type:jsonb" json:"settings"`

	CustomPrompt string `gorm:"type:text" json:"custom_prompt"`
}

// IsPersonal reports whether the context belongs to an individual user.
func (c *Context) IsPersonal() bool {
	return c.UserID != nil && c.TeamID == nil
}

// IsTeam reports whether the context belongs to a team workspace.
func (c *Context) IsTeam() bool {
	return c.TeamID != nil
}
