package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a user account in the system
type User struct {
	gorm.Model

	// Authentication fields
	Email         string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash  string `gorm:"not null" json:"-"`
	EmailVerified bool   `gorm:"default:false" json:"email_verified"`

	// Google OAuth fields
	GoogleID       *string `gorm:"uniqueIndex" json:"google_id,omitempty"`
	GoogleImageURL *string `json:"google_image_url,omitempty"`

	// Profile information
	Name      *string `json:"name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Timezone  string  `gorm:"default:'UTC'" json:"timezone"`

	// Account status
	IsActive     bool `gorm:"default:true" json:"is_active"`
	IsAdmin      bool `gorm:"default:false" json:"is_admin"`
	TokenVersion int  `gorm:"default:0" json:"-"`

	// Team membership (nil for individual accounts)
	TeamID *uint `gorm:"index" json:"team_id,omitempty"`

	// Credit pool for personal generations
	Credits         int `gorm:"default:0" json:"credits"`
	CreditsConsumed int `gorm:"default:0" json:"credits_consumed"`

	// Active personal style preset
	ActiveContextID *uint `json:"active_context_id,omitempty"`

	// Stripe integration
	StripeCustomerID *string `gorm:"index" json:"stripe_customer_id,omitempty"`
	DefaultCurrency  string  `gorm:"default:'usd'" json:"default_currency"`

	// Relations
	Selfies      []Selfie            `gorm:"foreignKey:UserID" json:"selfies,omitempty"`
	Contexts     []Context           `gorm:"foreignKey:UserID" json:"contexts,omitempty"`
	Generations  []Generation        `gorm:"foreignKey:UserID" json:"generations,omitempty"`
	Transactions []CreditTransaction `gorm:"foreignKey:UserID" json:"transactions,omitempty"`
}

// RefreshToken stores issued refresh tokens so they can be revoked
type RefreshToken struct {
	gorm.Model
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Token     string    `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Revoked   bool      `gorm:"default:false" json:"revoked"`

	User User `json:"-"`
}

// AppSetting is a simple key/value table for admin-tunable settings,
// e.g. free_package_style_id pointing at the system free-package context.
type AppSetting struct {
	gorm.Model
	Key   string `gorm:"uniqueIndex;not null" json:"key"`
	Value string `gorm:"type:text" json:"value"`
}

const SettingFreePackageStyleID = "free_package_style_id"
