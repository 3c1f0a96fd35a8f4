package models

import "gorm.io/gorm"

// Selfie is a previously uploaded, user-owned image reference. The object
// itself lives in external storage; we keep only the key.
type Selfie struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	StorageKey string `gorm:"not null" json:"storage_key"`
	Filename   string `json:"filename"`
	SizeBytes  int64  `json:"size_bytes"`

	// Selected marks membership in the user's current multi-select subset
	Selected bool `gorm:"default:false" json:"selected"`

	// Relations
	User User `json:"-"`
}
