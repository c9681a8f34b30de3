package models

import "time"

// Role is a reusable permission template. A role's permission list is copied
// into a user at creation time; it is never a live authority source for
// existing users.
type Role struct {
	// ID is the unique identifier for the role (UUID string).
	ID string `gorm:"primaryKey;size:36"`
	// Name is the unique human-readable name (e.g. "Content Editor").
	Name string `gorm:"uniqueIndex;size:100;not null"`
	// Slug is the unique lowercase identifier derived from the name
	// (e.g. "content-editor"). Immutable once the role is protected.
	Slug string `gorm:"uniqueIndex;size:100;not null"`
	// Description explains the role's purpose.
	Description string `gorm:"size:255"`
	// Permissions is the template's permission list; may include "*".
	Permissions StringList `gorm:"type:text"`
	// IsSystem marks roles created at bootstrap.
	IsSystem bool `gorm:"default:false"`
	// IsProtected forbids deletion and renaming of this role.
	IsProtected bool `gorm:"default:false"`
	// CreatedAt is managed by GORM.
	CreatedAt time.Time
	// UpdatedAt is managed by GORM.
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Role model.
func (Role) TableName() string {
	return "roles"
}
