package models

import "time"

// Role values assignable to a user account.
const (
	// RoleStandard is the default role for registered users.
	RoleStandard = "standard"
	// RoleAdmin grants access to the admin area.
	RoleAdmin = "admin"
)

// User represents an end-user account stored in the database.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:text;not null;uniqueIndex:idx_users_username_active,where:active"` // Login name, unique among active users.
	Email    string `gorm:"type:text"`                      // Optional email address.
	Password string `gorm:"type:text;not null"`             // Hashed password.

	DailyCalorieGoal int    `gorm:"not null;default:2000"`          // Daily calorie target (kcal).
	Role             string `gorm:"type:text;not null;default:standard"` // Account role.

	Active bool `gorm:"not null;default:true"` // Soft-delete flag; inactive users are excluded from lookups.

	Sessions []Session `gorm:"foreignKey:UserID"` // Related login sessions.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
