package models

import "time"

// Session records a successful login. A session is valid for authorization
// only while Active is true and the current time is before ExpiresAt; logout
// clears Active and never deletes the row.
type Session struct {
	ID string `gorm:"type:text;primaryKey"` // Opaque random identifier.

	UserID uint64 `gorm:"not null;index"`      // Owning user.
	User   *User  `gorm:"foreignKey:UserID"`   // Owning user record.

	ExpiresAt time.Time `gorm:"not null;index"` // Absolute expiry; not sliding.
	Active    bool      `gorm:"not null;default:true"` // Cleared on logout.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
