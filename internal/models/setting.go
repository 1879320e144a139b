package models

import (
	"time"

	"gorm.io/datatypes"
)

// Setting stores one JSON configuration value keyed by name.
type Setting struct {
	Key   string         `gorm:"type:text;primaryKey"` // Configuration key.
	Value datatypes.JSON `gorm:"type:text"`            // JSON-encoded value. Text column: SQLite would coerce scalar JSON in a jsonb-typed column to a number.

	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
