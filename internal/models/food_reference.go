package models

import (
	"time"

	"gorm.io/datatypes"
)

// FoodReference caches one product fetched from the external food database so
// repeated lookups avoid a remote round-trip.
type FoodReference struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Barcode string `gorm:"type:text;not null;uniqueIndex"` // External product barcode.
	Name    string `gorm:"type:text;not null"`             // Product name.
	Brand   string `gorm:"type:text"`                      // Brand, when reported.

	CaloriesPer100g float64 `gorm:"type:decimal(10,2);not null"`           // Energy (kcal per 100 g).
	ProteinPer100g  float64 `gorm:"type:decimal(10,2);not null;default:0"` // Protein (g per 100 g).
	CarbsPer100g    float64 `gorm:"type:decimal(10,2);not null;default:0"` // Carbohydrates (g per 100 g).
	FatPer100g      float64 `gorm:"type:decimal(10,2);not null;default:0"` // Fat (g per 100 g).

	Extra datatypes.JSON `gorm:"type:text"` // Remaining provider fields, verbatim JSON.

	FetchedAt time.Time `gorm:"not null"` // Time of the last successful fetch.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
