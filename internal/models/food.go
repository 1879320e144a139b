package models

import "time"

// Food is a catalog entry describing the nutrition of one food per 100 g.
type Food struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name    string `gorm:"type:text;not null;index"` // Display name.
	Brand   string `gorm:"type:text"`                // Brand or producer.
	Barcode string `gorm:"type:text;uniqueIndex:idx_foods_barcode,where:barcode <> ''"` // EAN/UPC barcode, optional.

	CaloriesPer100g float64 `gorm:"type:decimal(10,2);not null"`          // Energy (kcal per 100 g).
	ProteinPer100g  float64 `gorm:"type:decimal(10,2);not null;default:0"` // Protein (g per 100 g).
	CarbsPer100g    float64 `gorm:"type:decimal(10,2);not null;default:0"` // Carbohydrates (g per 100 g).
	FatPer100g      float64 `gorm:"type:decimal(10,2);not null;default:0"` // Fat (g per 100 g).

	Verified bool `gorm:"not null;default:false"` // Reviewed by an admin.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
