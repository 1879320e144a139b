package foodref

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openkcal/openkcal/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotCached is returned when no fresh cached reference exists for a barcode.
var ErrNotCached = errors.New("foodref: not cached")

// CachedReference returns the cached reference for a barcode when it was
// fetched within maxAge of now.
func CachedReference(ctx context.Context, db *gorm.DB, barcode string, now time.Time, maxAge time.Duration) (*models.FoodReference, error) {
	if db == nil {
		return nil, fmt.Errorf("foodref: nil db")
	}
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, ErrNotCached
	}
	var ref models.FoodReference
	errFind := db.WithContext(ctx).
		Where("barcode = ?", barcode).
		Where("fetched_at > ?", now.UTC().Add(-maxAge)).
		Take(&ref).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotCached
		}
		return nil, fmt.Errorf("foodref: cache lookup: %w", errFind)
	}
	return &ref, nil
}

// SaveReference upserts a fetched reference keyed by barcode.
func SaveReference(ctx context.Context, db *gorm.DB, ref *models.FoodReference) error {
	if db == nil {
		return fmt.Errorf("foodref: nil db")
	}
	if ref == nil || strings.TrimSpace(ref.Barcode) == "" {
		return fmt.Errorf("foodref: missing barcode")
	}
	if errUpsert := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "barcode"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "brand", "calories_per100g", "protein_per100g",
			"carbs_per100g", "fat_per100g", "extra", "fetched_at", "updated_at",
		}),
	}).Create(ref).Error; errUpsert != nil {
		return fmt.Errorf("foodref: upsert: %w", errUpsert)
	}
	return nil
}
