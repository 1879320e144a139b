package foodref

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/openkcal/openkcal/internal/models"
	"gorm.io/gorm"
)

func TestSaveReference_UpsertAndCacheAge(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.AutoMigrate(&models.FoodReference{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	now := time.Now().UTC()
	ref := &models.FoodReference{
		Barcode:         "737628064502",
		Name:            "Rice Noodles",
		CaloriesPer100g: 385,
		FetchedAt:       now,
	}
	if errSave := SaveReference(context.Background(), db, ref); errSave != nil {
		t.Fatalf("save: %v", errSave)
	}

	// Saving again with new values updates the existing row.
	update := &models.FoodReference{
		Barcode:         "737628064502",
		Name:            "Rice Noodles (updated)",
		CaloriesPer100g: 380,
		FetchedAt:       now.Add(time.Minute),
	}
	if errSave := SaveReference(context.Background(), db, update); errSave != nil {
		t.Fatalf("save update: %v", errSave)
	}

	var count int64
	if errCount := db.Model(&models.FoodReference{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("expected 1 row after upsert, got %d", count)
	}

	cached, errCache := CachedReference(context.Background(), db, "737628064502", now.Add(2*time.Minute), time.Hour)
	if errCache != nil {
		t.Fatalf("cached reference: %v", errCache)
	}
	if cached.Name != "Rice Noodles (updated)" {
		t.Fatalf("expected updated name, got %q", cached.Name)
	}

	// A stale cache entry is reported as absent.
	if _, errStale := CachedReference(context.Background(), db, "737628064502", now.Add(48*time.Hour), time.Hour); !errors.Is(errStale, ErrNotCached) {
		t.Fatalf("expected ErrNotCached for stale entry, got %v", errStale)
	}
}
