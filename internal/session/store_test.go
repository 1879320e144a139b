package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/openkcal/openkcal/internal/models"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.AutoMigrate(&models.User{}, &models.Session{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string, active bool) uint64 {
	t.Helper()
	user := models.User{
		Username:         username,
		Password:         "x",
		DailyCalorieGoal: 2200,
		Role:             models.RoleStandard,
		Active:           true,
	}
	if errCreate := db.Create(&user).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}
	// Flip via update: Create skips explicit false on a default:true column.
	if !active {
		if errUpdate := db.Model(&user).Update("active", false).Error; errUpdate != nil {
			t.Fatalf("deactivate user: %v", errUpdate)
		}
	}
	return user.ID
}

func TestStore_CreateAndGet(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db, "alice", true)
	store := NewStore(db)

	expires := time.Now().UTC().Add(24 * time.Hour)
	if errCreate := store.Create(context.Background(), "sess-1", userID, expires); errCreate != nil {
		t.Fatalf("create session: %v", errCreate)
	}

	resolved, err := store.Get(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if resolved.UserID != userID {
		t.Fatalf("expected user id %d, got %d", userID, resolved.UserID)
	}
	if resolved.Username != "alice" {
		t.Fatalf("expected joined username alice, got %q", resolved.Username)
	}
	if resolved.DailyCalorieGoal != 2200 {
		t.Fatalf("expected joined goal 2200, got %d", resolved.DailyCalorieGoal)
	}
}

func TestStore_ExpiryBoundary(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db, "alice", true)

	expires := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	store := NewStore(db)
	if errCreate := store.Create(context.Background(), "sess-1", userID, expires); errCreate != nil {
		t.Fatalf("create session: %v", errCreate)
	}

	// One second before expiry the session still resolves.
	store.WithClock(func() time.Time { return expires.Add(-time.Second) })
	if _, err := store.Get(context.Background(), "sess-1"); err != nil {
		t.Fatalf("expected session before expiry, got %v", err)
	}

	// Exactly at expiry the session is gone, even though the row is still
	// marked active.
	store.WithClock(func() time.Time { return expires })
	if _, err := store.Get(context.Background(), "sess-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound at expiry instant, got %v", err)
	}
}

func TestStore_InvalidateRevokes(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db, "alice", true)
	store := NewStore(db)

	expires := time.Now().UTC().Add(24 * time.Hour)
	if errCreate := store.Create(context.Background(), "sess-1", userID, expires); errCreate != nil {
		t.Fatalf("create session: %v", errCreate)
	}
	if errInvalidate := store.Invalidate(context.Background(), "sess-1"); errInvalidate != nil {
		t.Fatalf("invalidate: %v", errInvalidate)
	}
	if _, err := store.Get(context.Background(), "sess-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after invalidate, got %v", err)
	}

	// The row survives invalidation; only the flag flips.
	var row models.Session
	if errFind := db.First(&row, "id = ?", "sess-1").Error; errFind != nil {
		t.Fatalf("expected session row to remain: %v", errFind)
	}
	if row.Active {
		t.Fatalf("expected active=false after invalidate")
	}
}

func TestStore_InvalidateIdempotent(t *testing.T) {
	db := openTestDB(t)
	store := NewStore(db)

	if errInvalidate := store.Invalidate(context.Background(), "missing"); errInvalidate != nil {
		t.Fatalf("expected invalidate of unknown session to succeed, got %v", errInvalidate)
	}
	if errInvalidate := store.Invalidate(context.Background(), "missing"); errInvalidate != nil {
		t.Fatalf("expected repeated invalidate to succeed, got %v", errInvalidate)
	}
}

func TestStore_InactiveUserDoesNotResolve(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db, "ghost", false)
	store := NewStore(db)

	expires := time.Now().UTC().Add(24 * time.Hour)
	if errCreate := store.Create(context.Background(), "sess-1", userID, expires); errCreate != nil {
		t.Fatalf("create session: %v", errCreate)
	}
	if _, err := store.Get(context.Background(), "sess-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for inactive user, got %v", err)
	}
}
