package app

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/openkcal/openkcal/internal/models"
	"github.com/openkcal/openkcal/internal/security"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.AutoMigrate(&models.User{}, &models.Setting{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return db
}

func TestEnsureAdminUser_SeedsFromEnv(t *testing.T) {
	db := openTestDB(t)
	t.Setenv(EnvAdminUsername, "root")
	t.Setenv(EnvAdminPassword, "toor-secret")

	if errEnsure := EnsureAdminUser(context.Background(), db); errEnsure != nil {
		t.Fatalf("ensure admin: %v", errEnsure)
	}

	var admin models.User
	if errFind := db.Where("role = ?", models.RoleAdmin).First(&admin).Error; errFind != nil {
		t.Fatalf("find admin: %v", errFind)
	}
	if admin.Username != "root" {
		t.Fatalf("unexpected username %q", admin.Username)
	}
	if admin.Password == "toor-secret" {
		t.Fatalf("password stored in plaintext")
	}
	if !security.CheckPassword(admin.Password, "toor-secret") {
		t.Fatalf("stored hash does not verify")
	}

	// A second run must not create a duplicate.
	if errEnsure := EnsureAdminUser(context.Background(), db); errEnsure != nil {
		t.Fatalf("ensure admin again: %v", errEnsure)
	}
	var count int64
	if errCount := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; errCount != nil {
		t.Fatalf("count admins: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("expected 1 admin, got %d", count)
	}
}

func TestEnsureAdminUser_NoEnvNoAdmin(t *testing.T) {
	db := openTestDB(t)
	t.Setenv(EnvAdminUsername, "")
	t.Setenv(EnvAdminPassword, "")

	if errEnsure := EnsureAdminUser(context.Background(), db); errEnsure != nil {
		t.Fatalf("ensure admin: %v", errEnsure)
	}
	var count int64
	if errCount := db.Model(&models.User{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count users: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("expected no users seeded, got %d", count)
	}
}
