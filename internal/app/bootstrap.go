package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/openkcal/openkcal/internal/models"
	"github.com/openkcal/openkcal/internal/security"
	"github.com/openkcal/openkcal/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Environment variables for first-boot admin seeding.
const (
	EnvAdminUsername = "ADMIN_USERNAME"
	EnvAdminPassword = "ADMIN_PASSWORD"
)

// HasAdminUser reports whether an active admin account exists.
func HasAdminUser(ctx context.Context, conn *gorm.DB) (bool, error) {
	if conn == nil {
		return false, fmt.Errorf("nil connection")
	}
	var count int64
	if errCount := conn.WithContext(ctx).Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Where("active = ?", true).
		Count(&count).Error; errCount != nil {
		return false, fmt.Errorf("count admins: %w", errCount)
	}
	return count > 0, nil
}

// EnsureAdminUser seeds the first admin account from environment variables
// when none exists. Without an admin the admin area is unreachable, so a
// fresh deployment warns until credentials are provided.
func EnsureAdminUser(ctx context.Context, conn *gorm.DB) error {
	exists, errCheck := HasAdminUser(ctx, conn)
	if errCheck != nil {
		return errCheck
	}
	if exists {
		return nil
	}

	username := strings.TrimSpace(os.Getenv(EnvAdminUsername))
	password := strings.TrimSpace(os.Getenv(EnvAdminPassword))
	if username == "" || password == "" {
		log.Warnf("no admin account exists; set %s and %s to seed one", EnvAdminUsername, EnvAdminPassword)
		return nil
	}

	return CreateAdminUserWithConn(ctx, conn, username, password)
}

// CreateAdminUserWithConn creates an admin account on an open connection.
func CreateAdminUserWithConn(ctx context.Context, conn *gorm.DB, username, password string) error {
	if conn == nil {
		return fmt.Errorf("nil connection")
	}

	hashedPassword, errHash := security.HashPassword(password)
	if errHash != nil {
		return fmt.Errorf("hash password: %w", errHash)
	}

	admin := models.User{
		Username:         username,
		Password:         hashedPassword,
		DailyCalorieGoal: settings.DefaultGoal(),
		Role:             models.RoleAdmin,
		Active:           true,
	}
	if errCreate := conn.WithContext(ctx).Create(&admin).Error; errCreate != nil {
		return fmt.Errorf("create admin: %w", errCreate)
	}
	log.WithField("username", username).Info("seeded admin account")
	return nil
}
