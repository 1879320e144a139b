package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/openkcal/openkcal/internal/models"
	internalsettings "github.com/openkcal/openkcal/internal/settings"
	"gorm.io/gorm"
)

// migratedModels lists every persisted model in dependency order.
func migratedModels() []any {
	return []any{
		&models.User{},
		&models.Session{},
		&models.Food{},
		&models.LogEntry{},
		&models.FoodReference{},
		&models.Setting{},
	}
}

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite:
		return migrateSQLite(conn)
	case DialectPostgres, "":
		return migratePostgres(conn)
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}
}

// migratePostgres applies PostgreSQL-specific schema updates and indexes.
func migratePostgres(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(migratedModels()...); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	if errSeed := ensureDefaultSettings(conn); errSeed != nil {
		return errSeed
	}

	_ = conn.Exec(`CREATE EXTENSION IF NOT EXISTS pg_trgm`).Error

	// ddl defines an index or DDL statement to apply.
	type ddl struct {
		name string // Human-readable name for error reporting.
		sql  string // SQL to execute.
	}
	ddls := []ddl{
		{
			name: "idx_sessions_user_id_active",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_sessions_user_id_active
				ON sessions (user_id)
				WHERE active = true
			`,
		},
		{
			name: "idx_sessions_expires_at_active",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_sessions_expires_at_active
				ON sessions (expires_at)
				WHERE active = true
			`,
		},
		{
			name: "idx_users_active_true",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_users_active_true
				ON users (id)
				WHERE active = true
			`,
		},
		{
			name: "idx_log_entries_user_day_meal",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_log_entries_user_day_meal
				ON log_entries (user_id, consumed_on, meal)
			`,
		},
		{
			name: "idx_foods_verified_name",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_foods_verified_name
				ON foods (verified, name)
			`,
		},
		{
			name: "idx_settings_updated_at_key",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_settings_updated_at_key
				ON settings (updated_at DESC, key DESC)
			`,
		},
	}
	for _, item := range ddls {
		if errDDL := conn.Exec(item.sql).Error; errDDL != nil {
			return fmt.Errorf("db: create index %s: %w", item.name, errDDL)
		}
	}

	// trgmIndex defines trigram and fallback index statements.
	type trgmIndex struct {
		name     string // Logical index name.
		trgmSQL  string // Trigram index SQL.
		lowerSQL string // Lowercase fallback index SQL.
	}
	trgmIndexes := []trgmIndex{
		{
			name: "idx_users_username",
			trgmSQL: `
				CREATE INDEX IF NOT EXISTS idx_users_username_trgm
				ON users USING gin (username gin_trgm_ops)
			`,
			lowerSQL: `
				CREATE INDEX IF NOT EXISTS idx_users_username_lower
				ON users (LOWER(username))
			`,
		},
		{
			name: "idx_foods_name",
			trgmSQL: `
				CREATE INDEX IF NOT EXISTS idx_foods_name_trgm
				ON foods USING gin (name gin_trgm_ops)
			`,
			lowerSQL: `
				CREATE INDEX IF NOT EXISTS idx_foods_name_lower
				ON foods (LOWER(name))
			`,
		},
		{
			name: "idx_foods_brand",
			trgmSQL: `
				CREATE INDEX IF NOT EXISTS idx_foods_brand_trgm
				ON foods USING gin (brand gin_trgm_ops)
			`,
			lowerSQL: `
				CREATE INDEX IF NOT EXISTS idx_foods_brand_lower
				ON foods (LOWER(brand))
			`,
		},
	}
	for _, item := range trgmIndexes {
		if errIdx := conn.Exec(item.trgmSQL).Error; errIdx != nil {
			if errLower := conn.Exec(item.lowerSQL).Error; errLower != nil {
				return fmt.Errorf("db: create index %s: %w", item.name, errLower)
			}
		}
	}

	return nil
}

// migrateSQLite applies SQLite-specific schema updates and indexes.
func migrateSQLite(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(migratedModels()...); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	if errSeed := ensureDefaultSettings(conn); errSeed != nil {
		return errSeed
	}

	// ddl defines an index or DDL statement to apply.
	type ddl struct {
		name string // Human-readable name for error reporting.
		sql  string // SQL to execute.
	}
	ddls := []ddl{
		{
			name: "idx_sessions_user_id_active",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_sessions_user_id_active
				ON sessions (user_id)
				WHERE active = true
			`,
		},
		{
			name: "idx_sessions_expires_at_active",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_sessions_expires_at_active
				ON sessions (expires_at)
				WHERE active = true
			`,
		},
		{
			name: "idx_log_entries_user_day_meal",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_log_entries_user_day_meal
				ON log_entries (user_id, consumed_on, meal)
			`,
		},
		{
			name: "idx_foods_verified_name",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_foods_verified_name
				ON foods (verified, name)
			`,
		},
		{
			name: "idx_settings_updated_at_key",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_settings_updated_at_key
				ON settings (updated_at DESC, key DESC)
			`,
		},
	}
	for _, item := range ddls {
		if errDDL := conn.Exec(item.sql).Error; errDDL != nil {
			return fmt.Errorf("db: create index %s: %w", item.name, errDDL)
		}
	}

	return nil
}

// ensureDefaultSettings seeds configuration rows that the runtime expects.
func ensureDefaultSettings(conn *gorm.DB) error {
	if errEnsure := ensureStringSetting(conn, internalsettings.SiteNameKey, internalsettings.DefaultSiteName); errEnsure != nil {
		return errEnsure
	}
	if errEnsure := ensureIntSetting(conn, internalsettings.DefaultDailyCalorieGoalKey, internalsettings.DefaultDailyCalorieGoal); errEnsure != nil {
		return errEnsure
	}
	if errEnsure := ensureIntSetting(conn, internalsettings.LoginRateLimitKey, internalsettings.DefaultLoginRateLimit); errEnsure != nil {
		return errEnsure
	}
	return nil
}

// ensureIntSetting ensures an integer setting exists and defaults when empty.
func ensureIntSetting(conn *gorm.DB, key string, value int) error {
	payload, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return fmt.Errorf("db: marshal %s setting: %w", key, errMarshal)
	}
	return ensureRawSetting(conn, key, payload)
}

// ensureStringSetting ensures a string setting exists and defaults when empty.
func ensureStringSetting(conn *gorm.DB, key, value string) error {
	payload, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return fmt.Errorf("db: marshal %s setting: %w", key, errMarshal)
	}
	return ensureRawSetting(conn, key, payload)
}

func ensureRawSetting(conn *gorm.DB, key string, payload []byte) error {
	var existing models.Setting
	if errFind := conn.Where("key = ?", key).First(&existing).Error; errFind == nil {
		if len(existing.Value) == 0 || string(existing.Value) == "null" {
			if errUpdate := conn.Model(&existing).Updates(map[string]any{
				"value":      payload,
				"updated_at": time.Now().UTC(),
			}).Error; errUpdate != nil {
				return fmt.Errorf("db: update %s setting: %w", key, errUpdate)
			}
		}
		return nil
	} else if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return fmt.Errorf("db: query %s setting: %w", key, errFind)
	}

	setting := models.Setting{
		Key:       key,
		Value:     payload,
		UpdatedAt: time.Now().UTC(),
	}
	if errCreate := conn.Create(&setting).Error; errCreate != nil {
		return fmt.Errorf("db: create %s setting: %w", key, errCreate)
	}
	return nil
}
