package settings

import (
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/openkcal/openkcal/internal/models"
	"gorm.io/gorm"
)

// snapshot holds the last loaded settings table contents. Readers see a
// consistent map; writers swap the whole map atomically.
var snapshot atomic.Value // map[string]json.RawMessage

func init() {
	snapshot.Store(map[string]json.RawMessage{})
}

// Refresh reloads the settings table into the in-process snapshot. It is
// called at startup and after admin settings writes; authorization decisions
// never depend on it, so staleness only delays config changes.
func Refresh(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("settings: nil connection")
	}
	var rows []models.Setting
	if errFind := conn.Find(&rows).Error; errFind != nil {
		return fmt.Errorf("settings: load: %w", errFind)
	}
	next := make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		if row.Key == "" || len(row.Value) == 0 {
			continue
		}
		next[row.Key] = json.RawMessage(row.Value)
	}
	snapshot.Store(next)
	return nil
}

// DBConfigValue returns the raw JSON value for a settings key from the
// current snapshot.
func DBConfigValue(key string) (json.RawMessage, bool) {
	current, _ := snapshot.Load().(map[string]json.RawMessage)
	raw, ok := current[key]
	return raw, ok
}

// DefaultGoal returns the configured default daily calorie goal, falling back
// to the compiled default when unset or out of policy bounds.
func DefaultGoal() int {
	raw, ok := DBConfigValue(DefaultDailyCalorieGoalKey)
	if !ok {
		return DefaultDailyCalorieGoal
	}
	var goal int
	if errUnmarshal := json.Unmarshal(raw, &goal); errUnmarshal != nil {
		return DefaultDailyCalorieGoal
	}
	if goal < MinDailyCalorieGoal || goal > MaxDailyCalorieGoal {
		return DefaultDailyCalorieGoal
	}
	return goal
}
