package models

import "time"

// Meal values assignable to a log entry.
const (
	MealBreakfast = "breakfast"
	MealLunch     = "lunch"
	MealDinner    = "dinner"
	MealSnack     = "snack"
)

// LogEntry records one eaten food for a user on a given day. Calories are
// computed from grams and the food's energy at write time so later catalog
// edits do not rewrite history.
type LogEntry struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index:idx_log_entries_user_day"` // Owning user.
	FoodID uint64 `gorm:"not null;index"`                          // Logged food.
	Food   *Food  `gorm:"foreignKey:FoodID"`                       // Logged food record.

	Grams    float64 `gorm:"type:decimal(10,2);not null"` // Consumed amount in grams.
	Calories float64 `gorm:"type:decimal(10,2);not null"` // Energy at write time (kcal).
	Meal     string  `gorm:"type:text;not null"`          // breakfast, lunch, dinner or snack.

	ConsumedOn string `gorm:"type:text;not null;index:idx_log_entries_user_day"` // Day in YYYY-MM-DD form.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
