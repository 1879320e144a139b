package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openkcal/openkcal/internal/http/api/middleware"
	"github.com/openkcal/openkcal/internal/models"
	"gorm.io/gorm"
)

// SummaryHandler serves per-day calorie totals against the caller's goal.
type SummaryHandler struct {
	db *gorm.DB
}

// NewSummaryHandler constructs a SummaryHandler.
func NewSummaryHandler(db *gorm.DB) *SummaryHandler {
	return &SummaryHandler{db: db}
}

// Daily returns the caller's calorie totals for one day, broken down by meal.
func (h *SummaryHandler) Daily(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	day, errDay := resolveDay(c.Query("date"))
	if errDay != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
		return
	}

	var rows []struct {
		Meal     string
		Calories float64
		Entries  int64
	}
	if errFind := h.db.WithContext(c.Request.Context()).
		Model(&models.LogEntry{}).
		Select("meal, SUM(calories) AS calories, COUNT(*) AS entries").
		Where("user_id = ?", userID).
		Where("consumed_on = ?", day).
		Group("meal").
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "summary failed"})
		return
	}

	meals := gin.H{
		models.MealBreakfast: float64(0),
		models.MealLunch:     float64(0),
		models.MealDinner:    float64(0),
		models.MealSnack:     float64(0),
	}
	var total float64
	var entryCount int64
	for _, row := range rows {
		meals[row.Meal] = row.Calories
		total += row.Calories
		entryCount += row.Entries
	}

	goal, _ := middleware.DailyCalorieGoal(c)
	c.JSON(http.StatusOK, gin.H{
		"date":      day,
		"meals":     meals,
		"total":     total,
		"goal":      goal,
		"remaining": float64(goal) - total,
		"entries":   entryCount,
	})
}
