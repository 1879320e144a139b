package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openkcal/openkcal/internal/http/api/middleware"
	"github.com/openkcal/openkcal/internal/models"
	"gorm.io/gorm"
)

const dayLayout = "2006-01-02"

// LogHandler serves the caller's food diary. Every query is scoped to the
// authenticated user; one user can never read or edit another's entries.
type LogHandler struct {
	db *gorm.DB
}

// NewLogHandler constructs a LogHandler.
func NewLogHandler(db *gorm.DB) *LogHandler {
	return &LogHandler{db: db}
}

// createLogRequest defines the request body for diary entry creation.
type createLogRequest struct {
	FoodID     uint64  `json:"food_id"`
	Grams      float64 `json:"grams"`
	Meal       string  `json:"meal"`
	ConsumedOn string  `json:"consumed_on"`
}

// Create adds a diary entry. Calories are computed from the food's current
// energy and frozen into the row.
func (h *LogHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var body createLogRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Grams <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "grams must be positive"})
		return
	}
	meal := strings.ToLower(strings.TrimSpace(body.Meal))
	if !validMeal(meal) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meal"})
		return
	}
	day, errDay := resolveDay(body.ConsumedOn)
	if errDay != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid consumed_on date"})
		return
	}

	ctx := c.Request.Context()

	var food models.Food
	if errFind := h.db.WithContext(ctx).First(&food, body.FoodID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown food"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	entry := models.LogEntry{
		UserID:     userID,
		FoodID:     food.ID,
		Grams:      body.Grams,
		Calories:   computeCalories(body.Grams, food.CaloriesPer100g),
		Meal:       meal,
		ConsumedOn: day,
	}
	if errCreate := h.db.WithContext(ctx).Create(&entry).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create entry failed"})
		return
	}

	entry.Food = &food
	c.JSON(http.StatusCreated, logResponse(&entry))
}

// List returns the caller's entries for one day.
func (h *LogHandler) List(c *gin.Context) {
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

	var entries []models.LogEntry
	if errFind := h.db.WithContext(c.Request.Context()).
		Preload("Food").
		Where("user_id = ?", userID).
		Where("consumed_on = ?", day).
		Order("created_at ASC").
		Find(&entries).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list entries failed"})
		return
	}

	out := make([]gin.H, 0, len(entries))
	for i := range entries {
		out = append(out, logResponse(&entries[i]))
	}
	c.JSON(http.StatusOK, gin.H{"date": day, "entries": out})
}

// updateLogRequest defines the request body for diary entry updates.
type updateLogRequest struct {
	Grams      *float64 `json:"grams"`
	Meal       *string  `json:"meal"`
	ConsumedOn *string  `json:"consumed_on"`
}

// Update modifies one of the caller's entries. Changing grams recomputes the
// frozen calories from the food's current energy.
func (h *LogHandler) Update(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body updateLogRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	ctx := c.Request.Context()

	var entry models.LogEntry
	if errFind := h.db.WithContext(ctx).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		First(&entry).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if body.Meal != nil {
		meal := strings.ToLower(strings.TrimSpace(*body.Meal))
		if !validMeal(meal) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meal"})
			return
		}
		updates["meal"] = meal
	}
	if body.ConsumedOn != nil {
		day, errDay := resolveDay(*body.ConsumedOn)
		if errDay != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid consumed_on date"})
			return
		}
		updates["consumed_on"] = day
	}
	if body.Grams != nil {
		if *body.Grams <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "grams must be positive"})
			return
		}
		var food models.Food
		if errFind := h.db.WithContext(ctx).First(&food, entry.FoodID).Error; errFind != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		updates["grams"] = *body.Grams
		updates["calories"] = computeCalories(*body.Grams, food.CaloriesPer100g)
	}

	if errUpdate := h.db.WithContext(ctx).Model(&models.LogEntry{}).
		Where("id = ?", entry.ID).
		Where("user_id = ?", userID).
		Updates(updates).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Delete removes one of the caller's entries.
func (h *LogHandler) Delete(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Delete(&models.LogEntry{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func logResponse(entry *models.LogEntry) gin.H {
	out := gin.H{
		"id":          entry.ID,
		"food_id":     entry.FoodID,
		"grams":       entry.Grams,
		"calories":    entry.Calories,
		"meal":        entry.Meal,
		"consumed_on": entry.ConsumedOn,
		"created_at":  entry.CreatedAt,
	}
	if entry.Food != nil {
		out["food"] = foodResponse(entry.Food)
	}
	return out
}

func validMeal(meal string) bool {
	switch meal {
	case models.MealBreakfast, models.MealLunch, models.MealDinner, models.MealSnack:
		return true
	}
	return false
}

// resolveDay normalizes a diary day, defaulting to today (UTC).
func resolveDay(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now().UTC().Format(dayLayout), nil
	}
	parsed, errParse := time.Parse(dayLayout, raw)
	if errParse != nil {
		return "", errParse
	}
	return parsed.Format(dayLayout), nil
}

// computeCalories derives entry energy from amount and per-100g energy,
// rounded to two decimals.
func computeCalories(grams, caloriesPer100g float64) float64 {
	return math.Round(grams*caloriesPer100g) / 100
}
