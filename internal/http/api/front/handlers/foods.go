package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	dbutil "github.com/openkcal/openkcal/internal/db"
	"github.com/openkcal/openkcal/internal/http/api/middleware"
	"github.com/openkcal/openkcal/internal/models"
	"gorm.io/gorm"
)

const (
	defaultFoodPageSize = 25
	maxFoodPageSize     = 100
)

// FoodHandler serves the food catalog. Routes run behind the optional gate:
// anonymous callers see only verified foods, authenticated ones also see
// community entries.
type FoodHandler struct {
	db *gorm.DB
}

// NewFoodHandler constructs a FoodHandler.
func NewFoodHandler(db *gorm.DB) *FoodHandler {
	return &FoodHandler{db: db}
}

// List returns catalog foods with optional name/brand search.
func (h *FoodHandler) List(c *gin.Context) {
	searchQ := strings.TrimSpace(c.Query("q"))
	limit := parsePageSize(c.Query("limit"))
	offset := parseOffset(c.Query("offset"))

	q := h.db.WithContext(c.Request.Context()).Model(&models.Food{})
	if _, authed := middleware.UserID(c); !authed {
		q = q.Where("verified = ?", true)
	}
	if searchQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+searchQ+"%")
		q = q.Where(
			dbutil.CaseInsensitiveLikeExpr(h.db, "name")+" OR "+
				dbutil.CaseInsensitiveLikeExpr(h.db, "brand")+" OR barcode = ?",
			pattern,
			pattern,
			searchQ,
		)
	}

	var foods []models.Food
	if errFind := q.Order("verified DESC, name ASC").
		Limit(limit).Offset(offset).
		Find(&foods).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list foods failed"})
		return
	}

	out := make([]gin.H, 0, len(foods))
	for _, food := range foods {
		out = append(out, foodResponse(&food))
	}
	c.JSON(http.StatusOK, gin.H{"foods": out})
}

// Get returns one catalog food by id.
func (h *FoodHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	q := h.db.WithContext(c.Request.Context())
	if _, authed := middleware.UserID(c); !authed {
		q = q.Where("verified = ?", true)
	}

	var food models.Food
	if errFind := q.First(&food, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, foodResponse(&food))
}

func foodResponse(food *models.Food) gin.H {
	return gin.H{
		"id":                food.ID,
		"name":              food.Name,
		"brand":             food.Brand,
		"barcode":           food.Barcode,
		"calories_per_100g": food.CaloriesPer100g,
		"protein_per_100g":  food.ProteinPer100g,
		"carbs_per_100g":    food.CarbsPer100g,
		"fat_per_100g":      food.FatPer100g,
		"verified":          food.Verified,
	}
}

func parsePageSize(raw string) int {
	limit, errParse := strconv.Atoi(strings.TrimSpace(raw))
	if errParse != nil || limit <= 0 {
		return defaultFoodPageSize
	}
	if limit > maxFoodPageSize {
		return maxFoodPageSize
	}
	return limit
}

func parseOffset(raw string) int {
	offset, errParse := strconv.Atoi(strings.TrimSpace(raw))
	if errParse != nil || offset < 0 {
		return 0
	}
	return offset
}
