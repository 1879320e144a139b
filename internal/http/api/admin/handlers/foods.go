package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	dbutil "github.com/openkcal/openkcal/internal/db"
	"github.com/openkcal/openkcal/internal/foodref"
	"github.com/openkcal/openkcal/internal/models"
	"gorm.io/gorm"
)

// FoodHandler manages the food catalog.
type FoodHandler struct {
	db     *gorm.DB
	lookup *foodref.Client
}

// NewFoodHandler constructs a FoodHandler.
func NewFoodHandler(db *gorm.DB, lookup *foodref.Client) *FoodHandler {
	return &FoodHandler{db: db, lookup: lookup}
}

// foodRequest defines the request body for catalog writes.
type foodRequest struct {
	Name            string  `json:"name"`
	Brand           string  `json:"brand"`
	Barcode         string  `json:"barcode"`
	CaloriesPer100g float64 `json:"calories_per_100g"`
	ProteinPer100g  float64 `json:"protein_per_100g"`
	CarbsPer100g    float64 `json:"carbs_per_100g"`
	FatPer100g      float64 `json:"fat_per_100g"`
	Verified        bool    `json:"verified"`
}

// Create adds a food to the catalog.
func (h *FoodHandler) Create(c *gin.Context) {
	var body foodRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing name"})
		return
	}
	if body.CaloriesPer100g < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "calories must not be negative"})
		return
	}

	food := models.Food{
		Name:            name,
		Brand:           strings.TrimSpace(body.Brand),
		Barcode:         strings.TrimSpace(body.Barcode),
		CaloriesPer100g: body.CaloriesPer100g,
		ProteinPer100g:  body.ProteinPer100g,
		CarbsPer100g:    body.CarbsPer100g,
		FatPer100g:      body.FatPer100g,
		Verified:        body.Verified,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&food).Error; errCreate != nil {
		if errors.Is(errCreate, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "barcode already in catalog"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create food failed"})
		return
	}
	c.JSON(http.StatusCreated, adminFoodResponse(&food))
}

// List returns catalog foods with optional filters.
func (h *FoodHandler) List(c *gin.Context) {
	searchQ := strings.TrimSpace(c.Query("q"))
	verifiedQ := strings.TrimSpace(c.Query("verified"))

	q := h.db.WithContext(c.Request.Context()).Model(&models.Food{})
	if searchQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+searchQ+"%")
		q = q.Where(
			dbutil.CaseInsensitiveLikeExpr(h.db, "name")+" OR "+
				dbutil.CaseInsensitiveLikeExpr(h.db, "brand"),
			pattern,
			pattern,
		)
	}
	if verifiedQ != "" {
		if verified, errParse := strconv.ParseBool(verifiedQ); errParse == nil {
			q = q.Where("verified = ?", verified)
		}
	}

	var foods []models.Food
	if errFind := q.Order("name ASC").Find(&foods).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list foods failed"})
		return
	}
	out := make([]gin.H, 0, len(foods))
	for i := range foods {
		out = append(out, adminFoodResponse(&foods[i]))
	}
	c.JSON(http.StatusOK, gin.H{"foods": out})
}

// updateFoodRequest defines the request body for catalog updates.
type updateFoodRequest struct {
	Name            *string  `json:"name"`
	Brand           *string  `json:"brand"`
	Barcode         *string  `json:"barcode"`
	CaloriesPer100g *float64 `json:"calories_per_100g"`
	ProteinPer100g  *float64 `json:"protein_per_100g"`
	CarbsPer100g    *float64 `json:"carbs_per_100g"`
	FatPer100g      *float64 `json:"fat_per_100g"`
}

// Update modifies a catalog food. Frozen diary calories are not rewritten.
func (h *FoodHandler) Update(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body updateFoodRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if body.Name != nil {
		name := strings.TrimSpace(*body.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing name"})
			return
		}
		updates["name"] = name
	}
	if body.Brand != nil {
		updates["brand"] = strings.TrimSpace(*body.Brand)
	}
	if body.Barcode != nil {
		updates["barcode"] = strings.TrimSpace(*body.Barcode)
	}
	if body.CaloriesPer100g != nil {
		if *body.CaloriesPer100g < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "calories must not be negative"})
			return
		}
		updates["calories_per100g"] = *body.CaloriesPer100g
	}
	if body.ProteinPer100g != nil {
		updates["protein_per100g"] = *body.ProteinPer100g
	}
	if body.CarbsPer100g != nil {
		updates["carbs_per100g"] = *body.CarbsPer100g
	}
	if body.FatPer100g != nil {
		updates["fat_per100g"] = *body.FatPer100g
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Food{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Delete removes a catalog food. Foods referenced by diary entries are kept.
func (h *FoodHandler) Delete(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	ctx := c.Request.Context()

	var referenced int64
	if errCount := h.db.WithContext(ctx).Model(&models.LogEntry{}).
		Where("food_id = ?", id).
		Count(&referenced).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if referenced > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "food is referenced by diary entries"})
		return
	}

	res := h.db.WithContext(ctx).Delete(&models.Food{}, id)
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

// SetVerified flips the verified flag on a catalog food.
func (h *FoodHandler) SetVerified(verified bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		res := h.db.WithContext(c.Request.Context()).Model(&models.Food{}).
			Where("id = ?", id).
			Updates(map[string]any{"verified": verified, "updated_at": time.Now().UTC()})
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// importFoodRequest defines the request body for catalog imports.
type importFoodRequest struct {
	Barcode string `json:"barcode"`
}

// Import pulls a product from the external food database into the catalog.
// Admin imports are marked verified.
func (h *FoodHandler) Import(c *gin.Context) {
	if h.lookup == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "food database lookup disabled"})
		return
	}
	var body importFoodRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	barcode := strings.TrimSpace(body.Barcode)
	if barcode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing barcode"})
		return
	}

	ctx := c.Request.Context()

	var existing int64
	if errCount := h.db.WithContext(ctx).Model(&models.Food{}).
		Where("barcode = ?", barcode).
		Count(&existing).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "barcode already in catalog"})
		return
	}

	ref, errLookup := h.lookup.LookupBarcode(ctx, barcode)
	if errLookup != nil {
		if errors.Is(errLookup, foodref.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "food database unavailable"})
		return
	}

	food := models.Food{
		Name:            ref.Name,
		Brand:           ref.Brand,
		Barcode:         ref.Barcode,
		CaloriesPer100g: ref.CaloriesPer100g,
		ProteinPer100g:  ref.ProteinPer100g,
		CarbsPer100g:    ref.CarbsPer100g,
		FatPer100g:      ref.FatPer100g,
		Verified:        true,
	}
	if errCreate := h.db.WithContext(ctx).Create(&food).Error; errCreate != nil {
		if errors.Is(errCreate, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "barcode already in catalog"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "import food failed"})
		return
	}
	c.JSON(http.StatusCreated, adminFoodResponse(&food))
}

func adminFoodResponse(food *models.Food) gin.H {
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
		"created_at":        food.CreatedAt,
		"updated_at":        food.UpdatedAt,
	}
}
