package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/openkcal/openkcal/internal/foodref"
	"github.com/openkcal/openkcal/internal/models"
)

// LookupHandler serves external food database lookups.
type LookupHandler struct {
	client *foodref.Client
}

// NewLookupHandler constructs a LookupHandler.
func NewLookupHandler(client *foodref.Client) *LookupHandler {
	return &LookupHandler{client: client}
}

// Barcode resolves one product by barcode.
func (h *LookupHandler) Barcode(c *gin.Context) {
	barcode := strings.TrimSpace(c.Param("barcode"))
	if barcode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing barcode"})
		return
	}
	ref, errLookup := h.client.LookupBarcode(c.Request.Context(), barcode)
	if errLookup != nil {
		if errors.Is(errLookup, foodref.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "food database unavailable"})
		return
	}
	c.JSON(http.StatusOK, referenceResponse(ref))
}

// Search queries the external food database by free text.
func (h *LookupHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query"})
		return
	}
	refs, errSearch := h.client.Search(c.Request.Context(), query)
	if errSearch != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "food database unavailable"})
		return
	}
	out := make([]gin.H, 0, len(refs))
	for i := range refs {
		out = append(out, referenceResponse(&refs[i]))
	}
	c.JSON(http.StatusOK, gin.H{"products": out})
}

func referenceResponse(ref *models.FoodReference) gin.H {
	return gin.H{
		"barcode":           ref.Barcode,
		"name":              ref.Name,
		"brand":             ref.Brand,
		"calories_per_100g": ref.CaloriesPer100g,
		"protein_per_100g":  ref.ProteinPer100g,
		"carbs_per_100g":    ref.CarbsPer100g,
		"fat_per_100g":      ref.FatPer100g,
		"fetched_at":        ref.FetchedAt,
	}
}
