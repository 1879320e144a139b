package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	defaultTablePageSize = 50
	maxTablePageSize     = 200
)

// browsableTables maps each table the browser may read to the columns it
// exposes. Sensitive columns (password hashes, raw settings) stay out.
var browsableTables = map[string][]string{
	"users":           {"id", "username", "email", "daily_calorie_goal", "role", "active", "created_at", "updated_at"},
	"sessions":        {"id", "user_id", "expires_at", "active", "created_at"},
	"foods":           {"id", "name", "brand", "barcode", "calories_per100g", "protein_per100g", "carbs_per100g", "fat_per100g", "verified", "created_at"},
	"log_entries":     {"id", "user_id", "food_id", "grams", "calories", "meal", "consumed_on", "created_at"},
	"food_references": {"id", "barcode", "name", "brand", "calories_per100g", "fetched_at"},
}

// TableHandler serves a read-only browser over an allow-list of tables. It
// never executes caller-supplied SQL.
type TableHandler struct {
	db *gorm.DB
}

// NewTableHandler constructs a TableHandler.
func NewTableHandler(db *gorm.DB) *TableHandler {
	return &TableHandler{db: db}
}

// List returns the browsable tables and their row counts.
func (h *TableHandler) List(c *gin.Context) {
	out := make([]gin.H, 0, len(browsableTables))
	for name := range browsableTables {
		var count int64
		if errCount := h.db.WithContext(c.Request.Context()).
			Table(name).Count(&count).Error; errCount != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
			return
		}
		out = append(out, gin.H{"name": name, "rows": count})
	}
	c.JSON(http.StatusOK, gin.H{"tables": out})
}

// Rows returns a page of rows from one browsable table.
func (h *TableHandler) Rows(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	columns, ok := browsableTables[name]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown table"})
		return
	}

	limit := defaultTablePageSize
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if parsed, errParse := strconv.Atoi(raw); errParse == nil && parsed > 0 {
			limit = parsed
			if limit > maxTablePageSize {
				limit = maxTablePageSize
			}
		}
	}
	offset := 0
	if raw := strings.TrimSpace(c.Query("offset")); raw != "" {
		if parsed, errParse := strconv.Atoi(raw); errParse == nil && parsed > 0 {
			offset = parsed
		}
	}

	var rows []map[string]any
	if errFind := h.db.WithContext(c.Request.Context()).
		Table(name).
		Select(strings.Join(columns, ", ")).
		Order(fmt.Sprintf("%s ASC", columns[0])).
		Limit(limit).Offset(offset).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"table":   name,
		"columns": columns,
		"rows":    rows,
		"limit":   limit,
		"offset":  offset,
	})
}
