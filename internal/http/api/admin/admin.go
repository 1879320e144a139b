package admin

import (
	"github.com/gin-gonic/gin"
	"github.com/openkcal/openkcal/internal/config"
	"github.com/openkcal/openkcal/internal/foodref"
	handlers "github.com/openkcal/openkcal/internal/http/api/admin/handlers"
	"github.com/openkcal/openkcal/internal/http/api/middleware"
	"gorm.io/gorm"
)

// RegisterAdminRoutes registers admin routes, middleware, and handlers.
// Everything under /v0/admin runs behind the mandatory gate plus the role
// gate; the role is re-read from the database on every request.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, jwtCfg config.JWTConfig, lookup *foodref.Client) {
	if r == nil || db == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(db)
	r.GET("/healthz", healthHandler.Healthz)

	versionHandler := handlers.NewVersionHandler()
	r.GET("/v0/version", versionHandler.GetVersion)

	authed := r.Group("/v0/admin")
	authed.Use(middleware.RequireAuth(db, jwtCfg))
	authed.Use(middleware.RequireAdmin(db))

	userHandler := handlers.NewUserHandler(db)
	authed.POST("/users", userHandler.Create)
	authed.GET("/users", userHandler.List)
	authed.GET("/users/:id", userHandler.Get)
	authed.PUT("/users/:id", userHandler.Update)
	authed.POST("/users/:id/disable", userHandler.Disable)
	authed.POST("/users/:id/enable", userHandler.Enable)
	authed.PUT("/users/:id/password", userHandler.ResetPassword)

	foodHandler := handlers.NewFoodHandler(db, lookup)
	authed.POST("/foods", foodHandler.Create)
	authed.GET("/foods", foodHandler.List)
	authed.PUT("/foods/:id", foodHandler.Update)
	authed.DELETE("/foods/:id", foodHandler.Delete)
	authed.POST("/foods/:id/verify", foodHandler.SetVerified(true))
	authed.POST("/foods/:id/unverify", foodHandler.SetVerified(false))
	authed.POST("/foods/import", foodHandler.Import)

	settingHandler := handlers.NewSettingHandler(db)
	authed.POST("/settings", settingHandler.Create)
	authed.GET("/settings", settingHandler.List)
	authed.GET("/settings/:key", settingHandler.Get)
	authed.PUT("/settings/:key", settingHandler.Update)
	authed.DELETE("/settings/:key", settingHandler.Delete)

	tableHandler := handlers.NewTableHandler(db)
	authed.GET("/tables", tableHandler.List)
	authed.GET("/tables/:name", tableHandler.Rows)
}
