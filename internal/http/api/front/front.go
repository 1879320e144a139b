package front

import (
	"github.com/gin-gonic/gin"
	"github.com/openkcal/openkcal/internal/config"
	"github.com/openkcal/openkcal/internal/foodref"
	handlers "github.com/openkcal/openkcal/internal/http/api/front/handlers"
	"github.com/openkcal/openkcal/internal/http/api/middleware"
	"github.com/openkcal/openkcal/internal/ratelimit"
	"gorm.io/gorm"
)

// RegisterFrontRoutes registers user-facing routes, middleware, and handlers.
func RegisterFrontRoutes(r *gin.Engine, db *gorm.DB, jwtCfg config.JWTConfig, limiter *ratelimit.Manager, lookup *foodref.Client) {
	if r == nil || db == nil {
		return
	}

	api := r.Group("/v0")

	authHandler := handlers.NewAuthHandler(db, jwtCfg, limiter)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	// Catalog browsing is open; authenticated callers also see unverified
	// community foods.
	foodHandler := handlers.NewFoodHandler(db)
	browse := api.Group("")
	browse.Use(middleware.OptionalAuth(db, jwtCfg))
	browse.GET("/foods", foodHandler.List)
	browse.GET("/foods/:id", foodHandler.Get)

	authed := api.Group("")
	authed.Use(middleware.RequireAuth(db, jwtCfg))

	authed.POST("/auth/logout", authHandler.Logout)
	authed.GET("/auth/me", authHandler.Me)

	profileHandler := handlers.NewProfileHandler(db)
	authed.GET("/profile", profileHandler.Get)
	authed.PUT("/profile", profileHandler.Update)
	authed.PUT("/profile/password", profileHandler.ChangePassword)

	logHandler := handlers.NewLogHandler(db)
	authed.POST("/logs", logHandler.Create)
	authed.GET("/logs", logHandler.List)
	authed.PUT("/logs/:id", logHandler.Update)
	authed.DELETE("/logs/:id", logHandler.Delete)

	summaryHandler := handlers.NewSummaryHandler(db)
	authed.GET("/summary", summaryHandler.Daily)

	if lookup != nil {
		lookupHandler := handlers.NewLookupHandler(lookup)
		authed.GET("/lookup", lookupHandler.Search)
		authed.GET("/lookup/barcode/:barcode", lookupHandler.Barcode)
	}
}
