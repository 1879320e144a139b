package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/openkcal/openkcal/internal/config"
	"github.com/openkcal/openkcal/internal/models"
	"github.com/openkcal/openkcal/internal/security"
	"github.com/openkcal/openkcal/internal/session"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Context keys set by the auth middleware.
const (
	CtxUserID           = "userID"
	CtxUsername         = "username"
	CtxSessionID        = "sessionID"
	CtxDailyCalorieGoal = "dailyCalorieGoal"
	CtxAdminUser        = "adminUser"
)

// unauthorizedMessage is the single body returned for every authentication
// failure. Missing header, bad signature, expired token, and revoked session
// are indistinguishable to the caller.
const unauthorizedMessage = "authentication required"

// errUnauthorized marks a credential failure. A store error is not a
// credential failure and surfaces as 500 instead of the uniform 401.
var errUnauthorized = errors.New("middleware: unauthorized")

// RequireAuth validates the bearer token, resolves its session against the
// database, and attaches the caller's identity to the request context. Any
// failure rejects with 401.
func RequireAuth(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	store := session.NewStore(db)
	return func(c *gin.Context) {
		resolved, errResolve := resolveIdentity(c, store, jwtCfg)
		if errResolve != nil {
			if !errors.Is(errResolve, errUnauthorized) {
				log.WithError(errResolve).Error("auth: session lookup failed")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": unauthorizedMessage})
			return
		}
		attachIdentity(c, resolved)
		c.Next()
	}
}

// OptionalAuth performs the same extraction and verification as RequireAuth
// but never rejects: on any failure the request continues with no identity
// attached.
func OptionalAuth(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	store := session.NewStore(db)
	return func(c *gin.Context) {
		resolved, errResolve := resolveIdentity(c, store, jwtCfg)
		switch {
		case errResolve == nil:
			attachIdentity(c, resolved)
		case !errors.Is(errResolve, errUnauthorized):
			log.WithError(errResolve).Warn("auth: session lookup failed")
		}
		c.Next()
	}
}

// RequireAdmin re-fetches the authenticated user and checks the admin role.
// It must run after RequireAuth. The role check reads the database rather
// than trusting token claims so a demotion takes effect on the next request.
func RequireAdmin(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": unauthorizedMessage})
			return
		}

		var user models.User
		if errFind := db.WithContext(c.Request.Context()).
			Where("active = ?", true).
			First(&user, userID).Error; errFind != nil {
			if !errors.Is(errFind, gorm.ErrRecordNotFound) {
				log.WithError(errFind).Error("auth: role lookup failed")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": unauthorizedMessage})
			return
		}
		if !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin privileges required"})
			return
		}

		c.Set(CtxAdminUser, &user)
		c.Next()
	}
}

// resolveIdentity extracts the bearer token, verifies it, and resolves the
// embedded session id to a live session. Every credential failure collapses
// to errUnauthorized; only a store failure comes back distinguishable.
func resolveIdentity(c *gin.Context, store *session.Store, jwtCfg config.JWTConfig) (*session.Resolved, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, errUnauthorized
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		return nil, errUnauthorized
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errUnauthorized
	}

	claims, errJWT := security.ParseSessionToken(jwtCfg.Secret, token)
	if errJWT != nil {
		return nil, errUnauthorized
	}

	resolved, errGet := store.Get(c.Request.Context(), claims.SessionID)
	if errGet != nil {
		if errors.Is(errGet, session.ErrNotFound) {
			return nil, errUnauthorized
		}
		return nil, errGet
	}
	return resolved, nil
}

func attachIdentity(c *gin.Context, resolved *session.Resolved) {
	c.Set(CtxUserID, resolved.UserID)
	c.Set(CtxUsername, resolved.Username)
	c.Set(CtxSessionID, resolved.SessionID)
	c.Set(CtxDailyCalorieGoal, resolved.DailyCalorieGoal)
}

// UserID returns the authenticated user's id from the request context.
func UserID(c *gin.Context) (uint64, bool) {
	value, exists := c.Get(CtxUserID)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint64)
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}

// Username returns the authenticated user's username from the request context.
func Username(c *gin.Context) (string, bool) {
	value, exists := c.Get(CtxUsername)
	if !exists {
		return "", false
	}
	name, ok := value.(string)
	return name, ok && name != ""
}

// SessionID returns the authenticated session id from the request context.
func SessionID(c *gin.Context) (string, bool) {
	value, exists := c.Get(CtxSessionID)
	if !exists {
		return "", false
	}
	id, ok := value.(string)
	return id, ok && id != ""
}

// DailyCalorieGoal returns the caller's goal from the request context.
func DailyCalorieGoal(c *gin.Context) (int, bool) {
	value, exists := c.Get(CtxDailyCalorieGoal)
	if !exists {
		return 0, false
	}
	goal, ok := value.(int)
	return goal, ok
}

// AdminUser returns the privileged actor attached by RequireAdmin.
func AdminUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(CtxAdminUser)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok && user != nil
}
