package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openkcal/openkcal/internal/config"
	"github.com/openkcal/openkcal/internal/http/api/middleware"
	"github.com/openkcal/openkcal/internal/models"
	"github.com/openkcal/openkcal/internal/ratelimit"
	"github.com/openkcal/openkcal/internal/security"
	"github.com/openkcal/openkcal/internal/session"
	"github.com/openkcal/openkcal/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// invalidCredentialsMessage is the single body for every failed login.
// A wrong password and an unknown username are indistinguishable.
const invalidCredentialsMessage = "invalid username or password"

// dummyPasswordHash is compared against when the username does not resolve,
// so both failure paths cost one bcrypt verification.
const dummyPasswordHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// AuthHandler serves registration, login, and session endpoints.
type AuthHandler struct {
	db      *gorm.DB
	jwtCfg  config.JWTConfig
	store   *session.Store
	limiter *ratelimit.Manager
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig, limiter *ratelimit.Manager) *AuthHandler {
	return &AuthHandler{
		db:      db,
		jwtCfg:  jwtCfg,
		store:   session.NewStore(db),
		limiter: limiter,
	}
}

// registerRequest defines the request body for account registration.
type registerRequest struct {
	Username         string `json:"username"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	DailyCalorieGoal *int   `json:"daily_calorie_goal"`
}

// Register creates a new standard-role account.
func (h *AuthHandler) Register(c *gin.Context) {
	var body registerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing username"})
		return
	}
	password := strings.TrimSpace(body.Password)
	if password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing password"})
		return
	}

	goal := settings.DefaultGoal()
	if body.DailyCalorieGoal != nil {
		goal = *body.DailyCalorieGoal
		if goal < settings.MinDailyCalorieGoal || goal > settings.MaxDailyCalorieGoal {
			c.JSON(http.StatusBadRequest, gin.H{"error": "daily calorie goal out of range"})
			return
		}
	}

	ctx := c.Request.Context()

	var existing int64
	if errCount := h.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ?", username).
		Where("active = ?", true).
		Count(&existing).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
		return
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}

	user := models.User{
		Username:         username,
		Email:            strings.TrimSpace(body.Email),
		Password:         hash,
		DailyCalorieGoal: goal,
		Role:             models.RoleStandard,
		Active:           true,
	}
	if errCreate := h.db.WithContext(ctx).Create(&user).Error; errCreate != nil {
		// The partial unique index catches a registration race.
		if errors.Is(errCreate, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
			return
		}
		log.WithError(errCreate).Error("register: create user failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create user failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":                 user.ID,
		"username":           user.Username,
		"email":              user.Email,
		"daily_calorie_goal": user.DailyCalorieGoal,
		"role":               user.Role,
	})
}

// loginRequest defines the request body for login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login verifies credentials and issues a bearer token referencing a new
// session.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	password := body.Password
	if username == "" || password == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": invalidCredentialsMessage})
		return
	}

	ctx := c.Request.Context()

	limit := ratelimit.LoadSettingsConfig().Limit
	for _, key := range ratelimit.LoginKeys(c.ClientIP(), username) {
		result, errAllow := h.limiter.Allow(ctx, key, limit)
		if errAllow != nil {
			log.WithError(errAllow).Warn("login: rate limit check failed")
			continue
		}
		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many login attempts"})
			return
		}
	}

	var user models.User
	errFind := h.db.WithContext(ctx).
		Where("username = ?", username).
		Where("active = ?", true).
		First(&user).Error
	if errFind != nil {
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		// Burn a hash comparison so unknown usernames cost the same.
		security.CheckPassword(dummyPasswordHash, password)
		c.JSON(http.StatusUnauthorized, gin.H{"error": invalidCredentialsMessage})
		return
	}

	if !security.CheckPassword(user.Password, password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": invalidCredentialsMessage})
		return
	}

	sessionID := security.NewSessionID()
	expiresAt := time.Now().UTC().Add(h.jwtCfg.Expiry)
	if errCreate := h.store.Create(ctx, sessionID, user.ID, expiresAt); errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create session failed"})
		return
	}

	token, errToken := security.IssueSessionToken(h.jwtCfg.Secret, h.jwtCfg.Expiry, sessionID, user.ID, user.Username)
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"user": gin.H{
			"id":                 user.ID,
			"username":           user.Username,
			"email":              user.Email,
			"daily_calorie_goal": user.DailyCalorieGoal,
			"role":               user.Role,
		},
	})
}

// Logout invalidates the caller's session. Every token referencing it stops
// working immediately, on all instances.
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID, ok := middleware.SessionID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	if errInvalidate := h.store.Invalidate(c.Request.Context(), sessionID); errInvalidate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Me returns the authenticated caller's account.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("active = ?", true).
		First(&user, userID).Error; errFind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":                 user.ID,
		"username":           user.Username,
		"email":              user.Email,
		"daily_calorie_goal": user.DailyCalorieGoal,
		"role":               user.Role,
		"created_at":         user.CreatedAt,
	})
}
