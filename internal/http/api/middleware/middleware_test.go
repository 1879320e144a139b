package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/openkcal/openkcal/internal/config"
	"github.com/openkcal/openkcal/internal/models"
	"github.com/openkcal/openkcal/internal/security"
	"github.com/openkcal/openkcal/internal/session"
	"gorm.io/gorm"
)

const testSecret = "middleware-test-secret"

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.AutoMigrate(&models.User{}, &models.Session{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username, role string) *models.User {
	t.Helper()
	user := models.User{
		Username:         username,
		Password:         "x",
		DailyCalorieGoal: 2000,
		Role:             role,
		Active:           true,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return &user
}

// loginUser creates a session row and a matching signed token.
func loginUser(t *testing.T, db *gorm.DB, user *models.User) (sessionID, token string) {
	t.Helper()
	sessionID = security.NewSessionID()
	store := session.NewStore(db)
	if err := store.Create(context.Background(), sessionID, user.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("create session: %v", err)
	}
	token, err := security.IssueSessionToken(testSecret, time.Hour, sessionID, user.ID, user.Username)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return sessionID, token
}

func jwtCfg() config.JWTConfig {
	return config.JWTConfig{Secret: testSecret, Expiry: time.Hour}
}

func protectedRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", RequireAuth(db, jwtCfg()), func(c *gin.Context) {
		username, _ := Username(c)
		c.JSON(http.StatusOK, gin.H{"username": username})
	})
	return r
}

func doGet(r *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth_RejectionsAreUniform(t *testing.T) {
	db := openTestDB(t)
	user := seedUser(t, db, "alice", models.RoleStandard)

	sessionID, goodToken := loginUser(t, db, user)

	badSignature, err := security.IssueSessionToken("wrong-secret", time.Hour, sessionID, user.ID, user.Username)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	expired, err := security.IssueSessionToken(testSecret, -time.Minute, sessionID, user.ID, user.Username)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	// Token for a session that was revoked after issuance.
	revokedSessionID, revokedToken := loginUser(t, db, user)
	if errInvalidate := session.NewStore(db).Invalidate(context.Background(), revokedSessionID); errInvalidate != nil {
		t.Fatalf("invalidate: %v", errInvalidate)
	}

	r := protectedRouter(db)

	// Sanity: the surviving session still authorizes.
	if w := doGet(r, "/protected", "Bearer "+goodToken); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for live session, got %d: %s", w.Code, w.Body.String())
	}

	cases := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"malformed header", "Token " + goodToken},
		{"bad signature", "Bearer " + badSignature},
		{"expired token", "Bearer " + expired},
		{"revoked session", "Bearer " + revokedToken},
	}

	var firstBody string
	for _, tc := range cases {
		w := doGet(r, "/protected", tc.header)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", tc.name, w.Code)
		}
		if firstBody == "" {
			firstBody = w.Body.String()
			continue
		}
		if w.Body.String() != firstBody {
			t.Fatalf("%s: rejection body %q differs from %q", tc.name, w.Body.String(), firstBody)
		}
	}
}

func TestRequireAuth_AttachesIdentity(t *testing.T) {
	db := openTestDB(t)
	user := seedUser(t, db, "alice", models.RoleStandard)
	sessionID, token := loginUser(t, db, user)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/whoami", RequireAuth(db, jwtCfg()), func(c *gin.Context) {
		userID, okID := UserID(c)
		username, okName := Username(c)
		gotSession, okSession := SessionID(c)
		goal, okGoal := DailyCalorieGoal(c)
		if !okID || !okName || !okSession || !okGoal {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "identity incomplete"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"user_id": userID, "username": username, "session_id": gotSession, "goal": goal,
		})
	})

	w := doGet(r, "/whoami", "Bearer "+token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	for _, want := range []string{`"username":"alice"`, `"goal":2000`, `"session_id":"` + sessionID + `"`} {
		if !strings.Contains(w.Body.String(), want) {
			t.Fatalf("response %s missing %s", w.Body.String(), want)
		}
	}
}

func TestOptionalAuth_NeverRejects(t *testing.T) {
	db := openTestDB(t)
	user := seedUser(t, db, "alice", models.RoleStandard)
	sessionID, token := loginUser(t, db, user)
	if err := session.NewStore(db).Invalidate(context.Background(), sessionID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	expired, err := security.IssueSessionToken(testSecret, -time.Minute, sessionID, user.ID, user.Username)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/feed", OptionalAuth(db, jwtCfg()), func(c *gin.Context) {
		if username, ok := Username(c); ok {
			c.JSON(http.StatusOK, gin.H{"viewer": username})
			return
		}
		c.JSON(http.StatusOK, gin.H{"viewer": nil})
	})

	for _, header := range []string{"", "Token abc", "Bearer garbage", "Bearer " + expired, "Bearer " + token} {
		w := doGet(r, "/feed", header)
		if w.Code != http.StatusOK {
			t.Fatalf("header %q: expected anonymous 200, got %d", header, w.Code)
		}
		if !strings.Contains(w.Body.String(), `"viewer":null`) {
			t.Fatalf("header %q: expected anonymous viewer, got %s", header, w.Body.String())
		}
	}
}

func TestOptionalAuth_AttachesIdentityWhenValid(t *testing.T) {
	db := openTestDB(t)
	user := seedUser(t, db, "alice", models.RoleStandard)
	_, token := loginUser(t, db, user)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/feed", OptionalAuth(db, jwtCfg()), func(c *gin.Context) {
		username, _ := Username(c)
		c.JSON(http.StatusOK, gin.H{"viewer": username})
	})

	w := doGet(r, "/feed", "Bearer "+token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"viewer":"alice"`) {
		t.Fatalf("expected authenticated viewer, got %s", w.Body.String())
	}
}

func TestRequireAdmin_RoleGate(t *testing.T) {
	db := openTestDB(t)
	standard := seedUser(t, db, "alice", models.RoleStandard)
	admin := seedUser(t, db, "root", models.RoleAdmin)
	_, standardToken := loginUser(t, db, standard)
	_, adminToken := loginUser(t, db, admin)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin/ping", RequireAuth(db, jwtCfg()), RequireAdmin(db), func(c *gin.Context) {
		actor, ok := AdminUser(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "actor missing"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"actor": actor.Username})
	})

	if w := doGet(r, "/admin/ping", "Bearer "+standardToken); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for standard role, got %d: %s", w.Code, w.Body.String())
	}

	w := doGet(r, "/admin/ping", "Bearer "+adminToken)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin role, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"actor":"root"`) {
		t.Fatalf("expected privileged actor attached, got %s", w.Body.String())
	}
}

func TestRequireAuth_StoreFailureIsNotUnauthorized(t *testing.T) {
	db := openTestDB(t)
	user := seedUser(t, db, "alice", models.RoleStandard)
	_, token := loginUser(t, db, user)

	r := protectedRouter(db)
	if w := doGet(r, "/protected", "Bearer "+token); w.Code != http.StatusOK {
		t.Fatalf("expected 200 before failure, got %d", w.Code)
	}

	// Break the session table. A valid token must now see a server error,
	// not the uniform credential rejection.
	if err := db.Exec("DROP TABLE sessions").Error; err != nil {
		t.Fatalf("drop table: %v", err)
	}
	w := doGet(r, "/protected", "Bearer "+token)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on store failure, got %d: %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), unauthorizedMessage) {
		t.Fatalf("store failure reported as credential rejection: %s", w.Body.String())
	}
}

func TestRequireAdmin_DemotedRoleTakesEffect(t *testing.T) {
	db := openTestDB(t)
	admin := seedUser(t, db, "root", models.RoleAdmin)
	_, token := loginUser(t, db, admin)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin/ping", RequireAuth(db, jwtCfg()), RequireAdmin(db), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	if w := doGet(r, "/admin/ping", "Bearer "+token); w.Code != http.StatusOK {
		t.Fatalf("expected 200 before demotion, got %d", w.Code)
	}

	// Demote without touching the session. The next request must see it.
	if err := db.Model(&models.User{}).Where("id = ?", admin.ID).
		Update("role", models.RoleStandard).Error; err != nil {
		t.Fatalf("demote: %v", err)
	}
	if w := doGet(r, "/admin/ping", "Bearer "+token); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 after demotion, got %d", w.Code)
	}
}

