package admin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/openkcal/openkcal/internal/config"
	"github.com/openkcal/openkcal/internal/models"
	"github.com/openkcal/openkcal/internal/security"
	"github.com/openkcal/openkcal/internal/session"
	"github.com/openkcal/openkcal/internal/settings"
	"gorm.io/gorm"
)

const testSecret = "admin-test-secret"

func newTestServer(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.AutoMigrate(
		&models.User{}, &models.Session{}, &models.Food{},
		&models.LogEntry{}, &models.FoodReference{}, &models.Setting{},
	); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterAdminRoutes(r, db, config.JWTConfig{Secret: testSecret, Expiry: time.Hour}, nil)
	return r, db
}

func seedUserWithToken(t *testing.T, db *gorm.DB, username, role string) string {
	t.Helper()
	user := models.User{
		Username:         username,
		Password:         "x",
		DailyCalorieGoal: 2000,
		Role:             role,
		Active:           true,
	}
	if errCreate := db.Create(&user).Error; errCreate != nil {
		t.Fatalf("seed user: %v", errCreate)
	}
	sessionID := security.NewSessionID()
	if errSession := session.NewStore(db).Create(context.Background(), sessionID, user.ID, time.Now().Add(time.Hour)); errSession != nil {
		t.Fatalf("create session: %v", errSession)
	}
	token, errToken := security.IssueSessionToken(testSecret, time.Hour, sessionID, user.ID, user.Username)
	if errToken != nil {
		t.Fatalf("issue token: %v", errToken)
	}
	return token
}

func doJSON(r *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAdminAreaRoleGate(t *testing.T) {
	r, db := newTestServer(t)
	standardToken := seedUserWithToken(t, db, "alice", models.RoleStandard)
	adminToken := seedUserWithToken(t, db, "root", models.RoleAdmin)

	if w := doJSON(r, http.MethodGet, "/v0/admin/users", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401, got %d", w.Code)
	}
	if w := doJSON(r, http.MethodGet, "/v0/admin/users", standardToken, ""); w.Code != http.StatusForbidden {
		t.Fatalf("standard role: expected 403, got %d", w.Code)
	}
	w := doJSON(r, http.MethodGet, "/v0/admin/users", adminToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("admin role: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"username":"alice"`) {
		t.Fatalf("expected user listing, got %s", w.Body.String())
	}
}

func TestAdminDisableUserKillsSessions(t *testing.T) {
	r, db := newTestServer(t)
	adminToken := seedUserWithToken(t, db, "root", models.RoleAdmin)
	seedUserWithToken(t, db, "alice", models.RoleStandard)

	var alice models.User
	if errFind := db.Where("username = ?", "alice").First(&alice).Error; errFind != nil {
		t.Fatalf("find alice: %v", errFind)
	}

	w := doJSON(r, http.MethodPost, "/v0/admin/users/"+itoa(alice.ID)+"/disable", adminToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("disable: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var liveSessions int64
	if errCount := db.Model(&models.Session{}).
		Where("user_id = ?", alice.ID).
		Where("active = ?", true).
		Count(&liveSessions).Error; errCount != nil {
		t.Fatalf("count sessions: %v", errCount)
	}
	if liveSessions != 0 {
		t.Fatalf("expected all sessions revoked, %d still live", liveSessions)
	}

	var reloaded models.User
	if errFind := db.First(&reloaded, alice.ID).Error; errFind != nil {
		t.Fatalf("expected row kept after disable: %v", errFind)
	}
	if reloaded.Active {
		t.Fatalf("expected account inactive")
	}
}

func TestAdminSettingsUpdateRefreshesSnapshot(t *testing.T) {
	r, db := newTestServer(t)
	adminToken := seedUserWithToken(t, db, "root", models.RoleAdmin)
	t.Cleanup(func() {
		db.Where("key = ?", settings.DefaultDailyCalorieGoalKey).Delete(&models.Setting{})
		_ = settings.Refresh(db)
	})

	w := doJSON(r, http.MethodPost, "/v0/admin/settings", adminToken,
		`{"key":"DEFAULT_DAILY_CALORIE_GOAL","value":2500}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create setting: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if got := settings.DefaultGoal(); got != 2500 {
		t.Fatalf("expected snapshot to serve 2500, got %d", got)
	}

	// Out-of-policy values are rejected before they reach the snapshot.
	w = doJSON(r, http.MethodPut, "/v0/admin/settings/DEFAULT_DAILY_CALORIE_GOAL", adminToken,
		`{"value":999}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("out-of-range goal: expected 400, got %d", w.Code)
	}
	if got := settings.DefaultGoal(); got != 2500 {
		t.Fatalf("snapshot changed on rejected update, got %d", got)
	}
}

func TestAdminFoodVerifyFlow(t *testing.T) {
	r, db := newTestServer(t)
	adminToken := seedUserWithToken(t, db, "root", models.RoleAdmin)

	w := doJSON(r, http.MethodPost, "/v0/admin/foods", adminToken,
		`{"name":"Homemade Granola","calories_per_100g":450}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create food: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var food models.Food
	if errFind := db.Where("name = ?", "Homemade Granola").First(&food).Error; errFind != nil {
		t.Fatalf("find food: %v", errFind)
	}
	if food.Verified {
		t.Fatalf("expected new food unverified")
	}

	if w = doJSON(r, http.MethodPost, "/v0/admin/foods/"+itoa(food.ID)+"/verify", adminToken, ""); w.Code != http.StatusOK {
		t.Fatalf("verify: expected 200, got %d", w.Code)
	}
	if errFind := db.First(&food, food.ID).Error; errFind != nil {
		t.Fatalf("reload food: %v", errFind)
	}
	if !food.Verified {
		t.Fatalf("expected food verified")
	}
}

func TestAdminFoodCreateDistinguishesConflict(t *testing.T) {
	r, db := newTestServer(t)
	adminToken := seedUserWithToken(t, db, "root", models.RoleAdmin)

	w := doJSON(r, http.MethodPost, "/v0/admin/foods", adminToken,
		`{"name":"Oats","barcode":"4006040","calories_per_100g":389}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create food: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	// A second food with the same barcode trips the unique index.
	w = doJSON(r, http.MethodPost, "/v0/admin/foods", adminToken,
		`{"name":"Oats Copy","barcode":"4006040","calories_per_100g":389}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate barcode: expected 409, got %d: %s", w.Code, w.Body.String())
	}

	// A broken store is a server error, not a conflict.
	if err := db.Exec("DROP TABLE foods").Error; err != nil {
		t.Fatalf("drop table: %v", err)
	}
	w = doJSON(r, http.MethodPost, "/v0/admin/foods", adminToken,
		`{"name":"Rice","barcode":"4006041","calories_per_100g":360}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("store failure: expected 500, got %d: %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "already in catalog") {
		t.Fatalf("store failure reported as conflict: %s", w.Body.String())
	}
}

func TestAdminTableBrowser(t *testing.T) {
	r, db := newTestServer(t)
	adminToken := seedUserWithToken(t, db, "root", models.RoleAdmin)

	w := doJSON(r, http.MethodGet, "/v0/admin/tables", adminToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("tables: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"name":"users"`) {
		t.Fatalf("expected users table listed, got %s", w.Body.String())
	}

	w = doJSON(r, http.MethodGet, "/v0/admin/tables/users", adminToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("table rows: expected 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "password") {
		t.Fatalf("table browser leaked password column: %s", w.Body.String())
	}

	if w = doJSON(r, http.MethodGet, "/v0/admin/tables/sqlite_master", adminToken, ""); w.Code != http.StatusNotFound {
		t.Fatalf("non-allow-listed table: expected 404, got %d", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	r, _ := newTestServer(t)
	w := doJSON(r, http.MethodGet, "/healthz", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", w.Code)
	}
}

func itoa(id uint64) string {
	return strconv.FormatUint(id, 10)
}
