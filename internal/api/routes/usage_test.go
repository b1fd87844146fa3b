package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"fab-panel/internal/config"
	"fab-panel/internal/models"
	"fab-panel/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB initializes a test database
func setupTestDB(t *testing.T) *config.Config {
	// Create temporary directory for test database
	tmpDir := os.TempDir()
	testDBPath := fmt.Sprintf("%s/fabpanel_routes_test_%d.db", tmpDir, time.Now().UnixNano())

	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Type: "sqlite",
			SQLite: config.SQLiteConfig{
				Path: testDBPath,
			},
		},
		JWT: config.JWTConfig{
			Secret:    "test-secret-key-for-testing-only",
			ExpiresIn: "24h",
			Issuer:    "fab-panel-test",
		},
		Security: config.SecurityConfig{
			BcryptCost: 10,
		},
	}

	err := models.InitDB(cfg)
	require.NoError(t, err)

	return cfg
}

// cleanupTestDB cleans up test database
func cleanupTestDB(t *testing.T, cfg *config.Config) {
	if models.DB != nil {
		sqlDB, err := models.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
		if cfg != nil && cfg.Database.Type == "sqlite" {
			os.Remove(cfg.Database.SQLite.Path)
		}
	}
	models.DB = nil
}

// createTestUser creates a test user and returns it
func createTestUser(t *testing.T, authService *services.AuthService, username, password string, permissions models.SystemPermissions) *models.User {
	user, err := authService.CreateUser(username, password, permissions)
	require.NoError(t, err)
	return user
}

// createTestToken creates a JWT token for testing
func createTestToken(t *testing.T, cfg *config.Config, authService *services.AuthService, user *models.User) string {
	expiresIn, _ := time.ParseDuration(cfg.JWT.ExpiresIn)
	if expiresIn == 0 {
		expiresIn = 24 * time.Hour
	}
	now := time.Now()
	expiresAt := now.Add(expiresIn)

	// Add jti (JWT ID) with nanosecond timestamp to ensure uniqueness
	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"exp":      expiresAt.Unix(),
		"iat":      now.Unix(),
		"iss":      cfg.JWT.Issuer,
		"jti":      fmt.Sprintf("%d-%d", user.ID, now.UnixNano()), // Unique JWT ID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.JWT.Secret))
	require.NoError(t, err)

	// Create session in database
	err = authService.CreateSession(user.ID, tokenString, expiresAt)
	require.NoError(t, err)

	return tokenString
}

// setupTestRouter creates a test router with routes
func setupTestRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	SetupRoutes(r, cfg)
	return r
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(data)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUsageRoutes(t *testing.T) {
	cfg := setupTestDB(t)
	defer cleanupTestDB(t, cfg)

	authService := services.NewAuthService(cfg)
	router := setupTestRouter(cfg)

	admin := createTestUser(t, authService, "admin", "admin123", models.SystemPermissions{CanManageResources: true})
	alice := createTestUser(t, authService, "alice", "alice123", models.SystemPermissions{})
	bob := createTestUser(t, authService, "bob", "bob123", models.SystemPermissions{})

	adminToken := createTestToken(t, cfg, authService, admin)
	aliceToken := createTestToken(t, cfg, authService, alice)
	bobToken := createTestToken(t, cfg, authService, bob)

	resource := &models.Resource{Name: "Laser Cutter", AllowTakeOver: true}
	require.NoError(t, models.DB.Create(resource).Error)
	base := fmt.Sprintf("/api/resources/%d", resource.ID)

	t.Run("requests without a token are rejected", func(t *testing.T) {
		w := doJSON(t, router, "GET", base+"/can-control", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("can-control is false before any grant", func(t *testing.T) {
		w := doJSON(t, router, "GET", base+"/can-control", aliceToken, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]bool
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.False(t, response["can_control"])
	})

	t.Run("start without introduction is forbidden", func(t *testing.T) {
		w := doJSON(t, router, "POST", base+"/usage/start", aliceToken, gin.H{"notes": "first try"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin grants alice an introduction", func(t *testing.T) {
		w := doJSON(t, router, "POST", base+"/introductions/grant", adminToken, gin.H{
			"user_id": alice.ID,
			"comment": "training done",
		})
		assert.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, router, "GET", base+"/can-control", aliceToken, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]bool
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.True(t, response["can_control"])
	})

	t.Run("non-introducer cannot grant introductions", func(t *testing.T) {
		w := doJSON(t, router, "POST", base+"/introductions/grant", bobToken, gin.H{
			"user_id": bob.ID,
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("alice starts a session", func(t *testing.T) {
		w := doJSON(t, router, "POST", base+"/usage/start", aliceToken, gin.H{"notes": "cutting"})
		assert.Equal(t, http.StatusOK, w.Code)

		var session models.UsageSession
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
		assert.Equal(t, alice.ID, session.UserID)
		assert.Nil(t, session.EndTime)
	})

	t.Run("active session is visible", func(t *testing.T) {
		w := doJSON(t, router, "GET", base+"/usage/active", bobToken, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "\"session\"")
		assert.Contains(t, w.Body.String(), "alice")
	})

	t.Run("start by another user reports conflict", func(t *testing.T) {
		// Bob is introduced but the resource is held by alice.
		w := doJSON(t, router, "POST", base+"/introductions/grant", adminToken, gin.H{"user_id": bob.ID})
		assert.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, router, "POST", base+"/usage/start", bobToken, gin.H{})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("takeover closes the previous session", func(t *testing.T) {
		w := doJSON(t, router, "POST", base+"/usage/start", bobToken, gin.H{"force_take_over": true})
		assert.Equal(t, http.StatusOK, w.Code)

		var session models.UsageSession
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
		assert.Equal(t, bob.ID, session.UserID)
	})

	t.Run("only the owner or a manager ends the session", func(t *testing.T) {
		w := doJSON(t, router, "POST", base+"/usage/end", aliceToken, gin.H{"notes": "not mine"})
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = doJSON(t, router, "POST", base+"/usage/end", bobToken, gin.H{"notes": "done"})
		assert.Equal(t, http.StatusOK, w.Code)

		var session models.UsageSession
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
		require.NotNil(t, session.EndTime)
		assert.Equal(t, "done", session.EndNotes)
	})

	t.Run("ending an idle resource fails", func(t *testing.T) {
		w := doJSON(t, router, "POST", base+"/usage/end", bobToken, gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("history returns rows and total", func(t *testing.T) {
		w := doJSON(t, router, "GET", base+"/usage/history?page=1&limit=10", aliceToken, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Data  []models.UsageSession `json:"data"`
			Total int64                 `json:"total"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.EqualValues(t, 2, response.Total)
		assert.Len(t, response.Data, 2)
	})

	t.Run("unknown resource yields 404", func(t *testing.T) {
		w := doJSON(t, router, "POST", "/api/resources/9999/usage/start", aliceToken, gin.H{})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestIntroducerRoutes(t *testing.T) {
	cfg := setupTestDB(t)
	defer cleanupTestDB(t, cfg)

	authService := services.NewAuthService(cfg)
	router := setupTestRouter(cfg)

	admin := createTestUser(t, authService, "admin", "admin123", models.SystemPermissions{CanManageResources: true})
	helper := createTestUser(t, authService, "helper", "helper123", models.SystemPermissions{})

	adminToken := createTestToken(t, cfg, authService, admin)
	helperToken := createTestToken(t, cfg, authService, helper)

	group := &models.ResourceGroup{Name: "Wood Shop"}
	require.NoError(t, models.DB.Create(group).Error)
	base := fmt.Sprintf("/api/groups/%d/introducers", group.ID)

	t.Run("managing introducers requires the manager permission", func(t *testing.T) {
		w := doJSON(t, router, "POST", fmt.Sprintf("%s/%d", base, helper.ID), helperToken, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("manager grants and lists introducers", func(t *testing.T) {
		w := doJSON(t, router, "POST", fmt.Sprintf("%s/%d", base, helper.ID), adminToken, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, router, "GET", base, helperToken, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "helper")
	})

	t.Run("introducer may grant group introductions", func(t *testing.T) {
		w := doJSON(t, router, "POST", fmt.Sprintf("/api/groups/%d/introductions/grant", group.ID), helperToken, gin.H{
			"user_id": admin.ID,
		})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("manager revokes the introducer role", func(t *testing.T) {
		w := doJSON(t, router, "DELETE", fmt.Sprintf("%s/%d", base, helper.ID), adminToken, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, router, "GET", base, adminToken, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "helper")
	})
}
