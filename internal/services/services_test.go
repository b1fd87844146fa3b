package services

import (
	"fmt"
	"os"
	"testing"
	"time"

	"fab-panel/internal/config"
	"fab-panel/internal/events"
	"fab-panel/internal/models"

	"github.com/stretchr/testify/require"
)

// setupTestDB initializes a test database
func setupTestDB(t *testing.T) *config.Config {
	// Create temporary directory for test database
	tmpDir := os.TempDir()
	testDBPath := fmt.Sprintf("%s/fabpanel_test_%d.db", tmpDir, time.Now().UnixNano())

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

// createTestUser creates a user directly in the database
func createTestUser(t *testing.T, username string, permissions models.SystemPermissions) *models.User {
	user := &models.User{
		Username:          username,
		PasswordHash:      "not-a-real-hash",
		SystemPermissions: permissions,
	}
	require.NoError(t, models.DB.Create(user).Error)
	return user
}

// createTestResource creates a resource directly in the database
func createTestResource(t *testing.T, name string, allowTakeOver bool) *models.Resource {
	resource := &models.Resource{
		Name:          name,
		AllowTakeOver: allowTakeOver,
	}
	require.NoError(t, models.DB.Create(resource).Error)
	return resource
}

// createTestGroup creates a resource group containing the given resources
func createTestGroup(t *testing.T, name string, resources ...*models.Resource) *models.ResourceGroup {
	group := &models.ResourceGroup{Name: name}
	require.NoError(t, models.DB.Create(group).Error)
	for _, resource := range resources {
		require.NoError(t, models.DB.Model(group).Association("Resources").Append(resource))
	}
	return group
}

// newTestServices wires the full service graph used by the usage engine
func newTestServices(bus *events.Bus) (*IntroductionService, *IntroducerService, *ResourceService, *AuthorizationService, *UsageService) {
	if bus == nil {
		bus = events.NewBus()
	}
	introductions := NewIntroductionService()
	introducers := NewIntroducerService()
	resources := NewResourceService()
	authorization := NewAuthorizationService(introductions, introducers, resources)
	usage := NewUsageService(authorization, resources, bus)
	return introductions, introducers, resources, authorization, usage
}
