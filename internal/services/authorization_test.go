package services

import (
	"testing"

	"fab-panel/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanControlPredicates(t *testing.T) {
	cfg := setupTestDB(t)
	defer cleanupTestDB(t, cfg)

	introductions, introducers, _, authorization, _ := newTestServices(nil)
	tutor := createTestUser(t, "tutor", models.SystemPermissions{CanManageResources: true})
	resource := createTestResource(t, "Lathe", false)
	group := createTestGroup(t, "Metal Shop", resource)

	canControl := func(t *testing.T, user *models.User) bool {
		ok, err := authorization.CanControl(resource.ID, user)
		require.NoError(t, err)
		return ok
	}

	t.Run("no grants means no control", func(t *testing.T) {
		user := createTestUser(t, "nobody", models.SystemPermissions{})
		assert.False(t, canControl(t, user))
	})

	t.Run("system permission grants control", func(t *testing.T) {
		user := createTestUser(t, "admin", models.SystemPermissions{CanManageResources: true})
		assert.True(t, canControl(t, user))
	})

	t.Run("resource introduction grants control", func(t *testing.T) {
		user := createTestUser(t, "introduced", models.SystemPermissions{})
		_, err := introductions.Grant(models.ResourceScope(resource.ID), user.ID, tutor.ID, "")
		require.NoError(t, err)
		assert.True(t, canControl(t, user))

		// Revoking the only grant flips the decision back.
		_, err = introductions.Revoke(models.ResourceScope(resource.ID), user.ID, tutor.ID, "")
		require.NoError(t, err)
		assert.False(t, canControl(t, user))
	})

	t.Run("resource introducer role grants control", func(t *testing.T) {
		user := createTestUser(t, "res-introducer", models.SystemPermissions{})
		_, err := introducers.Grant(models.ResourceScope(resource.ID), user.ID)
		require.NoError(t, err)
		assert.True(t, canControl(t, user))

		require.NoError(t, introducers.Revoke(models.ResourceScope(resource.ID), user.ID))
		assert.False(t, canControl(t, user))
	})

	t.Run("group introduction grants control over member resources", func(t *testing.T) {
		user := createTestUser(t, "group-introduced", models.SystemPermissions{})
		_, err := introductions.Grant(models.GroupScope(group.ID), user.ID, tutor.ID, "")
		require.NoError(t, err)
		assert.True(t, canControl(t, user))

		_, err = introductions.Revoke(models.GroupScope(group.ID), user.ID, tutor.ID, "")
		require.NoError(t, err)
		assert.False(t, canControl(t, user))
	})

	t.Run("group introducer role grants control over member resources", func(t *testing.T) {
		user := createTestUser(t, "group-introducer", models.SystemPermissions{})
		_, err := introducers.Grant(models.GroupScope(group.ID), user.ID)
		require.NoError(t, err)
		assert.True(t, canControl(t, user))

		require.NoError(t, introducers.Revoke(models.GroupScope(group.ID), user.ID))
		assert.False(t, canControl(t, user))
	})

	t.Run("grants on unrelated groups do not leak", func(t *testing.T) {
		otherGroup := createTestGroup(t, "Wood Shop")
		user := createTestUser(t, "other-group", models.SystemPermissions{})
		_, err := introductions.Grant(models.GroupScope(otherGroup.ID), user.ID, tutor.ID, "")
		require.NoError(t, err)
		assert.False(t, canControl(t, user))
	})
}
