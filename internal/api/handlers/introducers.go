package handlers

import (
	"errors"
	"strconv"

	"fab-panel/internal/models"
	"fab-panel/internal/services"

	"github.com/gin-gonic/gin"
)

// IntroducerHandler manages the introducer membership set for one scope
// kind. Mounted under both /resources/:id and /groups/:id; routes are
// guarded by the resource manager permission.
type IntroducerHandler struct {
	kind              models.ScopeKind
	introducerService *services.IntroducerService
	resourceService   *services.ResourceService
	userService       *services.UserService
}

func NewIntroducerHandler(
	kind models.ScopeKind,
	introducerService *services.IntroducerService,
	resourceService *services.ResourceService,
	userService *services.UserService,
) *IntroducerHandler {
	return &IntroducerHandler{
		kind:              kind,
		introducerService: introducerService,
		resourceService:   resourceService,
		userService:       userService,
	}
}

func (h *IntroducerHandler) scope(c *gin.Context) (models.Scope, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid scope ID"})
		return models.Scope{}, false
	}

	scope := models.Scope{Kind: h.kind, ID: uint(id)}
	if err := h.resourceService.ScopeExists(scope); err != nil {
		if errors.Is(err, services.ErrResourceNotFound) || errors.Is(err, services.ErrGroupNotFound) {
			c.JSON(404, gin.H{"error": err.Error()})
		} else {
			c.JSON(500, gin.H{"error": "Internal server error"})
		}
		return models.Scope{}, false
	}

	return scope, true
}

func (h *IntroducerHandler) targetUser(c *gin.Context) (uint, bool) {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid user ID"})
		return 0, false
	}

	if _, err := h.userService.GetUser(uint(userID)); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(404, gin.H{"error": "User not found"})
		} else {
			c.JSON(500, gin.H{"error": "Internal server error"})
		}
		return 0, false
	}

	return uint(userID), true
}

// List returns all introducers of the scope
func (h *IntroducerHandler) List(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}

	introducers, err := h.introducerService.GetIntroducers(scope)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to get introducers"})
		return
	}

	c.JSON(200, gin.H{"introducers": introducers})
}

// Grant makes a user an introducer for the scope
func (h *IntroducerHandler) Grant(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}

	userID, ok := h.targetUser(c)
	if !ok {
		return
	}

	introducer, err := h.introducerService.Grant(scope, userID)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to grant introducer role"})
		return
	}

	c.JSON(200, introducer)
}

// Revoke removes a user's introducer role for the scope
func (h *IntroducerHandler) Revoke(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}

	userID, ok := h.targetUser(c)
	if !ok {
		return
	}

	if err := h.introducerService.Revoke(scope, userID); err != nil {
		c.JSON(500, gin.H{"error": "Failed to revoke introducer role"})
		return
	}

	c.JSON(200, gin.H{"message": "Introducer role revoked"})
}
