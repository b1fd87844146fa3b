package handlers

import (
	"errors"
	"strconv"

	"fab-panel/internal/api/middleware"
	"fab-panel/internal/models"
	"fab-panel/internal/services"

	"github.com/gin-gonic/gin"
)

// IntroductionHandler serves the grant ledger for one scope kind. It is
// mounted twice: under /resources/:id for resource scopes and under
// /groups/:id for resource group scopes.
type IntroductionHandler struct {
	kind                models.ScopeKind
	introductionService *services.IntroductionService
	introducerService   *services.IntroducerService
	resourceService     *services.ResourceService
	userService         *services.UserService
}

func NewIntroductionHandler(
	kind models.ScopeKind,
	introductionService *services.IntroductionService,
	introducerService *services.IntroducerService,
	resourceService *services.ResourceService,
	userService *services.UserService,
) *IntroductionHandler {
	return &IntroductionHandler{
		kind:                kind,
		introductionService: introductionService,
		introducerService:   introducerService,
		resourceService:     resourceService,
		userService:         userService,
	}
}

type UpdateIntroductionRequest struct {
	UserID  uint   `json:"user_id" binding:"required"`
	Comment string `json:"comment"`
}

func (h *IntroductionHandler) scope(c *gin.Context) (models.Scope, bool) {
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

// update handles both grant and revoke; they differ only in the appended action.
func (h *IntroductionHandler) update(c *gin.Context, action models.IntroductionAction) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}

	var req UpdateIntroductionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	caller, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(401, gin.H{"error": "Not authenticated"})
		return
	}

	canGive, err := h.introducerService.CanGiveIntroductions(scope, caller)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to check permissions"})
		return
	}
	if !canGive {
		c.JSON(403, gin.H{"error": "You are not allowed to manage introductions for this scope"})
		return
	}

	if _, err := h.userService.GetUser(req.UserID); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(404, gin.H{"error": "User not found"})
		} else {
			c.JSON(500, gin.H{"error": "Internal server error"})
		}
		return
	}

	var item *models.IntroductionHistoryItem
	if action == models.IntroductionGrant {
		item, err = h.introductionService.Grant(scope, req.UserID, caller.ID, req.Comment)
	} else {
		item, err = h.introductionService.Revoke(scope, req.UserID, caller.ID, req.Comment)
	}
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to update introduction"})
		return
	}

	c.JSON(200, item)
}

// Grant appends a grant entry for a user in this scope
func (h *IntroductionHandler) Grant(c *gin.Context) {
	h.update(c, models.IntroductionGrant)
}

// Revoke appends a revoke entry for a user in this scope
func (h *IntroductionHandler) Revoke(c *gin.Context) {
	h.update(c, models.IntroductionRevoke)
}

// List returns all introductions of the scope with their histories
func (h *IntroductionHandler) List(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}

	introductions, err := h.introductionService.GetIntroductions(scope)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to get introductions"})
		return
	}

	c.JSON(200, gin.H{"introductions": introductions})
}

// History returns the full grant/revoke ledger for one user in this scope
func (h *IntroductionHandler) History(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}

	userID, err := strconv.ParseUint(c.Query("user_id"), 10, 32)
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid user_id"})
		return
	}

	items, err := h.introductionService.HistoryOf(scope, uint(userID))
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to get introduction history"})
		return
	}

	c.JSON(200, gin.H{"history": items})
}
