package handlers

import (
	"errors"
	"strconv"

	"fab-panel/internal/api/middleware"
	"fab-panel/internal/services"

	"github.com/gin-gonic/gin"
)

type UsageHandler struct {
	usageService         *services.UsageService
	authorizationService *services.AuthorizationService
}

func NewUsageHandler(usageService *services.UsageService, authorizationService *services.AuthorizationService) *UsageHandler {
	return &UsageHandler{
		usageService:         usageService,
		authorizationService: authorizationService,
	}
}

type StartSessionRequest struct {
	Notes         string `json:"notes"`
	ForceTakeOver bool   `json:"force_take_over"`
}

type EndSessionRequest struct {
	Notes string `json:"notes"`
}

// StartSession opens a usage session on the resource for the caller
func (h *UsageHandler) StartSession(c *gin.Context) {
	resourceID, ok := resourceIDParam(c)
	if !ok {
		return
	}

	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(401, gin.H{"error": "Not authenticated"})
		return
	}

	session, err := h.usageService.StartSession(resourceID, user, services.StartSessionOptions{
		Notes:         req.Notes,
		ForceTakeOver: req.ForceTakeOver,
	})
	if err != nil {
		respondUsageError(c, err)
		return
	}

	c.JSON(200, session)
}

// EndSession closes the active session of the resource
func (h *UsageHandler) EndSession(c *gin.Context) {
	resourceID, ok := resourceIDParam(c)
	if !ok {
		return
	}

	var req EndSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(401, gin.H{"error": "Not authenticated"})
		return
	}

	session, err := h.usageService.EndSession(resourceID, user, services.EndSessionOptions{
		Notes: req.Notes,
	})
	if err != nil {
		respondUsageError(c, err)
		return
	}

	c.JSON(200, session)
}

// GetActiveSession returns the open session of the resource, or null
func (h *UsageHandler) GetActiveSession(c *gin.Context) {
	resourceID, ok := resourceIDParam(c)
	if !ok {
		return
	}

	session, err := h.usageService.GetActiveSession(resourceID)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to get active session"})
		return
	}

	c.JSON(200, gin.H{"session": session})
}

// GetHistory returns the paginated usage history of the resource
func (h *UsageHandler) GetHistory(c *gin.Context) {
	resourceID, ok := resourceIDParam(c)
	if !ok {
		return
	}

	page, limit := paginationParams(c)

	var userID uint
	if raw := c.Query("user_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid user_id"})
			return
		}
		userID = uint(parsed)
	}

	sessions, total, err := h.usageService.GetResourceHistory(resourceID, page, limit, userID)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to get usage history"})
		return
	}

	c.JSON(200, gin.H{
		"data":  sessions,
		"total": total,
	})
}

// GetMyHistory returns the caller's usage history across all resources
func (h *UsageHandler) GetMyHistory(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(401, gin.H{"error": "Not authenticated"})
		return
	}

	page, limit := paginationParams(c)

	sessions, total, err := h.usageService.GetUserHistory(user.ID, page, limit)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to get usage history"})
		return
	}

	c.JSON(200, gin.H{
		"data":  sessions,
		"total": total,
	})
}

// CanControl reports whether the caller may start sessions on the resource
func (h *UsageHandler) CanControl(c *gin.Context) {
	resourceID, ok := resourceIDParam(c)
	if !ok {
		return
	}

	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(401, gin.H{"error": "Not authenticated"})
		return
	}

	canControl, err := h.authorizationService.CanControl(resourceID, user)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to check permissions"})
		return
	}

	c.JSON(200, gin.H{"can_control": canControl})
}

func resourceIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid resource ID"})
		return 0, false
	}
	return uint(id), true
}

func paginationParams(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return page, limit
}

func respondUsageError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrResourceNotFound):
		c.JSON(404, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrMissingIntroduction),
		errors.Is(err, services.ErrNotSessionOwner):
		c.JSON(403, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrResourceBusy),
		errors.Is(err, services.ErrTakeOverNotAllowed):
		c.JSON(409, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNoActiveSession):
		c.JSON(400, gin.H{"error": err.Error()})
	default:
		c.JSON(500, gin.H{"error": "Internal server error"})
	}
}
