package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/powder-coating-api/config"
	"github.com/kendall-kelly/powder-coating-api/logger"
	"github.com/kendall-kelly/powder-coating-api/middleware"
	"github.com/kendall-kelly/powder-coating-api/models"
	"github.com/kendall-kelly/powder-coating-api/services"
	"github.com/kendall-kelly/powder-coating-api/utils"
	"go.uber.org/zap"
)

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func respondValidation(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "Invalid request data",
			"details": err.Error(),
		},
	})
}

// currentUser loads the profile behind the request's token. On failure the
// response is already written.
func currentUser(c *gin.Context) (*models.User, bool) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return nil, false
	}

	var user models.User
	if err := config.GetDB().Where("auth0_id = ?", auth0ID).First(&user).Error; err != nil {
		respondError(c, http.StatusNotFound, "USER_NOT_FOUND", "User profile not found. Please create a profile first.")
		return nil, false
	}
	return &user, true
}

func currentPrincipal(c *gin.Context) (services.Principal, bool) {
	user, ok := currentUser(c)
	if !ok {
		return services.Principal{}, false
	}
	return services.PrincipalFor(*user), true
}

// parseID reads a positive numeric path parameter
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// handleServiceError maps service errors onto the API error envelope
func handleServiceError(c *gin.Context, err error, action string) {
	var ve *services.ValidationError
	var fe *utils.FileUploadError

	switch {
	case errors.As(err, &ve):
		respondError(c, http.StatusBadRequest, ve.Code, ve.Message)
	case errors.As(err, &fe):
		status := http.StatusBadRequest
		if fe.Code == "FILE_TOO_LARGE" {
			status = http.StatusRequestEntityTooLarge
		}
		respondError(c, status, fe.Code, fe.Message)
	case errors.Is(err, services.ErrForbidden):
		respondError(c, http.StatusForbidden, "FORBIDDEN", "You do not have permission to perform this action")
	case errors.Is(err, services.ErrOrderNotFound):
		respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
	case errors.Is(err, services.ErrTeamMemberNotFound):
		respondError(c, http.StatusNotFound, "TEAM_MEMBER_NOT_FOUND", "Team member not found")
	case errors.Is(err, services.ErrNotificationNotFound):
		respondError(c, http.StatusNotFound, "NOTIFICATION_NOT_FOUND", "Notification not found")
	case errors.Is(err, services.ErrNoQuoteToRespond):
		respondError(c, http.StatusConflict, "NO_QUOTE", "This order has not been quoted yet")
	case errors.Is(err, services.ErrFilesLocked):
		respondError(c, http.StatusConflict, "FILES_LOCKED", "Files can only be added while the order awaits a quote")
	default:
		logger.L().Error("request failed", zap.String("action", action), zap.String("path", c.FullPath()), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to "+action)
	}
}

func pagination(page, limit int, total int64) gin.H {
	totalPages := (total + int64(limit) - 1) / int64(limit)
	return gin.H{
		"page":       page,
		"limit":      limit,
		"total":      total,
		"totalPages": totalPages,
	}
}
