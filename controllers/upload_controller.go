package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/powder-coating-api/config"
	"github.com/kendall-kelly/powder-coating-api/services"
	"github.com/kendall-kelly/powder-coating-api/utils"
)

// UploadOrderFile handles POST /api/v1/orders/:id/files - multipart field "file"
func UploadOrderFile(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FILE", "A file is required in the 'file' field")
		return
	}

	if services.GetFileService() == nil {
		respondError(c, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "File storage is not configured")
		return
	}

	file, err := services.Orders(config.GetDB()).AttachFile(c.Request.Context(), p, id, fileHeader)
	if err != nil {
		handleServiceError(c, err, "upload file")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    file,
	})
}

// AllowedFileTypes handles GET /api/v1/files/types
func AllowedFileTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"extensions": utils.AllowedExtensions(),
			"max_size":   utils.MaxFileSize,
		},
	})
}
