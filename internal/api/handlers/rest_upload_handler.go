package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/claudio-nehemia/MoeyProject-sub001/internal/storage"
)

// RestUploadHandler issues pre-signed S3 PUT URLs for payment artifacts. The
// client uploads directly to S3, then submits the resulting URI through the
// relevant lifecycle endpoint.
type RestUploadHandler struct {
	s3Storage storage.IS3Storage
}

// NewRestUploadHandler creates a new RestUploadHandler.
func NewRestUploadHandler(s3Storage storage.IS3Storage) *RestUploadHandler {
	return &RestUploadHandler{s3Storage: s3Storage}
}

// PresignUpload handles POST /v1/upload/presign
func (h *RestUploadHandler) PresignUpload(c *gin.Context) {
	var req struct {
		KontrakID   string `json:"kontrak_id" binding:"required"`
		Purpose     string `json:"purpose" binding:"required"`
		Filename    string `json:"filename" binding:"required"`
		ContentType string `json:"content_type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: kontrak_id, purpose, filename and content_type are required"})
		return
	}
	if !storage.ValidPurpose(req.Purpose) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown upload purpose"})
		return
	}

	url, objectKey, err := h.s3Storage.GeneratePresignedPutURL(c.Request.Context(), req.KontrakID, req.Purpose, req.Filename, req.ContentType)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate upload URL"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"upload_url": url,
		"object_key": objectKey,
		"object_uri": h.s3Storage.ObjectURI(objectKey),
	})
}
