package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/claudio-nehemia/MoeyProject-sub001/internal/models"
	"github.com/claudio-nehemia/MoeyProject-sub001/internal/services"
)

// RestTerminHandler handles REST requests for termin templates.
type RestTerminHandler struct {
	terminService services.ITerminService
}

// NewRestTerminHandler creates a new RestTerminHandler.
func NewRestTerminHandler(terminService services.ITerminService) *RestTerminHandler {
	return &RestTerminHandler{terminService: terminService}
}

// ListTermins handles GET /v1/termin
func (h *RestTerminHandler) ListTermins(c *gin.Context) {
	termins, err := h.terminService.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list termins"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": termins})
}

// GetTerminByID handles GET /v1/termin/:id
func (h *RestTerminHandler) GetTerminByID(c *gin.Context) {
	terminID, ok := parseObjectID(c, "id")
	if !ok {
		return
	}

	termin, err := h.terminService.FindByID(c.Request.Context(), terminID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Termin not found"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve termin"})
		}
		return
	}
	c.JSON(http.StatusOK, termin)
}

type terminRequest struct {
	KodeTipe  string               `json:"kode_tipe"`
	NamaTipe  string               `json:"nama_tipe" binding:"required"`
	Deskripsi string               `json:"deskripsi"`
	Tahapan   []models.TahapanStep `json:"tahapan" binding:"required"`
}

// CreateTermin handles POST /v1/termin (admin only).
func (h *RestTerminHandler) CreateTermin(c *gin.Context) {
	var req terminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: nama_tipe and tahapan are required"})
		return
	}
	if req.KodeTipe == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: kode_tipe is required"})
		return
	}

	termin, err := h.terminService.Create(c.Request.Context(), req.KodeTipe, req.NamaTipe, req.Deskripsi, req.Tahapan)
	if err != nil {
		if errors.Is(err, services.ErrInvalidTahapan) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create termin"})
		return
	}
	c.JSON(http.StatusCreated, termin)
}

// UpdateTermin handles PUT /v1/termin/:id (admin only).
func (h *RestTerminHandler) UpdateTermin(c *gin.Context) {
	terminID, ok := parseObjectID(c, "id")
	if !ok {
		return
	}

	var req terminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: nama_tipe and tahapan are required"})
		return
	}

	termin, err := h.terminService.Update(c.Request.Context(), terminID, req.NamaTipe, req.Deskripsi, req.Tahapan)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidTahapan):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		case errors.Is(err, mongo.ErrNoDocuments):
			c.JSON(http.StatusNotFound, gin.H{"error": "Termin not found"})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update termin"})
		}
		return
	}
	c.JSON(http.StatusOK, termin)
}
