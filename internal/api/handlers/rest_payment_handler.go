package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/claudio-nehemia/MoeyProject-sub001/internal/api/middleware"
	"github.com/claudio-nehemia/MoeyProject-sub001/internal/services"
)

// RestPaymentHandler handles REST requests for the staged payment lifecycle.
type RestPaymentHandler struct {
	paymentService services.IPaymentService
}

// NewRestPaymentHandler creates a new RestPaymentHandler.
func NewRestPaymentHandler(paymentService services.IPaymentService) *RestPaymentHandler {
	return &RestPaymentHandler{paymentService: paymentService}
}

// respondServiceError translates business errors into HTTP statuses. Every
// business rejection carries the reason so the client can re-render without a
// second round trip.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvoiceAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrStepNotPayable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrMissingApproval):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, mongo.ErrNoDocuments):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// actorName resolves who performed the action: the authenticated user's name,
// or an explicit name in the request body when the flow is recorded on
// someone's behalf.
func actorName(c *gin.Context, bodyName string) string {
	if bodyName != "" {
		return bodyName
	}
	if name, ok := c.Get(middleware.ContextKeyUserName); ok {
		if s, _ := name.(string); s != "" {
			return s
		}
	}
	return "unknown"
}

func parseObjectID(c *gin.Context, param string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// GetTerminSteps handles GET /v1/kontrak/:id/termin-steps
func (h *RestPaymentHandler) GetTerminSteps(c *gin.Context) {
	kontrakID, ok := parseObjectID(c, "id")
	if !ok {
		return
	}

	views, err := h.paymentService.StepsFor(c.Request.Context(), kontrakID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": views})
}

// GetPaymentSummary handles GET /v1/kontrak/:id/payment-summary
func (h *RestPaymentHandler) GetPaymentSummary(c *gin.Context) {
	kontrakID, ok := parseObjectID(c, "id")
	if !ok {
		return
	}

	summary, err := h.paymentService.Summary(c.Request.Context(), kontrakID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GenerateInvoice handles POST /v1/kontrak/:id/invoices
func (h *RestPaymentHandler) GenerateInvoice(c *gin.Context) {
	kontrakID, ok := parseObjectID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Step int `json:"step" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: step is required"})
		return
	}

	invoice, err := h.paymentService.GenerateInvoice(c.Request.Context(), kontrakID, req.Step)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

// RecordPmResponse handles POST /v1/invoice/:id/pm-response
func (h *RestPaymentHandler) RecordPmResponse(c *gin.Context) {
	invoiceID, ok := parseObjectID(c, "id")
	if !ok {
		return
	}

	var req struct {
		ResponseBy string `json:"response_by"`
	}
	_ = c.ShouldBindJSON(&req) // body optional, actor falls back to the JWT name

	err := h.paymentService.RecordPmResponse(c.Request.Context(), invoiceID, actorName(c, req.ResponseBy))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RecordClientResponse handles POST /v1/invoice/:id/client-response
func (h *RestPaymentHandler) RecordClientResponse(c *gin.Context) {
	invoiceID, ok := parseObjectID(c, "id")
	if !ok {
		return
	}

	var req struct {
		ResponseBy string `json:"response_by"`
	}
	_ = c.ShouldBindJSON(&req)

	err := h.paymentService.RecordClientResponse(c.Request.Context(), invoiceID, actorName(c, req.ResponseBy))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// UploadProof handles POST /v1/invoice/:id/bukti-bayar
func (h *RestPaymentHandler) UploadProof(c *gin.Context) {
	invoiceID, ok := parseObjectID(c, "id")
	if !ok {
		return
	}

	var req struct {
		BuktiBayar string `json:"bukti_bayar" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: bukti_bayar is required"})
		return
	}

	invoice, err := h.paymentService.UploadProof(c.Request.Context(), invoiceID, req.BuktiBayar)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

// CancelInvoice handles DELETE /v1/invoice/:id
func (h *RestPaymentHandler) CancelInvoice(c *gin.Context) {
	invoiceID, ok := parseObjectID(c, "id")
	if !ok {
		return
	}

	if err := h.paymentService.Cancel(c.Request.Context(), invoiceID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AttachBastPhoto handles POST /v1/kontrak/:id/bast-photo
func (h *RestPaymentHandler) AttachBastPhoto(c *gin.Context) {
	kontrakID, ok := parseObjectID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Foto string `json:"foto" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: foto is required"})
		return
	}

	if err := h.paymentService.AttachBastPhoto(c.Request.Context(), kontrakID, req.Foto); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// MarkCommitmentFeePaid handles POST /v1/kontrak/:id/commitment-fee/paid
func (h *RestPaymentHandler) MarkCommitmentFeePaid(c *gin.Context) {
	kontrakID, ok := parseObjectID(c, "id")
	if !ok {
		return
	}

	var req struct {
		ProofURI   string `json:"proof_uri" binding:"required"`
		ResponseBy string `json:"response_by"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: proof_uri is required"})
		return
	}

	err := h.paymentService.MarkCommitmentFeePaid(c.Request.Context(), kontrakID, req.ProofURI, actorName(c, req.ResponseBy))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
