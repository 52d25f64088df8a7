package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/claudio-nehemia/MoeyProject-sub001/internal/api/handlers"
	"github.com/claudio-nehemia/MoeyProject-sub001/internal/api/middleware"
	"github.com/claudio-nehemia/MoeyProject-sub001/internal/config"
	"github.com/claudio-nehemia/MoeyProject-sub001/internal/services"
	"github.com/claudio-nehemia/MoeyProject-sub001/internal/storage"
)

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, db *mongo.Database, taskClient services.IAsynqClient) *gin.Engine {
	terminService := services.NewTerminService(db)
	paymentService := services.NewPaymentService(db, cfg, terminService, taskClient)

	s3StorageService, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Fatalf("CRITICAL: Failed to initialize S3 storage for API: %v", err)
	}

	r := gin.Default()

	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.RequestIDMiddleware())

	paymentHandler := handlers.NewRestPaymentHandler(paymentService)
	terminHandler := handlers.NewRestTerminHandler(terminService)
	uploadHandler := handlers.NewRestUploadHandler(s3StorageService)

	v1 := r.Group("/v1")
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		// All payment routes require a logged-in user; the JWT name doubles
		// as the recorded actor on approval responses.
		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			authRequired.GET("/termin", terminHandler.ListTermins)
			authRequired.GET("/termin/:id", terminHandler.GetTerminByID)

			authRequired.GET("/kontrak/:id/termin-steps", paymentHandler.GetTerminSteps)
			authRequired.GET("/kontrak/:id/payment-summary", paymentHandler.GetPaymentSummary)
			authRequired.POST("/kontrak/:id/invoices", paymentHandler.GenerateInvoice)
			authRequired.POST("/kontrak/:id/bast-photo", paymentHandler.AttachBastPhoto)
			authRequired.POST("/kontrak/:id/commitment-fee/paid", paymentHandler.MarkCommitmentFeePaid)

			authRequired.POST("/invoice/:id/pm-response", paymentHandler.RecordPmResponse)
			authRequired.POST("/invoice/:id/client-response", paymentHandler.RecordClientResponse)
			authRequired.POST("/invoice/:id/bukti-bayar", paymentHandler.UploadProof)
			authRequired.DELETE("/invoice/:id", paymentHandler.CancelInvoice)

			authRequired.POST("/upload/presign", uploadHandler.PresignUpload)
		}

		// Termin templates are reference data; only admins change them.
		adminRequired := v1.Group("/")
		adminRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.AdminMiddleware())
		{
			adminRequired.POST("/termin", terminHandler.CreateTermin)
			adminRequired.PUT("/termin/:id", terminHandler.UpdateTermin)
		}
	}

	return r
}
