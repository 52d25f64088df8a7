package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/claudio-nehemia/MoeyProject-sub001/internal/api/handlers"
	"github.com/claudio-nehemia/MoeyProject-sub001/internal/storage"
)

func setupUploadRouter(s3 *MockS3Storage) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := handlers.NewRestUploadHandler(s3)

	r := gin.New()
	r.POST("/v1/upload/presign", handler.PresignUpload)
	return r
}

func TestRestUploadHandler_PresignUpload(t *testing.T) {
	mockS3 := new(MockS3Storage)
	r := setupUploadRouter(mockS3)

	mockS3.On("GeneratePresignedPutURL", mock.Anything, "abc123", storage.PurposeBuktiBayar, "bukti.jpg", "image/jpeg").
		Return("https://s3.example.com/put?sig=x", "bukti_bayar/abc123/uuid_bukti.jpg", nil)
	mockS3.On("ObjectURI", "bukti_bayar/abc123/uuid_bukti.jpg").
		Return("https://files.example.com/bukti_bayar/abc123/uuid_bukti.jpg")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/upload/presign", jsonBody(t, gin.H{
		"kontrak_id":   "abc123",
		"purpose":      storage.PurposeBuktiBayar,
		"filename":     "bukti.jpg",
		"content_type": "image/jpeg",
	}))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "https://s3.example.com/put?sig=x", resp["upload_url"])
	assert.Equal(t, "https://files.example.com/bukti_bayar/abc123/uuid_bukti.jpg", resp["object_uri"])
	mockS3.AssertExpectations(t)
}

func TestRestUploadHandler_PresignUpload_UnknownPurpose(t *testing.T) {
	mockS3 := new(MockS3Storage)
	r := setupUploadRouter(mockS3)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/upload/presign", jsonBody(t, gin.H{
		"kontrak_id":   "abc123",
		"purpose":      "avatars",
		"filename":     "x.jpg",
		"content_type": "image/jpeg",
	}))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockS3.AssertNotCalled(t, "GeneratePresignedPutURL")
}
