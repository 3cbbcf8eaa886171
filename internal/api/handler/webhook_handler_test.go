package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Sahar009/awari-backend-sub002/internal/api/service"
)

type MockWebhookService struct {
	mock.Mock
}

func (m *MockWebhookService) Process(ctx context.Context, body []byte, signature string) error {
	args := m.Called(ctx, body, signature)
	return args.Error(0)
}

func setupWebhookRouter(h *WebhookHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhooks/gateway", h.Handle)
	return r
}

func TestWebhookHandler_Handle(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"reference":"FUND-1","amount":500000}}`)

	t.Run("success", func(t *testing.T) {
		mockService := new(MockWebhookService)
		router := setupWebhookRouter(NewWebhookHandler(testLogger(), mockService))

		mockService.On("Process", mock.Anything, body, "valid-signature").Return(nil)

		req := httptest.NewRequest(http.MethodPost, "/webhooks/gateway", bytes.NewReader(body))
		req.Header.Set(SignatureHeader, "valid-signature")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("invalid signature", func(t *testing.T) {
		mockService := new(MockWebhookService)
		router := setupWebhookRouter(NewWebhookHandler(testLogger(), mockService))

		mockService.On("Process", mock.Anything, body, "forged").Return(service.ErrInvalidSignature)

		req := httptest.NewRequest(http.MethodPost, "/webhooks/gateway", bytes.NewReader(body))
		req.Header.Set(SignatureHeader, "forged")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("processing failure triggers gateway retry", func(t *testing.T) {
		mockService := new(MockWebhookService)
		router := setupWebhookRouter(NewWebhookHandler(testLogger(), mockService))

		mockService.On("Process", mock.Anything, body, "valid-signature").Return(errors.New("database down"))

		req := httptest.NewRequest(http.MethodPost, "/webhooks/gateway", bytes.NewReader(body))
		req.Header.Set(SignatureHeader, "valid-signature")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
