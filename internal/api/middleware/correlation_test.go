package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCorrelationID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("generates an id when absent", func(t *testing.T) {
		r := gin.New()
		r.Use(CorrelationID())

		var seen string
		r.GET("/test", func(c *gin.Context) {
			seen = GetCorrelationID(c)
			c.Status(http.StatusOK)
		})

		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.NotEmpty(t, seen)
		_, err := uuid.Parse(seen)
		assert.NoError(t, err)
		assert.Equal(t, seen, rr.Header().Get(CorrelationIDHeader))
	})

	t.Run("propagates the caller's id", func(t *testing.T) {
		r := gin.New()
		r.Use(CorrelationID())

		var seen string
		r.GET("/test", func(c *gin.Context) {
			seen = GetCorrelationID(c)
			c.Status(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(CorrelationIDHeader, "caller-supplied-id")
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, "caller-supplied-id", seen)
		assert.Equal(t, "caller-supplied-id", rr.Header().Get(CorrelationIDHeader))
	})
}

func TestGetCorrelationID_Missing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Empty(t, GetCorrelationID(c))
}
