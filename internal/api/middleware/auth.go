package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity headers set by the upstream API gateway after session validation.
// This service trusts them; it performs no credential checks of its own.
const (
	UserIDHeader    = "X-User-ID"
	UserEmailHeader = "X-User-Email"
	UserNameHeader  = "X-User-Name"

	identityKey = "caller_identity"
)

// Identity is the authenticated caller of a wallet endpoint
type Identity struct {
	UserID uuid.UUID
	Email  string
	Name   string
}

// RequireUser extracts the caller identity from the gateway headers and
// rejects requests without a valid user id.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := uuid.Parse(c.GetHeader(UserIDHeader))
		if err != nil || userID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Missing or invalid user identity",
				},
			})
			return
		}

		c.Set(identityKey, Identity{
			UserID: userID,
			Email:  c.GetHeader(UserEmailHeader),
			Name:   c.GetHeader(UserNameHeader),
		})
		c.Next()
	}
}

// GetIdentity retrieves the caller identity stored by RequireUser
func GetIdentity(c *gin.Context) (Identity, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return Identity{}, false
	}
	identity, ok := v.(Identity)
	return identity, ok
}

// RequireAdmin guards admin endpoints with a static bearer token. Comparison
// is constant time.
func RequireAdmin(apiToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(apiToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Missing or invalid admin token",
				},
			})
			return
		}
		c.Next()
	}
}
