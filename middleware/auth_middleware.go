package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"thelook/api/utils"
)

const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	TokenCookie      = "jwt_token"
)

// AuthRequired accepts either the static X-API-KEY (service-to-service,
// disabled when apiKey is empty) or a JWT from the jwt_token cookie or the
// Authorization header.
func AuthRequired(jwtManager *utils.JWTManager, apiKey string, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader("X-API-KEY"); apiKey != "" && key != "" &&
			subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
			c.Next()
			return
		}

		tokenString, err := c.Cookie(TokenCookie)
		if err != nil || tokenString == "" {
			tokenString = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
			if tokenString == "" {
				logger.Debug("AuthRequired: no JWT token found in cookie or header")
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: No token provided"})
				return
			}
		}

		claims, err := jwtManager.Validate(tokenString)
		if err != nil {
			logger.WithError(err).Info("AuthRequired: invalid JWT token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid or expired token"})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserEmail, claims.Email)
		c.Next()
	}
}
