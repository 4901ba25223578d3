package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

var authSecret []byte

// SetAuthSecret installs the HMAC signing key. Called once at startup.
func SetAuthSecret(secret string) {
	authSecret = []byte(secret)
}

const tokenTTL = 24 * time.Hour

func sign(payload string) string {
	mac := hmac.New(sha256.New, authSecret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// GenerateToken issues a signed "userID.expiry.signature" bearer token.
func GenerateToken(userID int64) (string, error) {
	if len(authSecret) == 0 {
		return "", fmt.Errorf("auth secret not configured")
	}
	payload := fmt.Sprintf("%d.%d", userID, time.Now().Add(tokenTTL).Unix())
	return payload + "." + sign(payload), nil
}

func parseToken(token string) (int64, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return 0, fmt.Errorf("malformed token")
	}
	payload := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(sign(payload)), []byte(parts[2])) {
		return 0, fmt.Errorf("invalid signature")
	}

	expiry, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || time.Now().Unix() > expiry {
		return 0, fmt.Errorf("token expired")
	}
	return strconv.ParseInt(parts[0], 10, 64)
}

// AuthMiddleware guards protected routes with the bearer token scheme.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if header == "" || token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		userID, err := parseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}
