package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// cronSecretHeader carries the scheduler secret for cron-style callers
// that cannot set an Authorization header.
const cronSecretHeader = "X-Cron-Secret"

// RequireScheduler rejects requests that do not present the scheduler
// secret, either as a bearer token or via the cron header. Nothing
// downstream runs on a failed check.
func RequireScheduler(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "scheduler secret not configured"})
			return
		}

		presented := c.GetHeader(cronSecretHeader)
		if presented == "" {
			auth := c.GetHeader("Authorization")
			presented = strings.TrimPrefix(auth, "Bearer ")
			if presented == auth {
				presented = ""
			}
		}

		if subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing credentials"})
			return
		}

		c.Next()
	}
}
