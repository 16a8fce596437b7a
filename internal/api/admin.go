package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminHeader carries the shared secret on destructive requests. This is
// a gate, not a security boundary.
const AdminHeader = "X-Admin-Password"

func AdminMiddleware(password string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(AdminHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(password)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "admin password required",
			})
			return
		}
		c.Next()
	}
}
