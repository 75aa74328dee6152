package middleware

import (
	"net"

	"github.com/gin-gonic/gin"
)

// AllowPrivateIP reports true for loopback and private-range clients.
func AllowPrivateIP() AllowFunc {
	return func(c *gin.Context) bool {
		parsed := net.ParseIP(ipFromCtx(c))
		if parsed == nil {
			return false
		}
		return parsed.IsLoopback() || parsed.IsPrivate()
	}
}

// RequireAllowed rejects requests for which allow returns false.
func RequireAllowed(allow AllowFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !allow(c) {
			abortForbidden(c)
			return
		}
		c.Next()
	}
}
