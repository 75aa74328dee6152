package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// RealIP sets the client IP into the Gin context (key: "real_ip").
// Forwarding headers are honored only when the direct peer is a private or
// loopback address, i.e. our own proxy. Priority:
// 1) CF-Connecting-IP (Cloudflare)
// 2) X-Forwarded-For (left-most)
// 3) the direct peer
func RealIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		if trustedPeer(c.RemoteIP()) {
			if ip := forwardedIP(c); ip != "" {
				c.Set("real_ip", ip)
				c.Next()
				return
			}
		}
		c.Set("real_ip", c.RemoteIP())
		c.Next()
	}
}

func forwardedIP(c *gin.Context) string {
	if cf := strings.TrimSpace(c.GetHeader("CF-Connecting-IP")); cf != "" {
		if ip := net.ParseIP(cf); ip != nil {
			return ip.String()
		}
	}
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	return ""
}

func trustedPeer(remote string) bool {
	ip := net.ParseIP(remote)
	return ip != nil && (ip.IsLoopback() || ip.IsPrivate())
}
