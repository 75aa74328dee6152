package modules

import (
	"expvar"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/reach-identity/internal/interface/middleware"
)

type DebugModule struct {
	RDB      *redis.Client
	Registry *prometheus.Registry
}

func NewDebugModule(rdb *redis.Client, reg *prometheus.Registry) *DebugModule {
	return &DebugModule{RDB: rdb, Registry: reg}
}

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	// Public expvar, rate-limited per IP
	rl := middleware.RateLimit(m.RDB, 120, time.Minute, middleware.KeyByIP(), nil)
	rg.GET("/debug/vars", rl, gin.WrapH(expvar.Handler()))
	if m.Registry != nil {
		rg.GET("/metrics", middleware.RequireAllowed(middleware.AllowPrivateIP()),
			gin.WrapH(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})))
	}
}
