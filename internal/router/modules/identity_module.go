package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/reach-identity/internal/domain/entity"
	handlers "github.com/oksasatya/reach-identity/internal/interface/http"
	"github.com/oksasatya/reach-identity/internal/interface/middleware"
)

// IdentityModule wires the onboarding endpoints, one set per identity kind:
// POST /api/sign_up_<kind>, /api/send_verification_code_<kind>,
// /api/verify_<kind>, /api/sign_in_<kind>.
// GET /api/directory/search is reachable from private networks only.
type IdentityModule struct {
	Handler *handlers.IdentityHandler
	RDB     *redis.Client
}

func NewIdentityModule(h *handlers.IdentityHandler, rdb *redis.Client) *IdentityModule {
	return &IdentityModule{Handler: h, RDB: rdb}
}

func (m *IdentityModule) Register(rg *gin.RouterGroup) {
	signUpLimiter := middleware.RateLimit(m.RDB, 20, time.Minute, middleware.KeyByIP(), nil)
	sendLimiter := middleware.RateLimit(m.RDB, 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	verifyLimiter := middleware.RateLimit(m.RDB, 30, time.Minute, middleware.KeyByIPAndPath(), nil)
	signInLimiter := middleware.RateLimit(m.RDB, 30, time.Minute, middleware.KeyByIPAndPath(), nil)

	for _, k := range entity.Kinds {
		rg.POST("/sign_up_"+k.String(), signUpLimiter, m.Handler.SignUp(k))
		rg.POST("/send_verification_code_"+k.String(), sendLimiter, m.Handler.SendVerificationCode(k))
		rg.POST("/verify_"+k.String(), verifyLimiter, m.Handler.Verify(k))
		rg.POST("/sign_in_"+k.String(), signInLimiter, m.Handler.SignIn(k))
	}

	rg.GET("/directory/search", middleware.RequireAllowed(middleware.AllowPrivateIP()), m.Handler.SearchDirectory)
}
