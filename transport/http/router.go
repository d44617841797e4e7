package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/aeralogin/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services are the application services exposed over HTTP
type Services struct {
	Auth    *service.AuthService
	Handoff *service.HandoffService
	Scores  *service.ScoreService
	Clients *service.ClientService
}

// RouterConfig holds the shared keys guarding privileged routes
type RouterConfig struct {
	AdminKey string
	BotKey   string
	Gatherer prometheus.Gatherer
}

// SetupRouter sets up the Gin router
func SetupRouter(svc Services, cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger())

	auth := NewAuthHandlers(svc.Auth, svc.Scores)
	community := NewCommunityHandlers(svc.Handoff)
	admin := NewAdminHandlers(svc.Clients, svc.Scores)

	router.POST("/nonce", auth.Nonce)
	router.POST("/auth/login", auth.Login)

	oauth := router.Group("/oauth")
	{
		oauth.GET("/authorize", auth.Authorize)
		oauth.POST("/complete", auth.Complete)
		oauth.POST("/token", auth.Token)
	}

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		api.POST("/v1/verify", auth.Verify)
		api.POST("/oauth/verify-nft", auth.VerifyNFT)
		api.GET("/v1/me", AuthMiddleware(svc.Auth), auth.Me)

		api.POST("/community/invite", AuthMiddleware(svc.Auth), community.Invite)
		api.GET("/community/redirect", community.Redirect)
		api.POST("/community/claim", APIKeyMiddleware("X-Bot-Key", cfg.BotKey), community.Claim)
		api.POST("/community/capabilities/verify", APIKeyMiddleware("X-Bot-Key", cfg.BotKey), community.VerifyCapabilities)

		api.POST("/v1/clients/register", APIKeyMiddleware("X-Admin-Key", cfg.AdminKey), admin.RegisterClient)
	}

	adminGroup := router.Group("/admin")
	adminGroup.Use(APIKeyMiddleware("X-Admin-Key", cfg.AdminKey))
	{
		adminGroup.POST("/interactions", admin.Interaction)
		adminGroup.POST("/followers", admin.Follower)
		adminGroup.POST("/followers/recompute", admin.RecomputeBonus)
		adminGroup.POST("/score/adjust", admin.AdjustScore)
		adminGroup.POST("/identity/status", admin.IdentityStatus)
	}

	if cfg.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	return router
}
