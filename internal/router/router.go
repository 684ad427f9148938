package router

import (
	"github.com/blues/cfc/internal/config"
	"github.com/blues/cfc/internal/handler"
	"github.com/blues/cfc/internal/logic"
	"github.com/blues/cfc/internal/store"
	"github.com/gin-gonic/gin"
)

func Setup(listing *logic.ListingService, executor *logic.SettlementExecutor,
	writer logic.LedgerWriter, cache *store.Store, cfg *config.Config) *gin.Engine {

	r := gin.New()

	// 中间件
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "crowdfunding-client",
		})
	})

	// API版本组
	v1 := r.Group("/api/v1")
	{
		projectHandler := handler.NewProjectHandler(listing, cache)
		actionHandler := handler.NewActionHandler(listing, executor, writer)

		v1.GET("/home", projectHandler.GetHome)
		v1.GET("/profiles/:address", projectHandler.GetProfile)

		projects := v1.Group("/projects")
		{
			projects.GET("", projectHandler.GetProjects)
			projects.POST("", actionHandler.CreateProject)
			projects.GET("/:id", projectHandler.GetProject)
			projects.GET("/:id/actions", projectHandler.GetProjectActions)
			projects.GET("/:id/countdown", projectHandler.StreamCountdown)
			projects.POST("/:id/fund", actionHandler.FundProject)
			projects.POST("/:id/claim-fund", actionHandler.ClaimFund)
			projects.POST("/:id/claim-refund", actionHandler.ClaimRefund)
		}
	}

	return r
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
