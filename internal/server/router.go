package server

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"unidown/internal/logging"
)

// SetupRouter creates and configures the Gin router.
func SetupRouter(api *API, log logrus.FieldLogger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.Middleware(log))
	r.Use(corsMiddleware())

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/extract", api.Extract)
		apiGroup.POST("/fetch", api.Fetch)
		apiGroup.GET("/get", api.Get)
		apiGroup.GET("/platforms", api.Platforms)
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

// corsMiddleware handles CORS for browser requests.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		c.Writer.Header().Set("Access-Control-Expose-Headers", logging.RequestIDHeader)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
