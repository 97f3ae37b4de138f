package transport

import (
	"github.com/ds124wfegd/imagefilter/internal/transport/middleware"
	"github.com/gin-gonic/gin"
)

func InitRoutes(imgHandler *ImageHandler) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger())

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/", imgHandler.Root)
	router.GET("/filteredimage", imgHandler.FilteredImage)
	router.GET("/health", imgHandler.Health)

	return router
}
