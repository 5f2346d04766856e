package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wardstock/stocktake/internal/server/handlers"
)

// New wires the Gin engine with the counting routes and middlewares.
func New(handler *handlers.CountingHandler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	r.Use(zapLoggerMiddleware(logger))

	api := r.Group("/api/count", handlers.RequireOperator())
	api.GET("", handler.View)
	api.POST("/save", handler.Save)
	api.POST("/items", handler.AddItem)
	api.GET("/export", handler.Export)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

// requestIDMiddleware tags every request with an id that travels through the
// logs and the response headers. An inbound X-Request-ID wins over a fresh one.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}

		c.Set("request_id", id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString("request_id")))
	}
}
