package transport

import (
	"net/http"
	"time"

	"github.com/ds124wfegd/WB_L3/avatar/config"
	"github.com/ds124wfegd/WB_L3/avatar/internal/pkg/ratelimit"
	"github.com/ds124wfegd/WB_L3/avatar/internal/transport/middleware"
	"github.com/gin-gonic/gin"
)

type RouterOptions struct {
	PublicPrefix     string
	DefaultImageURL  string
	DefaultImagePath string
	RequestTimeout   time.Duration
	Gate             ratelimit.Gate
	Metrics          http.Handler
}

func InitRoutes(imgHandler *ImageHandler, opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.Logger(), middleware.Timeout(opts.RequestTimeout))

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, "+middleware.OwnerHeader)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	prefix := config.UploadConfig{PublicPrefix: opts.PublicPrefix}.PublicPath()

	router.POST("/upload_profile_image",
		middleware.RequireOwner(),
		middleware.RateLimit(opts.Gate),
		imgHandler.UploadProfileImage,
	)
	router.GET(prefix+"/:filename", imgHandler.ServeUpload)
	router.GET("/profile-image/:owner", imgHandler.ProfileImage)

	if opts.DefaultImageURL != "" && opts.DefaultImagePath != "" {
		router.StaticFile(opts.DefaultImageURL, opts.DefaultImagePath)
	}

	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "profile-image-service",
		})
	})
	return router
}
