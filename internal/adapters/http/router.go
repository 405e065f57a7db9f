package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/tsenko/CollabSpace/internal/adapters/relay"
	"github.com/tsenko/CollabSpace/internal/app"
	"github.com/tsenko/CollabSpace/internal/config"
)

func SetupRouter(ctx context.Context, cfg *config.Config, ctl *relay.Controller, reg *app.Registry) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.Static("/uploads", cfg.UploadsDir)
	r.POST("/upload", uploadHandler(cfg, ctl))

	log.Info().Str("module", "adapters.http").Str("uploads", cfg.UploadsDir).Msg("router setup")

	api := r.Group("/api")

	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, reg.ListRooms())
	})

	api.GET("/ice-servers", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"iceServers": []webrtc.ICEServer{{URLs: cfg.STUNURLs}},
		})
	})

	r.GET("/ws", func(c *gin.Context) {
		ctl.HandleWS(ctx, c)
	})

	return r
}
