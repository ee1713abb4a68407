package router

import (
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
	"mapchat.app/server/internal/http/handler"
	"mapchat.app/server/internal/http/session"
	"mapchat.app/server/internal/service"
	"mapchat.app/server/internal/service/sourcehost"
)

type RouterConfig struct {
	AppOrigin string
	Static    fs.FS
}

func SetupRoutes(
	router *gin.Engine,
	chat service.ChatService,
	links sourcehost.LinkService,
	sessions *session.Manager,
	cfg RouterConfig,
) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		chatHandler := handler.NewChatHandler(chat, sessions)
		ChatRouter(api.Group("/chat"), chatHandler)

		viewHandler := handler.NewViewHandler(sessions)
		ViewRouter(api.Group("/view"), viewHandler)

		authHandler := handler.NewAuthHandler(links, sessions, cfg.AppOrigin)
		AuthRouter(api.Group("/auth"), authHandler)

		hostHandler := handler.NewSourceHostHandler(links, sessions)
		SourceHostRouter(api.Group("/:provider"), hostHandler)
	}

	if cfg.Static != nil {
		fileServer := http.FileServer(http.FS(cfg.Static))
		router.NoRoute(func(c *gin.Context) {
			fileServer.ServeHTTP(c.Writer, c.Request)
		})
	}
}
