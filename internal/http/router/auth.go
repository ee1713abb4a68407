package router

import (
	"github.com/gin-gonic/gin"
	"mapchat.app/server/internal/http/handler"
)

func AuthRouter(router *gin.RouterGroup, handler *handler.AuthHandler) {
	router.GET("/:provider/url", handler.AuthorizationURL)
	router.GET("/:provider/callback", handler.Callback)
	router.DELETE("/:provider", handler.Unlink)
}
