package router

import (
	"github.com/gin-gonic/gin"
	"mapchat.app/server/internal/http/handler"
)

func SourceHostRouter(router *gin.RouterGroup, handler *handler.SourceHostHandler) {
	router.GET("/user", handler.Profile)
	router.GET("/repos", handler.Repositories)
}
