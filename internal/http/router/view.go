package router

import (
	"github.com/gin-gonic/gin"
	"mapchat.app/server/internal/http/handler"
)

func ViewRouter(router *gin.RouterGroup, handler *handler.ViewHandler) {
	router.GET("", handler.Get)
	router.PUT("", handler.Put)
}
