package router

import (
	"github.com/gin-gonic/gin"
	"mapchat.app/server/internal/http/handler"
)

func ChatRouter(router *gin.RouterGroup, handler *handler.ChatHandler) {
	router.POST("", handler.Submit)
	router.GET("/history", handler.History)
}
