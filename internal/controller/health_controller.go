package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthController struct {
	router *gin.RouterGroup
}

func NewHealthController(router *gin.RouterGroup) *HealthController {
	return &HealthController{
		router: router,
	}
}

func (controller *HealthController) SetupRoutes() {
	controller.router.GET("/health", controller.healthHandler)
	controller.router.HEAD("/health", controller.healthHandler)
	allowMethods(controller.router, "/health", http.MethodGet, http.MethodHead)

	controller.router.GET("/ping", controller.pingHandler)
	allowMethods(controller.router, "/ping", http.MethodGet)
}

func (controller *HealthController) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Healthy",
	})
}

func (controller *HealthController) pingHandler(c *gin.Context) {
	c.String(http.StatusOK, "Pong")
}
