package controller

import (
	"net/http"
	"time"

	"github.com/agendauth/agendauth/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SessionController serves the protected sample surface: token introspection
// for the calling app and a scope-gated agenda availability check.
type SessionController struct {
	router *gin.RouterGroup
}

func NewSessionController(router *gin.RouterGroup) *SessionController {
	return &SessionController{
		router: router,
	}
}

func (controller *SessionController) SetupRoutes() {
	controller.router.GET("/session", controller.sessionHandler)
	allowMethods(controller.router, "/session", http.MethodGet)

	controller.router.GET("/agenda/ping", middleware.RequireScope("agenda-read"), controller.agendaPingHandler)
	allowMethods(controller.router, "/agenda/ping", http.MethodGet)
}

func (controller *SessionController) sessionHandler(c *gin.Context) {
	tokenContext := middleware.TokenContext(c)

	c.JSON(http.StatusOK, gin.H{
		"app":        tokenContext.App,
		"user":       tokenContext.User,
		"scopes":     tokenContext.Scopes,
		"expires_in": int64(time.Until(tokenContext.Expiry).Seconds()),
		"calls":      tokenContext.Calls,
		"max_calls":  tokenContext.Max,
	})
}

func (controller *SessionController) agendaPingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
