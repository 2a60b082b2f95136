package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// allowMethods answers CORS preflight for a route with its allowed method
// list. OPTIONS itself is always included.
func allowMethods(router *gin.RouterGroup, path string, methods ...string) {
	allowed := strings.Join(append(methods, http.MethodOptions), ", ")

	router.OPTIONS(path, func(c *gin.Context) {
		c.Header("Access-Control-Allow-Methods", allowed)
		c.Status(http.StatusNoContent)
	})
}
