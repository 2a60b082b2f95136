package middleware

import (
	"github.com/gin-gonic/gin"
)

// CorsMiddleware declares every endpoint open to any origin. The API is
// consumed by third-party apps on arbitrary domains and carries no cookies,
// so the wildcard is safe.
type CorsMiddleware struct{}

func NewCorsMiddleware() *CorsMiddleware {
	return &CorsMiddleware{}
}

func (m *CorsMiddleware) Init() error {
	return nil
}

func (m *CorsMiddleware) Name() string {
	return "cors"
}

func (m *CorsMiddleware) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.Writer.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		c.Next()
	}
}
