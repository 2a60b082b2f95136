package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/agendauth/agendauth/internal/config"
	"github.com/agendauth/agendauth/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// AuthMiddleware protects API routes: it resolves the bearer token and
// charges the owning app's quota before the handler runs.
type AuthMiddleware struct {
	access *service.AccessService
}

func NewAuthMiddleware(access *service.AccessService) *AuthMiddleware {
	return &AuthMiddleware{
		access: access,
	}
}

func (m *AuthMiddleware) Init() error {
	return nil
}

func (m *AuthMiddleware) Name() string {
	return "auth"
}

func (m *AuthMiddleware) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Preflight requests carry no credentials, let the OPTIONS
		// handlers answer them
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		token := bearerToken(c)

		if token == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing access token"})
			return
		}

		tokenContext, err := m.access.VerifyBearer(c.Request.Context(), token)

		if err != nil {
			switch {
			case errors.Is(err, service.ErrTokenExpired):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token expired"})
			case errors.Is(err, service.ErrInvalidToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			default:
				log.Error().Err(err).Msg("Failed to verify bearer token")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "server error"})
			}
			return
		}

		snapshot, err := m.access.ChargeAndCheck(c.Request.Context(), tokenContext.App)

		if err != nil {
			switch {
			case errors.Is(err, service.ErrQuotaExceeded):
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "monthly call quota exceeded"})
			default:
				log.Error().Err(err).Str("app", tokenContext.App).Msg("Failed to charge quota")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "server error"})
			}
			return
		}

		tokenContext.Calls = snapshot.Calls
		tokenContext.Max = snapshot.Max

		c.Set("token", tokenContext)
		c.Next()
	}
}

// RequireScope rejects requests whose grant does not include the scope.
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenContext := TokenContext(c)

		if tokenContext == nil || !tokenContext.Scopes[scope] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient scope"})
			return
		}

		c.Next()
	}
}

// TokenContext returns the verified bearer context set by AuthMiddleware.
func TokenContext(c *gin.Context) *config.TokenContext {
	value, ok := c.Get("token")
	if !ok {
		return nil
	}
	tokenContext, ok := value.(*config.TokenContext)
	if !ok {
		return nil
	}
	return tokenContext
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")

	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	return c.Query("token")
}
