package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/flybeeper/radarsim/pkg/utils"
)

// Middleware аутентификация команд управления
type Middleware struct {
	validator *Validator
	logger    *utils.Logger
}

// NewMiddleware создает middleware аутентификации
func NewMiddleware(validator *Validator, logger *utils.Logger) *Middleware {
	return &Middleware{
		validator: validator,
		logger:    logger,
	}
}

// Authenticate требует Bearer токен, если он настроен
func (m *Middleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.validator.Enabled() {
			c.Next()
			return
		}

		token := extractToken(c)
		if err := m.validator.ValidateToken(token); err != nil {
			code := "INVALID_TOKEN"
			if errors.Is(err, ErrMissingToken) {
				code = "MISSING_TOKEN"
			}
			m.logger.WithFields(map[string]interface{}{
				"ip":     c.ClientIP(),
				"method": c.Request.Method,
				"path":   c.Request.URL.Path,
			}).Warn("Rejected unauthenticated command")

			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    code,
				"message": err.Error(),
			})
			return
		}

		c.Set("authenticated", true)
		c.Next()
	}
}

// extractToken извлекает токен из заголовка Authorization или параметра token
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	// WebSocket клиенты в браузере не умеют задавать заголовки
	return c.Query("token")
}

// IsAuthenticated прошел ли запрос проверку токена
func IsAuthenticated(c *gin.Context) bool {
	return c.GetBool("authenticated")
}
