package middleware

import (
	"strings"

	"moa_backend/internal/auth"
	"moa_backend/internal/logger"
	"moa_backend/pkg/apperrors"
	"moa_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware - middleware проверки JWT
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("Authorization header missing or invalid"))
			c.Abort()
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := auth.ParseToken(tokenStr)
		if err != nil {
			apperrors.HandleError(c, apperrors.ErrInvalidAuthToken)
			c.Abort()
			return
		}

		// Сохраняем профиль в контекст запроса и в логгер
		c.Set(string(contextkeys.ProfileIDContextKey), claims.ProfileID)
		ctx := logger.WithProfileID(c.Request.Context(), claims.ProfileID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
