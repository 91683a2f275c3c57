package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/reminder-api/pkg/auth"
	apperrors "github.com/jwalitptl/reminder-api/pkg/errors"
)

const ContextOwnerID = "owner_id"

// TokenValidator resolves a bearer token to the owner it was issued for.
type TokenValidator interface {
	ValidateToken(token string) (uuid.UUID, error)
}

type AuthMiddleware struct {
	tokens TokenValidator
}

func NewAuthMiddleware(tokens TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Authenticate verifies the bearer token and puts the owner id on the
// request context for the services.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Error(apperrors.NewNotAuthenticated())
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.Error(apperrors.NewNotAuthenticated())
			c.Abort()
			return
		}

		ownerID, err := m.tokens.ValidateToken(parts[1])
		if err != nil {
			appErr := apperrors.NewNotAuthenticated()
			appErr.Err = err
			c.Error(appErr)
			c.Abort()
			return
		}

		c.Set(ContextOwnerID, ownerID.String())
		c.Request = c.Request.WithContext(auth.WithOwner(c.Request.Context(), ownerID))
		c.Next()
	}
}
