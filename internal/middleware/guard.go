package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/classmark/classmark-api/internal/guard"
	"github.com/classmark/classmark-api/internal/models"
	"github.com/classmark/classmark-api/internal/service"
	appErrors "github.com/classmark/classmark-api/pkg/errors"
	"github.com/classmark/classmark-api/pkg/response"
)

// Guard enforces role access on a route. It resolves the caller's profile and
// hands the session to guard.Evaluate; misrouted callers get a 403 whose body
// carries the redirect to their role's home so clients know where to send
// them.
//
// Must run after OptionalJWT: requests with no token at all reach the guard
// as anonymous sessions, which Evaluate deliberately lets through.
func Guard(authService *service.AuthService, logger *zap.Logger, allowed ...models.UserRole) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		session := guard.Session{}

		if claimsValue, exists := c.Get(ContextUserKey); exists {
			claims := claimsValue.(*models.JWTClaims)
			session.Identity = &models.UserInfo{
				ID:       claims.UserID,
				Email:    claims.Email,
				FullName: claims.FullName,
				Role:     claims.Role,
			}

			profile, err := authService.ResolveProfile(c.Request.Context(), claims)
			if err != nil {
				logger.Warn("profile resolution failed",
					zap.String("user_id", claims.UserID),
					zap.Error(err))
			}
			session.Profile = profile
		}

		decision := guard.Evaluate(session, allowed)
		switch decision.State {
		case guard.StateAuthorized, guard.StateAnonymous:
			c.Next()
		case guard.StateMisrouted:
			response.ErrorWithRedirect(c, appErrors.ErrForbidden, decision.Redirect)
			c.Abort()
		}
	}
}
