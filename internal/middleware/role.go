package middleware

import (
	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/review-portal/internal/errors"
	"github.com/yukikurage/review-portal/internal/models"
)

// RequireRole only lets actors with one of roles through. It must run after
// RequireAuth.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}

		apierrors.Forbidden(c, "Your role cannot perform this action")
		c.Abort()
	}
}
