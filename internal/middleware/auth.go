package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/review-portal/internal/constants"
	apierrors "github.com/yukikurage/review-portal/internal/errors"
	"github.com/yukikurage/review-portal/internal/models"
	"github.com/yukikurage/review-portal/internal/services"
)

// UserLoader resolves the session's user id to an account.
type UserLoader interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// RequireAuth checks the session and loads the signed-in account. Sessions
// whose account is gone or no longer admitted are cleared.
func RequireAuth(users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := session.Get(constants.ContextKeyUserID).(string)
		if !ok || userID == "" {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		user, err := users.GetUser(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				session.Clear()
				_ = session.Save()
				apierrors.Unauthorized(c, "")
			} else {
				apierrors.ServiceUnavailable(c, "")
			}
			c.Abort()
			return
		}
		if user.PendingApproval() {
			apierrors.RespondWithError(c, http.StatusForbidden, apierrors.NewAPIError(apierrors.ErrCodePendingApproval, services.ErrPendingApproval.Error()))
			c.Abort()
			return
		}

		// Store the actor in context for easy access in handlers
		c.Set(constants.ContextKeyUserID, user.ID)
		c.Set(constants.ContextKeyActor, user)
		c.Next()
	}
}

// GetActor retrieves the signed-in account loaded by RequireAuth
func GetActor(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(constants.ContextKeyActor)
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}
