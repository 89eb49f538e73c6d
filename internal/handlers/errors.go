package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/review-portal/internal/errors"
	"github.com/yukikurage/review-portal/internal/services"
)

// errorKind maps one service error kind to its transport status and code.
type errorKind struct {
	err    error
	status int
	code   string
}

// Order matters: specific failures wrap broader kinds, so the broad kinds
// are matched last.
var errorKinds = []errorKind{
	{services.ErrDuplicateEmail, http.StatusBadRequest, apierrors.ErrCodeDuplicateEmail},
	{services.ErrInvalidCredential, http.StatusUnauthorized, apierrors.ErrCodeInvalidCredential},
	{services.ErrPendingApproval, http.StatusForbidden, apierrors.ErrCodePendingApproval},
	{services.ErrRequiresComment, http.StatusUnprocessableEntity, apierrors.ErrCodeRequiresComment},
	{services.ErrInvalidTransition, http.StatusConflict, apierrors.ErrCodeInvalidTransition},
	{services.ErrRequiresPasswordLinkage, http.StatusConflict, apierrors.ErrCodeRequiresPasswordLinkage},
	{services.ErrConflict, http.StatusConflict, apierrors.ErrCodeConflict},
	{services.ErrNotFound, http.StatusNotFound, apierrors.ErrCodeNotFound},
	{services.ErrForbidden, http.StatusForbidden, apierrors.ErrCodeForbidden},
	{services.ErrValidation, http.StatusBadRequest, apierrors.ErrCodeInvalidInput},
	{services.ErrStorageUnavailable, http.StatusServiceUnavailable, apierrors.ErrCodeStorageUnavailable},
}

// respondError writes the response for a service error. Messages come from
// the service sentinels and never include submitted secrets; storage details
// are only attached to the gin context for logging.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	for _, kind := range errorKinds {
		if !errors.Is(err, kind.err) {
			continue
		}
		message := err.Error()
		if kind.err == services.ErrStorageUnavailable {
			message = services.ErrStorageUnavailable.Error()
		}
		apierrors.RespondWithError(c, kind.status, apierrors.NewAPIError(kind.code, message))
		return
	}

	apierrors.InternalError(c, "")
}
