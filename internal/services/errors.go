package services

import (
	"errors"
	"fmt"

	"github.com/yukikurage/review-portal/internal/repository"
	"github.com/yukikurage/review-portal/internal/workflow"
)

// Error kinds. Every error a service returns matches exactly one of these
// with errors.Is; the transport maps each kind to one status code.
var (
	ErrDuplicateEmail          = errors.New("email already registered")
	ErrInvalidCredential       = errors.New("invalid email or password")
	ErrPendingApproval         = errors.New("account is pending admin approval")
	ErrNotFound                = errors.New("not found")
	ErrForbidden               = errors.New("not allowed")
	ErrRequiresComment         = workflow.ErrRequiresComment
	ErrInvalidTransition       = workflow.ErrInvalidTransition
	ErrConflict                = errors.New("entity was modified concurrently; reload and retry")
	ErrRequiresPasswordLinkage = errors.New("an account with this email exists; sign in with your password to link it")
	ErrValidation              = errors.New("invalid input")
	ErrStorageUnavailable      = errors.New("storage unavailable")
)

// Specific failures. Each wraps one of the kinds above.
var (
	ErrPasswordTooShort  = fmt.Errorf("%w: password too short", ErrValidation)
	ErrPasswordTooLong   = fmt.Errorf("%w: password too long", ErrValidation)
	ErrEmailRequired     = fmt.Errorf("%w: email is required", ErrValidation)
	ErrNameRequired      = fmt.Errorf("%w: name is required", ErrValidation)
	ErrNameTooLong       = fmt.Errorf("%w: name is too long", ErrValidation)
	ErrFileTypeTooLong   = fmt.Errorf("%w: file type is too long", ErrValidation)
	ErrInvalidRole       = fmt.Errorf("%w: role must be user, manager or admin", ErrValidation)
	ErrTitleRequired     = fmt.Errorf("%w: title is required", ErrValidation)
	ErrInvalidAssignee   = fmt.Errorf("%w: tasks can only be assigned to approved user accounts", ErrValidation)
	ErrInvalidDecision   = fmt.Errorf("%w: %v", ErrValidation, workflow.ErrInvalidDecision)
	ErrCommentNotAllowed = fmt.Errorf("%w: %v", ErrValidation, workflow.ErrCommentNotAllowed)
	ErrEmptyFile         = fmt.Errorf("%w: file is empty", ErrValidation)
	ErrFileTooLarge      = fmt.Errorf("%w: file exceeds the upload limit", ErrValidation)
	ErrReviewerMismatch  = fmt.Errorf("%w: reviewedBy must match the signed-in reviewer", ErrForbidden)
	ErrFilePassword      = fmt.Errorf("%w: file password is missing or wrong", ErrForbidden)
	ErrInvalidEncryption = fmt.Errorf("%w: encryption level must be standard or high", ErrValidation)
	ErrUnknownProvider   = fmt.Errorf("%w: unknown identity provider", ErrValidation)
	ErrSSOExchangeFailed = fmt.Errorf("%w: identity provider rejected the sign-in", ErrInvalidCredential)
	ErrSSOStateMismatch  = fmt.Errorf("%w: sign-in was not started from this browser", ErrInvalidCredential)
	ErrNoRedirect        = fmt.Errorf("%w: identity provider signs in without a redirect", ErrValidation)
)

// fromRepository maps persistence errors onto service kinds.
func fromRepository(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrDuplicate):
		return ErrConflict
	default:
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
}

// fromWorkflow maps state machine errors onto service kinds.
func fromWorkflow(err error) error {
	switch {
	case errors.Is(err, workflow.ErrInvalidDecision):
		return ErrInvalidDecision
	case errors.Is(err, workflow.ErrCommentNotAllowed):
		return ErrCommentNotAllowed
	case errors.Is(err, workflow.ErrNotEligible):
		return ErrForbidden
	default:
		return err
	}
}
