// Package workflow holds the review state machine shared by tasks and files.
// Functions here are pure: they inspect a state and either describe the next
// one or explain why the transition is not allowed. Persisting the result is
// the caller's job.
package workflow

import (
	"errors"
	"strings"

	"github.com/yukikurage/review-portal/internal/models"
)

var (
	ErrInvalidTransition = errors.New("transition not allowed from the current state")
	ErrRequiresComment   = errors.New("a comment is required when reverting")
	ErrCommentNotAllowed = errors.New("approval must not carry a comment")
	ErrInvalidDecision   = errors.New("review decision must be approved or reverted")
	ErrNotEligible       = errors.New("actor is not allowed to review this submission")
)

// Outcome is the state a review leaves behind.
type Outcome struct {
	TaskStatus    models.TaskStatus
	ReviewStatus  models.ReviewStatus
	ReviewedBy    string
	ReviewComment string
}

// Submitted is the review state every fresh submission starts in.
func Submitted() models.ReviewState {
	return models.ReviewState{ReviewStatus: models.ReviewStatusPendingReview}
}

// CompleteTask checks that a task may be marked complete.
func CompleteTask(status models.TaskStatus) error {
	if status != models.TaskStatusIncomplete {
		return ErrInvalidTransition
	}
	return nil
}

// EditableTask reports whether the owner may still change a task's content.
// Tasks under review or already approved are frozen.
func EditableTask(status models.TaskStatus) error {
	if status != models.TaskStatusIncomplete {
		return ErrInvalidTransition
	}
	return nil
}

// ResubmitFile checks that a file may be replaced by its uploader. Only a
// reverted file goes back into the queue this way.
func ResubmitFile(review models.ReviewStatus) error {
	if review != models.ReviewStatusReverted {
		return ErrInvalidTransition
	}
	return nil
}

// Review computes the outcome of a reviewer decision against the current
// review status. The comment is trimmed before it is checked and recorded.
func Review(current models.ReviewStatus, currentStatus models.TaskStatus, decision models.Decision, reviewerID, comment string) (Outcome, error) {
	if !decision.Valid() {
		return Outcome{}, ErrInvalidDecision
	}
	comment = strings.TrimSpace(comment)

	switch decision {
	case models.DecisionReverted:
		if comment == "" {
			return Outcome{}, ErrRequiresComment
		}
	case models.DecisionApproved:
		if comment != "" {
			return Outcome{}, ErrCommentNotAllowed
		}
	}

	if current != models.ReviewStatusPendingReview {
		return Outcome{}, ErrInvalidTransition
	}

	out := Outcome{
		TaskStatus:    currentStatus,
		ReviewedBy:    reviewerID,
		ReviewComment: comment,
	}
	if decision == models.DecisionReverted {
		out.TaskStatus = models.TaskStatusIncomplete
		out.ReviewStatus = models.ReviewStatusReverted
	} else {
		out.ReviewStatus = models.ReviewStatusApproved
	}
	return out, nil
}

// CanReview decides whether reviewer may act on work owned by owner.
// Managers review plain users; admins review managers and plain users.
// Nobody reviews their own work.
func CanReview(reviewer *models.User, owner *models.User) bool {
	if reviewer == nil || owner == nil {
		return false
	}
	if reviewer.ID == owner.ID {
		return false
	}
	switch reviewer.Role {
	case models.RoleAdmin:
		return owner.Role == models.RoleUser || owner.Role == models.RoleManager
	case models.RoleManager:
		return owner.Role == models.RoleUser
	}
	return false
}
