package models

// ReviewStatus is the reviewer-facing state of a task or file. The empty value
// means the entity has never been submitted.
type ReviewStatus string

const (
	ReviewStatusNone          ReviewStatus = ""
	ReviewStatusPendingReview ReviewStatus = "pending_review"
	ReviewStatusApproved      ReviewStatus = "approved"
	ReviewStatusReverted      ReviewStatus = "reverted"
)

// Valid reports whether s is a known review status, including the unset one.
func (s ReviewStatus) Valid() bool {
	switch s {
	case ReviewStatusNone, ReviewStatusPendingReview, ReviewStatusApproved, ReviewStatusReverted:
		return true
	}
	return false
}

// Decision is the outcome a reviewer picks for a pending submission.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionReverted Decision = "reverted"
)

func (d Decision) Valid() bool {
	return d == DecisionApproved || d == DecisionReverted
}

// ReviewState is embedded by every reviewable entity.
type ReviewState struct {
	ReviewStatus  ReviewStatus `gorm:"type:varchar(20);not null;default:'';index" json:"reviewStatus,omitempty"`
	ReviewedBy    string       `gorm:"type:varchar(36);not null;default:''" json:"reviewedBy,omitempty"`
	ReviewComment string       `gorm:"type:text" json:"reviewComment,omitempty"`
}
