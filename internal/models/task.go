package models

import (
	"time"
)

type TaskStatus string

const (
	TaskStatusIncomplete TaskStatus = "incomplete"
	TaskStatusComplete   TaskStatus = "complete"
)

func (s TaskStatus) Valid() bool {
	return s == TaskStatusIncomplete || s == TaskStatusComplete
}

type Task struct {
	PK              uint64     `gorm:"column:pk;primaryKey;autoIncrement" json:"-"`
	ID              string     `gorm:"column:id;type:varchar(36);uniqueIndex;not null" json:"id"`
	Title           string     `gorm:"type:varchar(255);not null" json:"title"`
	Description     string     `gorm:"type:text" json:"description"`
	LongDescription string     `gorm:"type:text" json:"longDescription"`
	AssignedTo      string     `gorm:"type:varchar(36);not null;index" json:"assignedTo"`
	CreatedBy       string     `gorm:"type:varchar(36);not null" json:"createdBy"`
	Status          TaskStatus `gorm:"type:varchar(20);not null;default:'incomplete';index" json:"status"`
	ReviewState
	Deadline  *time.Time `json:"deadline"`
	Version   uint64     `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// OwnerID returns the user whose work the task represents.
func (t *Task) OwnerID() string {
	return t.AssignedTo
}
