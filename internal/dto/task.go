package dto

import (
	"time"

	"github.com/yukikurage/review-portal/internal/models"
)

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID              string              `json:"id"`
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	LongDescription string              `json:"longDescription,omitempty"`
	AssignedTo      string              `json:"assignedTo"`
	CreatedBy       string              `json:"createdBy"`
	Status          models.TaskStatus   `json:"status"`
	ReviewStatus    models.ReviewStatus `json:"reviewStatus,omitempty"`
	ReviewedBy      string              `json:"reviewedBy,omitempty"`
	ReviewComment   string              `json:"reviewComment,omitempty"`
	Deadline        *time.Time          `json:"deadline"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
	Version         uint64              `json:"version"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO `json:"tasks"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	TotalCount int64     `json:"totalCount"`
	TotalPages int       `json:"totalPages"`
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	return TaskDTO{
		ID:              task.ID,
		Title:           task.Title,
		Description:     task.Description,
		LongDescription: task.LongDescription,
		AssignedTo:      task.AssignedTo,
		CreatedBy:       task.CreatedBy,
		Status:          task.Status,
		ReviewStatus:    task.ReviewStatus,
		ReviewedBy:      task.ReviewedBy,
		ReviewComment:   task.ReviewComment,
		Deadline:        task.Deadline,
		CreatedAt:       task.CreatedAt,
		UpdatedAt:       task.UpdatedAt,
		Version:         task.Version,
	}
}

// ToTaskDTOs converts a slice of tasks
func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	out := make([]TaskDTO, len(tasks))
	for i, t := range tasks {
		out[i] = ToTaskDTO(t)
	}
	return out
}

// ToTaskListResponse converts a page of tasks to TaskListResponse
func ToTaskListResponse(tasks []models.Task, page, pageSize int, totalCount int64) TaskListResponse {
	return TaskListResponse{
		Tasks:      ToTaskDTOs(tasks),
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages(totalCount, pageSize),
	}
}

func totalPages(totalCount int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	pages := int(totalCount) / pageSize
	if int(totalCount)%pageSize > 0 {
		pages++
	}
	return pages
}
