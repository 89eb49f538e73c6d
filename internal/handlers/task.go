package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/review-portal/internal/dto"
	apierrors "github.com/yukikurage/review-portal/internal/errors"
	"github.com/yukikurage/review-portal/internal/middleware"
	"github.com/yukikurage/review-portal/internal/models"
	"github.com/yukikurage/review-portal/internal/services"
	"github.com/yukikurage/review-portal/internal/utils"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// ListTasks returns the tasks visible to the current user.
// Filters: status, reviewStatus, assignedToMe, dueToday, sort=deadline.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	params := utils.GetPaginationParams(c)
	input := services.ListTasksInput{
		AssignedToMe:   queryBool(c, "assignedToMe"),
		DueToday:       queryBool(c, "dueToday"),
		SortByDeadline: c.Query("sort") == "deadline",
		Page:           params.Page,
		PageSize:       params.Limit,
	}
	if v := c.Query("status"); v != "" {
		status := models.TaskStatus(v)
		if !status.Valid() {
			apierrors.BadRequest(c, "Invalid status")
			return
		}
		input.Status = &status
	}
	if v := c.Query("reviewStatus"); v != "" {
		reviewStatus := models.ReviewStatus(v)
		if !reviewStatus.Valid() {
			apierrors.BadRequest(c, "Invalid reviewStatus")
			return
		}
		input.ReviewStatus = &reviewStatus
	}

	tasks, total, err := h.taskService.ListTasks(c.Request.Context(), actor, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, params.Page, params.Limit, total))
}

// ReviewQueue returns the pending tasks the current user can review.
func (h *TaskHandler) ReviewQueue(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	tasks, err := h.taskService.ReviewQueue(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": dto.ToTaskDTOs(tasks)})
}

func (h *TaskHandler) Stats(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	stats, err := h.taskService.Stats(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetTask returns a specific task by ID
func (h *TaskHandler) GetTask(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreateTaskRequest struct {
		Title           string     `json:"title" binding:"required,max=255"`
		Description     string     `json:"description"`
		LongDescription string     `json:"longDescription"`
		AssignedTo      string     `json:"assignedTo"`
		Deadline        *time.Time `json:"deadline"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), actor, services.CreateTaskInput{
		Title:           req.Title,
		Description:     req.Description,
		LongDescription: req.LongDescription,
		AssignedTo:      req.AssignedTo,
		Deadline:        req.Deadline,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask updates an existing task. "clearDeadline": true removes the deadline.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type UpdateTaskRequest struct {
		Title           *string    `json:"title" binding:"omitempty,max=255"`
		Description     *string    `json:"description"`
		LongDescription *string    `json:"longDescription"`
		Deadline        *time.Time `json:"deadline"`
		ClearDeadline   bool       `json:"clearDeadline"`
		Version         *uint64    `json:"version"`
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), actor, c.Param("id"), services.UpdateTaskInput{
		Title:           req.Title,
		Description:     req.Description,
		LongDescription: req.LongDescription,
		Deadline:        req.Deadline,
		ClearDeadline:   req.ClearDeadline,
		Version:         req.Version,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// CompleteTask submits the current user's task for review.
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CompleteTaskRequest struct {
		Version *uint64 `json:"version"`
	}

	// The body is optional.
	var req CompleteTaskRequest
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			respondBindError(c, err)
			return
		}
	}

	task, err := h.taskService.CompleteTask(c.Request.Context(), actor, c.Param("id"), req.Version)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// ReviewTask approves or reverts a task pending review.
func (h *TaskHandler) ReviewTask(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	req, ok := bindReview(c)
	if !ok {
		return
	}

	task, err := h.taskService.ReviewTask(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}

// bindReview reads the review body shared by tasks and files.
func bindReview(c *gin.Context) (services.ReviewInput, bool) {
	type ReviewRequest struct {
		ReviewStatus  models.Decision `json:"reviewStatus" binding:"required,decision"`
		ReviewedBy    string          `json:"reviewedBy"`
		ReviewComment string          `json:"reviewComment"`
		Version       *uint64         `json:"version"`
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return services.ReviewInput{}, false
	}
	return services.ReviewInput{
		Decision:   req.ReviewStatus,
		ReviewedBy: req.ReviewedBy,
		Comment:    req.ReviewComment,
		Version:    req.Version,
	}, true
}

func queryBool(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))
	return err == nil && v
}
