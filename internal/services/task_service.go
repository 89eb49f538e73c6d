package services

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/review-portal/internal/constants"
	"github.com/yukikurage/review-portal/internal/logger"
	"github.com/yukikurage/review-portal/internal/metrics"
	"github.com/yukikurage/review-portal/internal/models"
	"github.com/yukikurage/review-portal/internal/repository"
	"github.com/yukikurage/review-portal/internal/utils"
	"github.com/yukikurage/review-portal/internal/visibility"
	"github.com/yukikurage/review-portal/internal/workflow"
	"go.uber.org/zap"
)

// TaskService handles task business logic
type TaskService struct {
	gw      *repository.Gateway
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewTaskService creates a new TaskService
func NewTaskService(gw *repository.Gateway, log *zap.Logger, m *metrics.Metrics) *TaskService {
	return &TaskService{
		gw:      gw,
		log:     logger.OrNop(log),
		metrics: m,
	}
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	Status         *models.TaskStatus
	ReviewStatus   *models.ReviewStatus
	AssignedToMe   bool
	DueToday       bool
	SortByDeadline bool
	Page           int
	PageSize       int
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title           string
	Description     string
	LongDescription string
	AssignedTo      string
	Deadline        *time.Time
}

// UpdateTaskInput represents input for updating a task
type UpdateTaskInput struct {
	Title           *string
	Description     *string
	LongDescription *string
	Deadline        *time.Time
	ClearDeadline   bool
	Version         *uint64
}

// ReviewInput carries a reviewer decision for a task or file.
type ReviewInput struct {
	Decision   models.Decision
	ReviewedBy string
	Comment    string
	Version    *uint64
}

// TaskStats summarises the tasks an actor can see.
type TaskStats struct {
	Total            int `json:"total"`
	Complete         int `json:"complete"`
	Incomplete       int `json:"incomplete"`
	PendingReview    int `json:"pendingReview"`
	Approved         int `json:"approved"`
	Reverted         int `json:"reverted"`
	AwaitingMyReview int `json:"awaitingMyReview"`
}

// ListTasks returns the tasks visible to actor, filtered and paginated.
func (s *TaskService) ListTasks(ctx context.Context, actor *models.User, input ListTasksInput) ([]models.Task, int64, error) {
	view, err := resolveView(ctx, s.gw, actor, withTasks)
	if err != nil {
		return nil, 0, err
	}

	var dayStart, dayEnd time.Time
	if input.DueToday {
		now := time.Now()
		dayStart = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		dayEnd = dayStart.Add(24 * time.Hour)
	}

	tasks := make([]models.Task, 0, len(view.Tasks))
	for _, t := range view.Tasks {
		if input.Status != nil && t.Status != *input.Status {
			continue
		}
		if input.ReviewStatus != nil && t.ReviewStatus != *input.ReviewStatus {
			continue
		}
		if input.AssignedToMe && t.AssignedTo != actor.ID {
			continue
		}
		if input.DueToday && (t.Deadline == nil || t.Deadline.Before(dayStart) || !t.Deadline.Before(dayEnd)) {
			continue
		}
		tasks = append(tasks, t)
	}

	if input.SortByDeadline {
		// Stable so ties keep the resolver's creation order; tasks without a
		// deadline go last.
		slices.SortStableFunc(tasks, func(a, b models.Task) int {
			switch {
			case a.Deadline == nil && b.Deadline == nil:
				return 0
			case a.Deadline == nil:
				return 1
			case b.Deadline == nil:
				return -1
			}
			return a.Deadline.Compare(*b.Deadline)
		})
	}

	page, total := utils.Paginate(tasks, utils.NewPaginationParams(input.Page, input.PageSize))
	return page, total, nil
}

// ReviewQueue returns the pending tasks actor is expected to review.
func (s *TaskService) ReviewQueue(ctx context.Context, actor *models.User) ([]models.Task, error) {
	view, err := resolveView(ctx, s.gw, actor, withTasks)
	if err != nil {
		return nil, err
	}
	return view.TaskReviewQueue, nil
}

// Stats counts the tasks visible to actor by state.
func (s *TaskService) Stats(ctx context.Context, actor *models.User) (*TaskStats, error) {
	view, err := resolveView(ctx, s.gw, actor, withTasks)
	if err != nil {
		return nil, err
	}

	stats := &TaskStats{
		Total:            len(view.Tasks),
		AwaitingMyReview: len(view.TaskReviewQueue),
	}
	for _, t := range view.Tasks {
		if t.Status == models.TaskStatusComplete {
			stats.Complete++
		} else {
			stats.Incomplete++
		}
		switch t.ReviewStatus {
		case models.ReviewStatusPendingReview:
			stats.PendingReview++
		case models.ReviewStatusApproved:
			stats.Approved++
		case models.ReviewStatusReverted:
			stats.Reverted++
		}
	}
	return stats, nil
}

// GetTask returns a task if actor may see it.
func (s *TaskService) GetTask(ctx context.Context, actor *models.User, id string) (*models.Task, error) {
	task, _, err := s.load(ctx, actor, id)
	return task, err
}

// CreateTask creates a new incomplete task. Tasks can only be assigned to
// approved plain users, and a plain user may only create tasks for themself.
func (s *TaskService) CreateTask(ctx context.Context, actor *models.User, input CreateTaskInput) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" || len(title) > constants.MaxTitleLength {
		return nil, ErrTitleRequired
	}

	assigneeID := strings.TrimSpace(input.AssignedTo)
	if assigneeID == "" {
		assigneeID = actor.ID
	}
	if actor.Role == models.RoleUser && assigneeID != actor.ID {
		return nil, ErrForbidden
	}

	assignee, err := s.gw.Users.FindByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidAssignee
		}
		return nil, fromRepository(err)
	}
	if assignee.Role != models.RoleUser || !assignee.IsApproved {
		return nil, ErrInvalidAssignee
	}

	task := &models.Task{
		ID:              uuid.NewString(),
		Title:           title,
		Description:     strings.TrimSpace(input.Description),
		LongDescription: input.LongDescription,
		AssignedTo:      assignee.ID,
		CreatedBy:       actor.ID,
		Status:          models.TaskStatusIncomplete,
		Deadline:        input.Deadline,
		Version:         1,
	}
	if err := s.gw.Tasks.Create(ctx, task); err != nil {
		return nil, fromRepository(err)
	}

	s.log.Info("task created",
		zap.String("task_id", task.ID),
		zap.String("assigned_to", task.AssignedTo),
		zap.String("created_by", actor.ID),
	)
	return task, nil
}

// UpdateTask edits the text and deadline of an incomplete task. The assignee,
// the creator and admins may edit.
func (s *TaskService) UpdateTask(ctx context.Context, actor *models.User, id string, input UpdateTaskInput) (*models.Task, error) {
	task, _, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !canManageTask(actor, task) {
		return nil, ErrForbidden
	}
	if err := workflow.EditableTask(task.Status); err != nil {
		return nil, fromWorkflow(err)
	}

	fields := repository.Fields{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" || len(title) > constants.MaxTitleLength {
			return nil, ErrTitleRequired
		}
		fields["title"] = title
	}
	if input.Description != nil {
		fields["description"] = strings.TrimSpace(*input.Description)
	}
	if input.LongDescription != nil {
		fields["long_description"] = *input.LongDescription
	}
	if input.ClearDeadline {
		fields["deadline"] = nil
	} else if input.Deadline != nil {
		fields["deadline"] = *input.Deadline
	}
	if len(fields) == 0 {
		return task, nil
	}

	updated, err := s.gw.Tasks.UpdateIf(ctx, id, expectedVersion(input.Version, task.Version),
		repository.Condition{"status": models.TaskStatusIncomplete}, fields)
	if err != nil {
		return nil, fromRepository(err)
	}
	return updated, nil
}

// CompleteTask marks the actor's own task complete and submits it for review.
// A reverted task is resubmitted the same way after editing.
func (s *TaskService) CompleteTask(ctx context.Context, actor *models.User, id string, version *uint64) (*models.Task, error) {
	task, _, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if task.AssignedTo != actor.ID {
		return nil, ErrForbidden
	}
	if err := workflow.CompleteTask(task.Status); err != nil {
		return nil, fromWorkflow(err)
	}

	submitted := workflow.Submitted()
	updated, err := s.gw.Tasks.UpdateIf(ctx, id, expectedVersion(version, task.Version),
		repository.Condition{"status": models.TaskStatusIncomplete},
		repository.Fields{
			"status":         models.TaskStatusComplete,
			"review_status":  submitted.ReviewStatus,
			"reviewed_by":    submitted.ReviewedBy,
			"review_comment": submitted.ReviewComment,
		},
	)
	if err != nil {
		return nil, fromRepository(err)
	}

	transition := "complete"
	if task.ReviewStatus == models.ReviewStatusReverted {
		transition = "resubmit"
	}
	s.metrics.Transition("task", transition)
	s.log.Info("task submitted for review", zap.String("task_id", id), zap.String("transition", transition))
	return updated, nil
}

// ReviewTask applies a reviewer decision to a pending task.
func (s *TaskService) ReviewTask(ctx context.Context, actor *models.User, id string, input ReviewInput) (*models.Task, error) {
	task, owner, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if input.ReviewedBy != "" && input.ReviewedBy != actor.ID {
		return nil, ErrReviewerMismatch
	}
	if !workflow.CanReview(actor, owner) {
		return nil, ErrForbidden
	}

	out, err := workflow.Review(task.ReviewStatus, task.Status, input.Decision, actor.ID, input.Comment)
	if err != nil {
		return nil, fromWorkflow(err)
	}

	updated, err := s.gw.Tasks.UpdateIf(ctx, id, expectedVersion(input.Version, task.Version),
		repository.Condition{"review_status": models.ReviewStatusPendingReview},
		repository.Fields{
			"status":         out.TaskStatus,
			"review_status":  out.ReviewStatus,
			"reviewed_by":    out.ReviewedBy,
			"review_comment": out.ReviewComment,
		},
	)
	if err != nil {
		return nil, fromRepository(err)
	}

	s.metrics.Transition("task", string(out.ReviewStatus))
	s.log.Info("task reviewed",
		zap.String("task_id", id),
		zap.String("reviewer_id", actor.ID),
		zap.String("decision", string(input.Decision)),
	)
	return updated, nil
}

// DeleteTask removes a task. The assignee, the creator and admins may delete.
func (s *TaskService) DeleteTask(ctx context.Context, actor *models.User, id string) error {
	task, _, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}
	if !canManageTask(actor, task) {
		return ErrForbidden
	}

	if err := s.gw.Tasks.Delete(ctx, id); err != nil {
		return fromRepository(err)
	}
	s.log.Info("task deleted", zap.String("task_id", id), zap.String("actor_id", actor.ID))
	return nil
}

// load fetches a task and its owner, hiding tasks actor cannot see.
func (s *TaskService) load(ctx context.Context, actor *models.User, id string) (*models.Task, *models.User, error) {
	task, err := s.gw.Tasks.FindByID(ctx, id)
	if err != nil {
		return nil, nil, fromRepository(err)
	}
	owner, err := findOwner(ctx, s.gw.Users, task.OwnerID())
	if err != nil {
		return nil, nil, err
	}
	if !visibility.CanSeeTask(visibility.ActorFor(actor), task, owner) {
		return nil, nil, ErrNotFound
	}
	return task, owner, nil
}

func canManageTask(actor *models.User, task *models.Task) bool {
	return actor.Role == models.RoleAdmin || task.AssignedTo == actor.ID || task.CreatedBy == actor.ID
}

// expectedVersion prefers the version the client observed over the one just
// read, so a stale client fails with a conflict.
func expectedVersion(requested *uint64, current uint64) uint64 {
	if requested != nil {
		return *requested
	}
	return current
}
