package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/review-portal/internal/dto"
	apierrors "github.com/yukikurage/review-portal/internal/errors"
	"github.com/yukikurage/review-portal/internal/models"
	"github.com/yukikurage/review-portal/internal/services"
	"github.com/yukikurage/review-portal/internal/testutil"
)

// TaskHandlerTestSuite defines the test suite for TaskHandler
type TaskHandlerTestSuite struct {
	suite.Suite
	env handlerTestEnv

	user, otherUser, manager, admin                         *models.User
	userCookies, otherCookies, managerCookies, adminCookies []*http.Cookie
}

// SetupTest runs before each test
func (suite *TaskHandlerTestSuite) SetupTest() {
	t := suite.T()
	suite.env = setupHandlerTestEnv(t, RouteOptions{})
	suite.user, suite.userCookies = suite.env.loginAs(t, "user@example.com", models.RoleUser)
	suite.otherUser, suite.otherCookies = suite.env.loginAs(t, "other@example.com", models.RoleUser)
	suite.manager, suite.managerCookies = suite.env.loginAs(t, "manager@example.com", models.RoleManager)
	suite.admin, suite.adminCookies = suite.env.loginAs(t, "admin@example.com", models.RoleAdmin)
}

func (suite *TaskHandlerTestSuite) decodeTask(body []byte) dto.TaskDTO {
	var task dto.TaskDTO
	suite.Require().NoError(json.Unmarshal(body, &task))
	return task
}

func (suite *TaskHandlerTestSuite) createTask(cookies []*http.Cookie, payload map[string]any) dto.TaskDTO {
	w := suite.env.do(suite.T(), http.MethodPost, "/tasks", payload, cookies)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	return suite.decodeTask(w.Body.Bytes())
}

// TestCreateTask tests task creation rules
func (suite *TaskHandlerTestSuite) TestCreateTask() {
	t := suite.T()
	deadline := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)

	task := suite.createTask(suite.userCookies, map[string]any{
		"title":       "Write report",
		"description": "Quarterly",
		"deadline":    deadline,
	})
	suite.Equal(suite.user.ID, task.AssignedTo)
	suite.Equal(suite.user.ID, task.CreatedBy)
	suite.Equal(models.TaskStatusIncomplete, task.Status)
	suite.Empty(task.ReviewStatus)
	suite.Require().NotNil(task.Deadline)
	suite.True(deadline.Equal(*task.Deadline))

	// A plain user cannot assign to someone else.
	w := suite.env.do(t, http.MethodPost, "/tasks", map[string]any{"title": "x", "assignedTo": suite.otherUser.ID}, suite.userCookies)
	suite.Equal(http.StatusForbidden, w.Code)

	// Managers assign to users but never to managers.
	assigned := suite.createTask(suite.managerCookies, map[string]any{"title": "Review logs", "assignedTo": suite.user.ID})
	suite.Equal(suite.user.ID, assigned.AssignedTo)
	suite.Equal(suite.manager.ID, assigned.CreatedBy)

	w = suite.env.do(t, http.MethodPost, "/tasks", map[string]any{"title": "x", "assignedTo": suite.manager.ID}, suite.adminCookies)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.env.do(t, http.MethodPost, "/tasks", map[string]any{"description": "no title"}, suite.userCookies)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal(apierrors.ErrCodeInvalidInput, decodeAPIError(t, w).Code)
}

// TestGetTask_Visibility tests that hidden tasks look absent
func (suite *TaskHandlerTestSuite) TestGetTask_Visibility() {
	t := suite.T()
	task := suite.createTask(suite.userCookies, map[string]any{"title": "Mine"})

	w := suite.env.do(t, http.MethodGet, "/tasks/"+task.ID, nil, suite.userCookies)
	suite.Equal(http.StatusOK, w.Code)

	w = suite.env.do(t, http.MethodGet, "/tasks/"+task.ID, nil, suite.otherCookies)
	suite.Equal(http.StatusNotFound, w.Code)

	for _, cookies := range [][]*http.Cookie{suite.managerCookies, suite.adminCookies} {
		w = suite.env.do(t, http.MethodGet, "/tasks/"+task.ID, nil, cookies)
		suite.Equal(http.StatusOK, w.Code)
	}

	w = suite.env.do(t, http.MethodGet, "/tasks/does-not-exist", nil, suite.adminCookies)
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.env.do(t, http.MethodGet, "/tasks/"+task.ID, nil, nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

// TestReviewFlow_ApproveAndRevert walks a task through the review state machine
func (suite *TaskHandlerTestSuite) TestReviewFlow_ApproveAndRevert() {
	t := suite.T()
	task := suite.createTask(suite.userCookies, map[string]any{"title": "Draft"})

	// Only the assignee completes.
	w := suite.env.do(t, http.MethodPost, "/tasks/"+task.ID+"/complete", nil, suite.managerCookies)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.env.do(t, http.MethodPost, "/tasks/"+task.ID+"/complete", nil, suite.userCookies)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	task = suite.decodeTask(w.Body.Bytes())
	suite.Equal(models.TaskStatusComplete, task.Status)
	suite.Equal(models.ReviewStatusPendingReview, task.ReviewStatus)

	w = suite.env.do(t, http.MethodPost, "/tasks/"+task.ID+"/complete", nil, suite.userCookies)
	suite.Equal(http.StatusConflict, w.Code)
	suite.Equal(apierrors.ErrCodeInvalidTransition, decodeAPIError(t, w).Code)

	// Revert without a comment changes nothing.
	w = suite.env.do(t, http.MethodPut, "/tasks/"+task.ID+"/review", map[string]any{
		"reviewStatus": "reverted",
		"reviewedBy":   suite.manager.ID,
	}, suite.managerCookies)
	suite.Require().Equal(http.StatusUnprocessableEntity, w.Code)
	suite.Equal(apierrors.ErrCodeRequiresComment, decodeAPIError(t, w).Code)

	w = suite.env.do(t, http.MethodPut, "/tasks/"+task.ID+"/review", map[string]any{
		"reviewStatus":  "reverted",
		"reviewedBy":    suite.manager.ID,
		"reviewComment": "Needs sources",
	}, suite.managerCookies)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	task = suite.decodeTask(w.Body.Bytes())
	suite.Equal(models.TaskStatusIncomplete, task.Status)
	suite.Equal(models.ReviewStatusReverted, task.ReviewStatus)
	suite.Equal("Needs sources", task.ReviewComment)
	suite.Equal(suite.manager.ID, task.ReviewedBy)

	// Owner edits and resubmits.
	w = suite.env.do(t, http.MethodPut, "/tasks/"+task.ID, map[string]any{"description": "With sources"}, suite.userCookies)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	w = suite.env.do(t, http.MethodPost, "/tasks/"+task.ID+"/complete", nil, suite.userCookies)
	suite.Require().Equal(http.StatusOK, w.Code)
	task = suite.decodeTask(w.Body.Bytes())
	suite.Equal(models.ReviewStatusPendingReview, task.ReviewStatus)
	suite.Empty(task.ReviewComment)

	w = suite.env.do(t, http.MethodPut, "/tasks/"+task.ID+"/review", map[string]any{
		"reviewStatus": "approved",
		"version":      task.Version,
	}, suite.managerCookies)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	task = suite.decodeTask(w.Body.Bytes())
	suite.Equal(models.TaskStatusComplete, task.Status)
	suite.Equal(models.ReviewStatusApproved, task.ReviewStatus)

	w = suite.env.do(t, http.MethodPut, "/tasks/"+task.ID+"/review", map[string]any{"reviewStatus": "approved"}, suite.adminCookies)
	suite.Equal(http.StatusConflict, w.Code)
	suite.Equal(apierrors.ErrCodeInvalidTransition, decodeAPIError(t, w).Code)
}

// TestReview_Rejections covers reviewer checks
func (suite *TaskHandlerTestSuite) TestReview_Rejections() {
	t := suite.T()
	task := suite.createTask(suite.userCookies, map[string]any{"title": "Draft"})
	w := suite.env.do(t, http.MethodPost, "/tasks/"+task.ID+"/complete", map[string]any{"version": task.Version}, suite.userCookies)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	submitted := suite.decodeTask(w.Body.Bytes())

	review := func(cookies []*http.Cookie, payload map[string]any) int {
		return suite.env.do(t, http.MethodPut, "/tasks/"+task.ID+"/review", payload, cookies).Code
	}

	// Nobody reviews their own work, and users never review.
	suite.Equal(http.StatusForbidden, review(suite.userCookies, map[string]any{"reviewStatus": "approved"}))
	// Hidden from other users entirely.
	suite.Equal(http.StatusNotFound, review(suite.otherCookies, map[string]any{"reviewStatus": "approved"}))
	// reviewedBy must name the caller.
	suite.Equal(http.StatusForbidden, review(suite.managerCookies, map[string]any{"reviewStatus": "approved", "reviewedBy": suite.admin.ID}))
	// A missing task is reported before the reviewer mismatch.
	w = suite.env.do(t, http.MethodPut, "/tasks/does-not-exist/review", map[string]any{"reviewStatus": "approved", "reviewedBy": suite.admin.ID}, suite.managerCookies)
	suite.Equal(http.StatusNotFound, w.Code)
	// Approvals carry no comment.
	suite.Equal(http.StatusBadRequest, review(suite.managerCookies, map[string]any{"reviewStatus": "approved", "reviewComment": "nice"}))
	// Unknown decision.
	suite.Equal(http.StatusBadRequest, review(suite.managerCookies, map[string]any{"reviewStatus": "pending_review"}))
	// Stale version.
	suite.Equal(http.StatusConflict, review(suite.managerCookies, map[string]any{"reviewStatus": "approved", "version": task.Version}))

	w = suite.env.do(t, http.MethodGet, "/tasks/"+task.ID, nil, suite.userCookies)
	suite.Require().Equal(http.StatusOK, w.Code)
	current := suite.decodeTask(w.Body.Bytes())
	suite.Equal(models.ReviewStatusPendingReview, current.ReviewStatus)
	suite.Equal(submitted.Version, current.Version)
}

// TestCompleteTask_StreamedBody checks that a body without a Content-Length
// is still read.
func (suite *TaskHandlerTestSuite) TestCompleteTask_StreamedBody() {
	task := suite.createTask(suite.userCookies, map[string]any{"title": "Streamed"})

	complete := func(body string) int {
		req := httptest.NewRequest(http.MethodPost, "/tasks/"+task.ID+"/complete", io.MultiReader(strings.NewReader(body)))
		req.Header.Set("Content-Type", "application/json")
		suite.Require().EqualValues(-1, req.ContentLength)
		for _, c := range suite.userCookies {
			req.AddCookie(c)
		}
		w := httptest.NewRecorder()
		suite.env.router.ServeHTTP(w, req)
		return w.Code
	}

	suite.Equal(http.StatusConflict, complete(fmt.Sprintf(`{"version": %d}`, task.Version+5)))
	suite.Equal(http.StatusBadRequest, complete(`{"version": "one"}`))
	suite.Equal(http.StatusOK, complete(""))
}

// TestUpdateTask tests editing rules
func (suite *TaskHandlerTestSuite) TestUpdateTask() {
	t := suite.T()
	task := suite.createTask(suite.userCookies, map[string]any{"title": "Old", "deadline": time.Now().Add(time.Hour)})

	w := suite.env.do(t, http.MethodPut, "/tasks/"+task.ID, map[string]any{
		"title":         "New",
		"clearDeadline": true,
		"version":       task.Version,
	}, suite.userCookies)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	updated := suite.decodeTask(w.Body.Bytes())
	suite.Equal("New", updated.Title)
	suite.Nil(updated.Deadline)
	suite.Equal(task.Version+1, updated.Version)

	w = suite.env.do(t, http.MethodPut, "/tasks/"+task.ID, map[string]any{"title": "Stale", "version": task.Version}, suite.userCookies)
	suite.Equal(http.StatusConflict, w.Code)
	suite.Equal(apierrors.ErrCodeConflict, decodeAPIError(t, w).Code)

	w = suite.env.do(t, http.MethodPut, "/tasks/"+task.ID, map[string]any{"title": "Manager edit"}, suite.managerCookies)
	suite.Equal(http.StatusForbidden, w.Code)
}

// TestDeleteTask tests task deletion
func (suite *TaskHandlerTestSuite) TestDeleteTask() {
	t := suite.T()
	task := suite.createTask(suite.userCookies, map[string]any{"title": "Temp"})

	w := suite.env.do(t, http.MethodDelete, "/tasks/"+task.ID, nil, suite.managerCookies)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.env.do(t, http.MethodDelete, "/tasks/"+task.ID, nil, suite.userCookies)
	suite.Equal(http.StatusOK, w.Code)

	w = suite.env.do(t, http.MethodGet, "/tasks/"+task.ID, nil, suite.userCookies)
	suite.Equal(http.StatusNotFound, w.Code)
}

// TestListTasks tests filtering and pagination
func (suite *TaskHandlerTestSuite) TestListTasks() {
	t := suite.T()
	for i := 0; i < 3; i++ {
		testutil.CreateTask(t, suite.env.db, "user task", suite.user)
	}
	testutil.CreateTask(t, suite.env.db, "other task", suite.otherUser)
	done := suite.createTask(suite.userCookies, map[string]any{"title": "Done"})
	w := suite.env.do(t, http.MethodPost, "/tasks/"+done.ID+"/complete", nil, suite.userCookies)
	suite.Require().Equal(http.StatusOK, w.Code)

	list := func(path string, cookies []*http.Cookie) dto.TaskListResponse {
		w := suite.env.do(t, http.MethodGet, path, nil, cookies)
		suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
		var resp dto.TaskListResponse
		suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		return resp
	}

	resp := list("/tasks", suite.userCookies)
	suite.Equal(int64(4), resp.TotalCount)
	for _, task := range resp.Tasks {
		suite.Equal(suite.user.ID, task.AssignedTo)
	}

	resp = list("/tasks?page=2&limit=3", suite.userCookies)
	suite.Len(resp.Tasks, 1)
	suite.Equal(2, resp.TotalPages)

	resp = list("/tasks?status=complete", suite.userCookies)
	suite.Require().Len(resp.Tasks, 1)
	suite.Equal(done.ID, resp.Tasks[0].ID)

	resp = list("/tasks", suite.managerCookies)
	suite.Equal(int64(5), resp.TotalCount)

	w = suite.env.do(t, http.MethodGet, "/tasks?status=finished", nil, suite.userCookies)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.env.do(t, http.MethodGet, "/tasks/review-queue", nil, suite.managerCookies)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), done.ID)

	w = suite.env.do(t, http.MethodGet, "/tasks/review-queue", nil, suite.userCookies)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.NotContains(w.Body.String(), done.ID)

	w = suite.env.do(t, http.MethodGet, "/tasks/stats", nil, suite.managerCookies)
	suite.Require().Equal(http.StatusOK, w.Code)
	var stats services.TaskStats
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &stats))
	suite.Equal(5, stats.Total)
	suite.Equal(1, stats.Complete)
	suite.Equal(1, stats.PendingReview)
	suite.Equal(1, stats.AwaitingMyReview)
}

// TestTaskHandlerTestSuite runs the test suite
func TestTaskHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TaskHandlerTestSuite))
}
