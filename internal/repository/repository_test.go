package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/review-portal/internal/models"
	"github.com/yukikurage/review-portal/internal/testutil"
)

func TestUserRepository_FindAndList(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice@example.com", models.RoleUser, true)
	testutil.CreateUser(t, db, "m@example.com", models.RoleManager, false)

	found, err := repo.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", found.Email)

	found, err = repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, found.ID)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	count, err := repo.CountByRole(ctx, models.RoleManager)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUserRepository_FindByProvider(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := testutil.CreateUser(t, db, "sso@example.com", models.RoleUser, true)
	_, err := repo.UpdateIf(ctx, user.ID, user.Version, nil, Fields{
		"provider":    "google",
		"provider_id": "g-123",
		"sso_linked":  true,
	})
	require.NoError(t, err)

	found, err := repo.FindByProvider(ctx, "google", "g-123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.True(t, found.SSOLinked)

	_, err = repo.FindByProvider(ctx, "github", "g-123")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaskRepository_UpdateIfIncrementsVersion(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner@example.com", models.RoleUser, true)
	task := testutil.CreateTask(t, db, "Write report", owner)

	updated, err := repo.UpdateIf(ctx, task.ID, task.Version,
		Condition{"status": models.TaskStatusIncomplete},
		Fields{"status": models.TaskStatusComplete, "review_status": models.ReviewStatusPendingReview},
	)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusComplete, updated.Status)
	assert.Equal(t, models.ReviewStatusPendingReview, updated.ReviewStatus)
	assert.Equal(t, task.Version+1, updated.Version)
}

func TestTaskRepository_UpdateIfStaleVersion(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner@example.com", models.RoleUser, true)
	task := testutil.CreateTask(t, db, "Write report", owner)

	_, err := repo.UpdateIf(ctx, task.ID, task.Version, nil, Fields{"title": "first"})
	require.NoError(t, err)

	_, err = repo.UpdateIf(ctx, task.ID, task.Version, nil, Fields{"title": "second"})
	assert.ErrorIs(t, err, ErrConflict)

	stored, err := repo.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", stored.Title)
}

func TestTaskRepository_UpdateIfConditionMismatch(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner@example.com", models.RoleUser, true)
	task := testutil.CreateTask(t, db, "Write report", owner)

	_, err := repo.UpdateIf(ctx, task.ID, task.Version,
		Condition{"review_status": models.ReviewStatusPendingReview},
		Fields{"review_status": models.ReviewStatusApproved},
	)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = repo.UpdateIf(ctx, "missing", 1, nil, Fields{"title": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileRepository_CreateListDelete(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewFileRepository(db)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner@example.com", models.RoleUser, true)
	file := testutil.CreatePendingFile(t, db, "notes.txt", owner)

	files, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, models.ReviewStatusPendingReview, files[0].ReviewStatus)

	require.NoError(t, repo.Delete(ctx, file.ID))
	assert.ErrorIs(t, repo.Delete(ctx, file.ID), ErrNotFound)
}

func TestUserRepository_DeleteIf(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	approved := testutil.CreateUser(t, db, "m1@example.com", models.RoleManager, true)
	pending := testutil.CreateUser(t, db, "m2@example.com", models.RoleManager, false)

	cond := Condition{"role": models.RoleManager, "is_approved": false}
	assert.ErrorIs(t, repo.DeleteIf(ctx, approved.ID, cond), ErrNotFound)
	require.NoError(t, repo.DeleteIf(ctx, pending.ID, cond))

	_, err := repo.FindByID(ctx, pending.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_StorageUnavailable(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnError(errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"))

	repo := NewUserRepository(db)
	_, err := repo.FindByEmail(context.Background(), "alice@example.com")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NotErrorIs(t, err, ErrNotFound)
}
