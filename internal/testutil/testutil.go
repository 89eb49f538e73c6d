package testutil

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/review-portal/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a migrated in-memory SQLite database that lives for the
// duration of the test.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every pooled connection to :memory: would be a separate database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Task{}, &models.File{}))
	return db
}

// NewMockDB opens a Postgres-dialect GORM handle backed by go-sqlmock. Tests
// script the queries they expect and the driver errors to return.
func NewMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db, mock
}

// UserRows returns a single users row for a scripted query.
func UserRows(user *models.User) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "role", "name", "is_approved", "version"}).
		AddRow(user.ID, user.Email, string(user.Role), user.Name, user.IsApproved, user.Version)
}

// CreateUser inserts a user with password "password123".
func CreateUser(t *testing.T, db *gorm.DB, email string, role models.Role, approved bool) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Name:         email,
		IsApproved:   approved,
		Version:      1,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTask inserts an incomplete task assigned to assignee.
func CreateTask(t *testing.T, db *gorm.DB, title string, assignee *models.User) *models.Task {
	t.Helper()

	task := &models.Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: "Test Description",
		AssignedTo:  assignee.ID,
		CreatedBy:   assignee.ID,
		Status:      models.TaskStatusIncomplete,
		Version:     1,
	}
	require.NoError(t, db.Create(task).Error)
	return task
}

// CreatePendingFile inserts a file record awaiting review.
func CreatePendingFile(t *testing.T, db *gorm.DB, name string, uploader *models.User) *models.File {
	t.Helper()

	file := &models.File{
		ID:          uuid.NewString(),
		Name:        name,
		Size:        4,
		Type:        "text/plain",
		ContentRef:  uuid.NewString(),
		UploadedBy:  uploader.ID,
		UploadedAt:  time.Now(),
		ReviewState: models.ReviewState{ReviewStatus: models.ReviewStatusPendingReview},
		Version:     1,
	}
	require.NoError(t, db.Create(file).Error)
	return file
}
