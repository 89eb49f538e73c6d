package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/review-portal/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when no record matches the application-level id.
	ErrNotFound = errors.New("repository: record not found")
	// ErrConflict is returned when a conditional update finds the record in a
	// different version or state than the caller expected.
	ErrConflict = errors.New("repository: record changed concurrently")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("repository: duplicate record")
	// ErrUnavailable wraps every other storage failure.
	ErrUnavailable = errors.New("repository: storage unavailable")
)

// Fields is a set of column assignments for a conditional update.
type Fields map[string]interface{}

// Condition is a set of column equalities that must hold for a conditional
// update to apply, in addition to the version check.
type Condition map[string]interface{}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by application id
	FindByID(ctx context.Context, id string) (*models.User, error)

	// FindByEmail finds a user by normalised email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// FindByProvider finds the user linked to an external identity
	FindByProvider(ctx context.Context, provider, providerID string) (*models.User, error)

	// List returns every user
	List(ctx context.Context) ([]models.User, error)

	// CountByRole counts users with the given role
	CountByRole(ctx context.Context, role models.Role) (int64, error)

	// UpdateIf applies fields when the stored version equals version and cond
	// holds, incrementing the version
	UpdateIf(ctx context.Context, id string, version uint64, cond Condition, fields Fields) (*models.User, error)

	// DeleteIf removes the user when cond holds
	DeleteIf(ctx context.Context, id string, cond Condition) error
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task by application id
	FindByID(ctx context.Context, id string) (*models.Task, error)

	// List returns every task
	List(ctx context.Context) ([]models.Task, error)

	// UpdateIf applies fields when the stored version equals version and cond
	// holds, incrementing the version
	UpdateIf(ctx context.Context, id string, version uint64, cond Condition, fields Fields) (*models.Task, error)

	// Delete removes a task
	Delete(ctx context.Context, id string) error
}

// FileRepository defines the interface for file metadata access
type FileRepository interface {
	// Create creates a new file record
	Create(ctx context.Context, file *models.File) error

	// FindByID finds a file by application id
	FindByID(ctx context.Context, id string) (*models.File, error)

	// List returns every file record
	List(ctx context.Context) ([]models.File, error)

	// UpdateIf applies fields when the stored version equals version and cond
	// holds, incrementing the version
	UpdateIf(ctx context.Context, id string, version uint64, cond Condition, fields Fields) (*models.File, error)

	// Delete removes a file record
	Delete(ctx context.Context, id string) error
}

// Gateway bundles the three collections behind one injected value.
type Gateway struct {
	Users UserRepository
	Tasks TaskRepository
	Files FileRepository
}

// NewGateway creates GORM-backed repositories sharing db.
func NewGateway(db *gorm.DB) *Gateway {
	return &Gateway{
		Users: NewUserRepository(db),
		Tasks: NewTaskRepository(db),
		Files: NewFileRepository(db),
	}
}

// translate maps GORM errors onto the repository error set.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict), errors.Is(err, ErrDuplicate), errors.Is(err, ErrUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

// conditionalUpdate runs the compare-and-increment update shared by all
// collections. It returns ErrNotFound when the record is gone and ErrConflict
// when it exists but did not match.
func conditionalUpdate(ctx context.Context, db *gorm.DB, model interface{}, id string, version uint64, cond Condition, fields Fields) error {
	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["version"] = gorm.Expr("version + 1")

	query := db.WithContext(ctx).Model(model).Where("id = ? AND version = ?", id, version)
	for col, v := range cond {
		query = query.Where(fmt.Sprintf("%s = ?", col), v)
	}

	res := query.Updates(updates)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return translate(err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrConflict
}
