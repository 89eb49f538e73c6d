package repository

import (
	"context"

	"github.com/yukikurage/review-portal/internal/models"
	"gorm.io/gorm"
)

// GormFileRepository is a GORM implementation of FileRepository
type GormFileRepository struct {
	db *gorm.DB
}

// NewFileRepository creates a new FileRepository
func NewFileRepository(db *gorm.DB) FileRepository {
	return &GormFileRepository{db: db}
}

// Create stores new file metadata
func (r *GormFileRepository) Create(ctx context.Context, file *models.File) error {
	return translate(r.db.WithContext(ctx).Create(file).Error)
}

// FindByID finds a file record by application id
func (r *GormFileRepository) FindByID(ctx context.Context, id string) (*models.File, error) {
	var file models.File
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&file).Error; err != nil {
		return nil, translate(err)
	}
	return &file, nil
}

// List returns every file record ordered by upload time
func (r *GormFileRepository) List(ctx context.Context) ([]models.File, error) {
	var files []models.File
	if err := r.db.WithContext(ctx).Order("uploaded_at ASC").Find(&files).Error; err != nil {
		return nil, translate(err)
	}
	return files, nil
}

// UpdateIf applies a versioned conditional update and returns the stored file
func (r *GormFileRepository) UpdateIf(ctx context.Context, id string, version uint64, cond Condition, fields Fields) (*models.File, error) {
	if err := conditionalUpdate(ctx, r.db, &models.File{}, id, version, cond, fields); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

// Delete deletes a file record
func (r *GormFileRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.File{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
