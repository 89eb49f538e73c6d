package repository

import (
	"context"

	"github.com/yukikurage/review-portal/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

// FindByID finds a user by application id
func (r *GormUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// FindByProvider finds the user linked to provider/providerID
func (r *GormUserRepository) FindByProvider(ctx context.Context, provider, providerID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_id = ?", provider, providerID).
		First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// List returns every user ordered by creation
func (r *GormUserRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, translate(err)
	}
	return users, nil
}

// CountByRole counts users with role
func (r *GormUserRepository) CountByRole(ctx context.Context, role models.Role) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", role).Count(&count).Error; err != nil {
		return 0, translate(err)
	}
	return count, nil
}

// UpdateIf applies a versioned conditional update and returns the stored user
func (r *GormUserRepository) UpdateIf(ctx context.Context, id string, version uint64, cond Condition, fields Fields) (*models.User, error) {
	if err := conditionalUpdate(ctx, r.db, &models.User{}, id, version, cond, fields); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

// DeleteIf deletes the user when cond holds
func (r *GormUserRepository) DeleteIf(ctx context.Context, id string, cond Condition) error {
	query := r.db.WithContext(ctx).Where("id = ?", id)
	for col, v := range cond {
		query = query.Where(col+" = ?", v)
	}
	res := query.Delete(&models.User{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
