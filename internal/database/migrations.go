package database

import (
	"fmt"

	"github.com/yukikurage/review-portal/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AddIndexes adds the composite indexes used by the review queues. Single
// column indexes come from the model tags.
func AddIndexes(db *gorm.DB, log *zap.Logger) error {
	indexes := []struct {
		model   interface{}
		name    string
		columns string
	}{
		{&models.Task{}, "idx_tasks_assigned_review", "assigned_to, review_status"},
		{&models.File{}, "idx_files_uploader_review", "uploaded_by, review_status"},
		{&models.User{}, "idx_users_role_approved", "role, is_approved"},
	}

	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(idx.model, idx.name) {
			log.Debug("index already exists, skipping", zap.String("index", idx.name))
			continue
		}

		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(idx.model); err != nil {
			return fmt.Errorf("failed to resolve table for index %s: %w", idx.name, err)
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, stmt.Schema.Table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Info("created index", zap.String("index", idx.name), zap.String("table", stmt.Schema.Table))
	}

	return nil
}
