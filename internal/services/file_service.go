package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/yukikurage/review-portal/internal/constants"
	"github.com/yukikurage/review-portal/internal/logger"
	"github.com/yukikurage/review-portal/internal/metrics"
	"github.com/yukikurage/review-portal/internal/models"
	"github.com/yukikurage/review-portal/internal/repository"
	"github.com/yukikurage/review-portal/internal/storage"
	"github.com/yukikurage/review-portal/internal/utils"
	"github.com/yukikurage/review-portal/internal/visibility"
	"github.com/yukikurage/review-portal/internal/workflow"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ContentStore holds uploaded bytes under opaque keys.
type ContentStore interface {
	Put(r io.Reader, limit int64) (string, int64, error)
	Open(key string) (afero.File, error)
	Delete(key string) error
}

// EncryptionLevel picks the algorithm label recorded for an upload.
type EncryptionLevel string

const (
	EncryptionStandard EncryptionLevel = "standard"
	EncryptionHigh     EncryptionLevel = "high"
)

func (l EncryptionLevel) algorithm() (string, bool) {
	switch l {
	case EncryptionStandard, "":
		return "AES-128-GCM", true
	case EncryptionHigh:
		return "AES-256-GCM", true
	}
	return "", false
}

const ivBytes = 16

// FileService handles uploads and their review.
type FileService struct {
	gw         *repository.Gateway
	content    ContentStore
	maxBytes   int64
	bcryptCost int
	log        *zap.Logger
	metrics    *metrics.Metrics
}

// NewFileService creates a new FileService
func NewFileService(gw *repository.Gateway, content ContentStore, maxBytes int64, bcryptCost int, log *zap.Logger, m *metrics.Metrics) *FileService {
	if maxBytes <= 0 {
		maxBytes = constants.DefaultMaxUploadBytes
	}
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &FileService{
		gw:         gw,
		content:    content,
		maxBytes:   maxBytes,
		bcryptCost: bcryptCost,
		log:        logger.OrNop(log),
		metrics:    m,
	}
}

// UploadInput describes a new file.
type UploadInput struct {
	Name            string
	Type            string
	Description     string
	Content         io.Reader
	EncryptionLevel EncryptionLevel
	Password        string
}

// ReuploadInput replaces a reverted file. Nil fields keep their value; a nil
// Content keeps the stored bytes.
type ReuploadInput struct {
	Name        *string
	Type        *string
	Description *string
	Content     io.Reader
	Version     *uint64
}

// ListFiles returns the files visible to actor.
func (s *FileService) ListFiles(ctx context.Context, actor *models.User, page, pageSize int) ([]models.File, int64, error) {
	view, err := resolveView(ctx, s.gw, actor, withFiles)
	if err != nil {
		return nil, 0, err
	}
	files, total := utils.Paginate(view.Files, utils.NewPaginationParams(page, pageSize))
	return files, total, nil
}

// ReviewQueue returns the pending files actor is expected to review.
func (s *FileService) ReviewQueue(ctx context.Context, actor *models.User) ([]models.File, error) {
	view, err := resolveView(ctx, s.gw, actor, withFiles)
	if err != nil {
		return nil, err
	}
	return view.FileReviewQueue, nil
}

// GetFile returns a file record if actor may see it.
func (s *FileService) GetFile(ctx context.Context, actor *models.User, id string) (*models.File, error) {
	file, _, err := s.load(ctx, actor, id)
	return file, err
}

// Upload stores content and creates a file that is immediately pending review.
func (s *FileService) Upload(ctx context.Context, actor *models.User, input UploadInput) (*models.File, error) {
	name, err := fileName(input.Name)
	if err != nil {
		return nil, err
	}
	typ, err := fileType(input.Type)
	if err != nil {
		return nil, err
	}
	if input.Content == nil {
		return nil, ErrEmptyFile
	}
	algorithm, ok := input.EncryptionLevel.algorithm()
	if !ok {
		return nil, ErrInvalidEncryption
	}

	enc := models.EncryptionDetails{
		Algorithm:     algorithm,
		KeyIdentifier: utils.GenerateKeyIdentifier(),
	}
	iv, err := utils.GenerateIV(ivBytes)
	if err != nil {
		return nil, err
	}
	enc.IV = iv
	if input.Password != "" {
		hash, err := hashSecret(input.Password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
		enc.PasswordProtected = true
		enc.PasswordHash = hash
	}

	key, size, err := s.putContent(input.Content)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	enc.EncryptedAt = &now
	file := &models.File{
		ID:                uuid.NewString(),
		Name:              name,
		Size:              size,
		Type:              typ,
		ContentRef:        key,
		Description:       strings.TrimSpace(input.Description),
		UploadedBy:        actor.ID,
		UploadedAt:        now,
		EncryptionDetails: enc,
		ReviewState:       workflow.Submitted(),
		Version:           1,
	}
	if err := s.gw.Files.Create(ctx, file); err != nil {
		s.discardContent(key)
		return nil, fromRepository(err)
	}

	s.metrics.Transition("file", "upload")
	s.log.Info("file uploaded",
		zap.String("file_id", file.ID),
		zap.String("uploaded_by", actor.ID),
		zap.Int64("size", size),
		zap.Bool("password_protected", enc.PasswordProtected),
	)
	return file, nil
}

// Reupload replaces a reverted file and puts it back into the review queue.
func (s *FileService) Reupload(ctx context.Context, actor *models.User, id string, input ReuploadInput) (*models.File, error) {
	file, _, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if file.UploadedBy != actor.ID {
		return nil, ErrForbidden
	}
	if err := workflow.ResubmitFile(file.ReviewStatus); err != nil {
		return nil, fromWorkflow(err)
	}

	submitted := workflow.Submitted()
	fields := repository.Fields{
		"uploaded_at":    time.Now(),
		"review_status":  submitted.ReviewStatus,
		"reviewed_by":    submitted.ReviewedBy,
		"review_comment": submitted.ReviewComment,
	}
	if input.Name != nil {
		name, err := fileName(*input.Name)
		if err != nil {
			return nil, err
		}
		fields["name"] = name
	}
	if input.Type != nil {
		t, err := fileType(*input.Type)
		if err != nil {
			return nil, err
		}
		fields["type"] = t
	}
	if input.Description != nil {
		fields["description"] = strings.TrimSpace(*input.Description)
	}

	var newKey string
	if input.Content != nil {
		key, size, err := s.putContent(input.Content)
		if err != nil {
			return nil, err
		}
		newKey = key
		fields["content_ref"] = key
		fields["size"] = size
	}

	updated, err := s.gw.Files.UpdateIf(ctx, id, expectedVersion(input.Version, file.Version),
		repository.Condition{"review_status": models.ReviewStatusReverted}, fields)
	if err != nil {
		if newKey != "" {
			s.discardContent(newKey)
		}
		return nil, fromRepository(err)
	}
	if newKey != "" {
		s.discardContent(file.ContentRef)
	}

	s.metrics.Transition("file", "resubmit")
	s.log.Info("file resubmitted", zap.String("file_id", id), zap.Bool("content_replaced", newKey != ""))
	return updated, nil
}

// ReviewFile applies a reviewer decision to a pending file.
func (s *FileService) ReviewFile(ctx context.Context, actor *models.User, id string, input ReviewInput) (*models.File, error) {
	file, owner, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if input.ReviewedBy != "" && input.ReviewedBy != actor.ID {
		return nil, ErrReviewerMismatch
	}
	if !workflow.CanReview(actor, owner) {
		return nil, ErrForbidden
	}

	out, err := workflow.Review(file.ReviewStatus, models.TaskStatusComplete, input.Decision, actor.ID, input.Comment)
	if err != nil {
		return nil, fromWorkflow(err)
	}

	updated, err := s.gw.Files.UpdateIf(ctx, id, expectedVersion(input.Version, file.Version),
		repository.Condition{"review_status": models.ReviewStatusPendingReview},
		repository.Fields{
			"review_status":  out.ReviewStatus,
			"reviewed_by":    out.ReviewedBy,
			"review_comment": out.ReviewComment,
		},
	)
	if err != nil {
		return nil, fromRepository(err)
	}

	s.metrics.Transition("file", string(out.ReviewStatus))
	s.log.Info("file reviewed",
		zap.String("file_id", id),
		zap.String("reviewer_id", actor.ID),
		zap.String("decision", string(input.Decision)),
	)
	return updated, nil
}

// Download opens the content of a visible file. Password-protected files
// require the upload password. The caller closes the returned content.
func (s *FileService) Download(ctx context.Context, actor *models.User, id, password string) (*models.File, afero.File, error) {
	file, _, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}

	if file.EncryptionDetails.PasswordProtected {
		if password == "" {
			return nil, nil, ErrFilePassword
		}
		if err := bcrypt.CompareHashAndPassword([]byte(file.EncryptionDetails.PasswordHash), []byte(password)); err != nil {
			s.log.Warn("file password mismatch", zap.String("file_id", id), zap.String("actor_id", actor.ID))
			return nil, nil, ErrFilePassword
		}
	}

	content, err := s.content.Open(file.ContentRef)
	if err != nil {
		if errors.Is(err, storage.ErrContentNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return file, content, nil
}

// DeleteFile removes a file record and its content. The uploader and admins
// may delete.
func (s *FileService) DeleteFile(ctx context.Context, actor *models.User, id string) error {
	file, _, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}
	if file.UploadedBy != actor.ID && actor.Role != models.RoleAdmin {
		return ErrForbidden
	}

	if err := s.gw.Files.Delete(ctx, id); err != nil {
		return fromRepository(err)
	}
	s.discardContent(file.ContentRef)

	s.log.Info("file deleted", zap.String("file_id", id), zap.String("actor_id", actor.ID))
	return nil
}

func (s *FileService) load(ctx context.Context, actor *models.User, id string) (*models.File, *models.User, error) {
	file, err := s.gw.Files.FindByID(ctx, id)
	if err != nil {
		return nil, nil, fromRepository(err)
	}
	owner, err := findOwner(ctx, s.gw.Users, file.OwnerID())
	if err != nil {
		return nil, nil, err
	}
	if !visibility.CanSeeFile(visibility.ActorFor(actor), file, owner) {
		return nil, nil, ErrNotFound
	}
	return file, owner, nil
}

func fileName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", ErrNameRequired
	}
	if utf8.RuneCountInString(name) > constants.MaxTitleLength {
		return "", ErrNameTooLong
	}
	return name, nil
}

func fileType(raw string) (string, error) {
	t := strings.TrimSpace(raw)
	if utf8.RuneCountInString(t) > constants.MaxTitleLength {
		return "", ErrFileTypeTooLong
	}
	return t, nil
}

func (s *FileService) putContent(r io.Reader) (string, int64, error) {
	key, size, err := s.content.Put(r, s.maxBytes)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return "", 0, ErrFileTooLarge
		}
		return "", 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if size == 0 {
		s.discardContent(key)
		return "", 0, ErrEmptyFile
	}
	return key, size, nil
}

// discardContent removes stored bytes that no record points to any more.
// Failures leave an orphan object behind and are only logged.
func (s *FileService) discardContent(key string) {
	if err := s.content.Delete(key); err != nil {
		s.log.Warn("failed to remove file content", zap.String("content_ref", key), zap.Error(err))
	}
}
