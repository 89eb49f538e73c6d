package dto

import (
	"time"

	"github.com/yukikurage/review-portal/internal/models"
)

// EncryptionDetailsDTO is the public part of a file's encryption label.
type EncryptionDetailsDTO struct {
	Algorithm         string     `json:"algorithm"`
	KeyIdentifier     string     `json:"keyIdentifier"`
	IV                string     `json:"iv,omitempty"`
	EncryptedAt       *time.Time `json:"encryptedAt,omitempty"`
	PasswordProtected bool       `json:"passwordProtected"`
}

// FileDTO represents a file in API responses. The content key and any
// password hash stay on the server.
type FileDTO struct {
	ID                string               `json:"id"`
	Name              string               `json:"name"`
	Size              int64                `json:"size"`
	Type              string               `json:"type"`
	Description       string               `json:"description,omitempty"`
	UploadedBy        string               `json:"uploadedBy"`
	UploadedAt        time.Time            `json:"uploadedAt"`
	EncryptionDetails EncryptionDetailsDTO `json:"encryptionDetails"`
	ReviewStatus      models.ReviewStatus  `json:"reviewStatus,omitempty"`
	ReviewedBy        string               `json:"reviewedBy,omitempty"`
	ReviewComment     string               `json:"reviewComment,omitempty"`
	UpdatedAt         time.Time            `json:"updatedAt"`
	Version           uint64               `json:"version"`
}

// FileListResponse represents a paginated list of files
type FileListResponse struct {
	Files      []FileDTO `json:"files"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	TotalCount int64     `json:"totalCount"`
	TotalPages int       `json:"totalPages"`
}

// ToFileDTO converts a File model to FileDTO
func ToFileDTO(file models.File) FileDTO {
	enc := file.EncryptionDetails
	return FileDTO{
		ID:          file.ID,
		Name:        file.Name,
		Size:        file.Size,
		Type:        file.Type,
		Description: file.Description,
		UploadedBy:  file.UploadedBy,
		UploadedAt:  file.UploadedAt,
		EncryptionDetails: EncryptionDetailsDTO{
			Algorithm:         enc.Algorithm,
			KeyIdentifier:     enc.KeyIdentifier,
			IV:                enc.IV,
			EncryptedAt:       enc.EncryptedAt,
			PasswordProtected: enc.PasswordProtected,
		},
		ReviewStatus:  file.ReviewStatus,
		ReviewedBy:    file.ReviewedBy,
		ReviewComment: file.ReviewComment,
		UpdatedAt:     file.UpdatedAt,
		Version:       file.Version,
	}
}

// ToFileDTOs converts a slice of files
func ToFileDTOs(files []models.File) []FileDTO {
	out := make([]FileDTO, len(files))
	for i, f := range files {
		out[i] = ToFileDTO(f)
	}
	return out
}

// ToFileListResponse converts a page of files to FileListResponse
func ToFileListResponse(files []models.File, page, pageSize int, totalCount int64) FileListResponse {
	return FileListResponse{
		Files:      ToFileDTOs(files),
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages(totalCount, pageSize),
	}
}
