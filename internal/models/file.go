package models

import (
	"time"
)

// EncryptionDetails describes how a file is labelled as protected. The
// algorithm and key material are descriptive only; content is stored as
// uploaded. PasswordHash gates downloads and never leaves the server.
type EncryptionDetails struct {
	Algorithm         string     `gorm:"type:varchar(30)" json:"algorithm"`
	KeyIdentifier     string     `gorm:"type:varchar(64)" json:"keyIdentifier"`
	IV                string     `gorm:"column:iv;type:varchar(64)" json:"iv,omitempty"`
	EncryptedAt       *time.Time `json:"encryptedAt,omitempty"`
	PasswordProtected bool       `gorm:"not null;default:false" json:"passwordProtected"`
	PasswordHash      string     `gorm:"type:varchar(255)" json:"-"`
}

type File struct {
	PK                uint64            `gorm:"column:pk;primaryKey;autoIncrement" json:"-"`
	ID                string            `gorm:"column:id;type:varchar(36);uniqueIndex;not null" json:"id"`
	Name              string            `gorm:"type:varchar(255);not null" json:"name"`
	Size              int64             `gorm:"not null" json:"size"`
	Type              string            `gorm:"type:varchar(255)" json:"type"`
	ContentRef        string            `gorm:"type:varchar(64);not null" json:"-"`
	Description       string            `gorm:"type:text" json:"description,omitempty"`
	UploadedBy        string            `gorm:"type:varchar(36);not null;index" json:"uploadedBy"`
	UploadedAt        time.Time         `gorm:"not null" json:"uploadedAt"`
	EncryptionDetails EncryptionDetails `gorm:"embedded;embeddedPrefix:enc_" json:"encryptionDetails"`
	ReviewState
	Version   uint64    `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OwnerID returns the uploader.
func (f *File) OwnerID() string {
	return f.UploadedBy
}
