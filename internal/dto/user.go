package dto

import (
	"time"

	"github.com/yukikurage/review-portal/internal/models"
)

// UserDTO represents a user in API responses. It never carries credentials.
type UserDTO struct {
	ID         string      `json:"id"`
	Email      string      `json:"email"`
	Name       string      `json:"name"`
	Role       models.Role `json:"role"`
	IsApproved bool        `json:"isApproved"`
	SSOLinked  bool        `json:"ssoLinked"`
	Provider   string      `json:"provider,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
	Version    uint64      `json:"version"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	dto := UserDTO{
		ID:         user.ID,
		Email:      user.Email,
		Name:       user.Name,
		Role:       user.Role,
		IsApproved: user.IsApproved,
		SSOLinked:  user.SSOLinked,
		CreatedAt:  user.CreatedAt,
		UpdatedAt:  user.UpdatedAt,
		Version:    user.Version,
	}
	if user.Provider != nil {
		dto.Provider = *user.Provider
	}
	return dto
}

// ToUserDTOs converts a slice of users
func ToUserDTOs(users []models.User) []UserDTO {
	out := make([]UserDTO, len(users))
	for i, u := range users {
		out[i] = ToUserDTO(u)
	}
	return out
}
