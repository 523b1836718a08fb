package user

import (
	"github.com/google/uuid"

	"github.com/prostorehq/prostore-backend/pkg/db/models"
)

// UserDTO is the account read model; it never carries credentials.
type UserDTO struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

// LoginResponse bundles the minted access token with the account.
type LoginResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

func toDTO(user *models.User) *UserDTO {
	if user == nil {
		return nil
	}
	return &UserDTO{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}
}
