package services

import (
	"errors"

	"fab-panel/internal/models"

	"gorm.io/gorm"
)

// UserService is the read path over user accounts. Account management lives
// in the identity subsystem; the access engine only resolves user IDs named
// in grant and introducer requests.
type UserService struct{}

func NewUserService() *UserService {
	return &UserService{}
}

// GetUsers returns all users
func (s *UserService) GetUsers() ([]models.User, error) {
	var users []models.User
	if err := models.DB.Find(&users).Error; err != nil {
		return nil, err
	}

	// Clear password hashes
	for i := range users {
		users[i].PasswordHash = ""
	}

	return users, nil
}

// GetUser returns a specific user by ID
func (s *UserService) GetUser(id uint) (*models.User, error) {
	var user models.User
	if err := models.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	user.PasswordHash = ""
	return &user, nil
}
