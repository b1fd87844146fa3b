package services

import (
	"errors"

	"fab-panel/internal/models"

	"gorm.io/gorm"
)

// IntroducerService manages the set of users allowed to grant and revoke
// introductions within a scope. Unlike introductions this is a plain
// membership set with no history: rows are created on grant and deleted on
// revoke.
type IntroducerService struct{}

func NewIntroducerService() *IntroducerService {
	return &IntroducerService{}
}

func (s *IntroducerService) find(scope models.Scope, userID uint) (*models.Introducer, error) {
	var introducer models.Introducer
	err := scope.Apply(models.DB).
		Where("user_id = ?", userID).
		First(&introducer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &introducer, nil
}

// Grant makes the user an introducer for the scope. Returns the existing
// membership row when the user already is one.
func (s *IntroducerService) Grant(scope models.Scope, userID uint) (*models.Introducer, error) {
	existing, err := s.find(scope, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	resourceID, resourceGroupID := scope.Columns()
	introducer := &models.Introducer{
		ResourceID:      resourceID,
		ResourceGroupID: resourceGroupID,
		UserID:          userID,
	}
	if err := models.DB.Create(introducer).Error; err != nil {
		return nil, err
	}

	return introducer, nil
}

// Revoke removes the membership row. Revoking a user who is not an
// introducer is a no-op, not an error.
func (s *IntroducerService) Revoke(scope models.Scope, userID uint) error {
	existing, err := s.find(scope, userID)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}

	return models.DB.Delete(&models.Introducer{}, existing.ID).Error
}

// IsIntroducer reports whether the user may grant and revoke introductions
// in the scope.
func (s *IntroducerService) IsIntroducer(scope models.Scope, userID uint) (bool, error) {
	existing, err := s.find(scope, userID)
	if err != nil {
		return false, err
	}

	return existing != nil, nil
}

// GetIntroducers lists all introducers of a scope.
func (s *IntroducerService) GetIntroducers(scope models.Scope) ([]models.Introducer, error) {
	var introducers []models.Introducer
	err := scope.Apply(models.DB).
		Preload("User").
		Find(&introducers).Error
	if err != nil {
		return nil, err
	}

	for i := range introducers {
		introducers[i].User.PasswordHash = ""
	}

	return introducers, nil
}

// CanGiveIntroductions reports whether a user may grant or revoke
// introductions in the scope: scope introducers and resource managers can.
func (s *IntroducerService) CanGiveIntroductions(scope models.Scope, user *models.User) (bool, error) {
	if user.SystemPermissions.CanManageResources {
		return true, nil
	}

	return s.IsIntroducer(scope, user.ID)
}
