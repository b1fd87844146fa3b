package services

import (
	"errors"

	"fab-panel/internal/models"

	"gorm.io/gorm"
)

var (
	ErrResourceNotFound = errors.New("resource not found")
	ErrGroupNotFound    = errors.New("resource group not found")
)

// ResourceService is the read path over resources and resource groups.
// Creating and editing resources is handled elsewhere; the usage engine only
// needs lookups and the resource-to-group mapping.
type ResourceService struct{}

func NewResourceService() *ResourceService {
	return &ResourceService{}
}

// GetResource returns a resource by ID
func (s *ResourceService) GetResource(id uint) (*models.Resource, error) {
	var resource models.Resource
	if err := models.DB.First(&resource, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, err
	}

	return &resource, nil
}

// GetGroup returns a resource group by ID
func (s *ResourceService) GetGroup(id uint) (*models.ResourceGroup, error) {
	var group models.ResourceGroup
	if err := models.DB.First(&group, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}

	return &group, nil
}

// GroupsOf returns the IDs of all groups the resource belongs to.
func (s *ResourceService) GroupsOf(resourceID uint) ([]uint, error) {
	var groupIDs []uint
	err := models.DB.
		Table("resource_group_resources").
		Where("resource_id = ?", resourceID).
		Pluck("resource_group_id", &groupIDs).Error
	if err != nil {
		return nil, err
	}

	return groupIDs, nil
}

// ScopeExists verifies that the resource or group a scope points at exists.
func (s *ResourceService) ScopeExists(scope models.Scope) error {
	if scope.Kind == models.ScopeResourceGroup {
		_, err := s.GetGroup(scope.ID)
		return err
	}
	_, err := s.GetResource(scope.ID)
	return err
}
