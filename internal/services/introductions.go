package services

import (
	"errors"

	"fab-panel/internal/models"

	"gorm.io/gorm"
)

// IntroductionService is the grant ledger: an append-only history of grant
// and revoke actions per (scope, receiver) pair. The current status of an
// introduction is the action of its newest history item.
type IntroductionService struct{}

func NewIntroductionService() *IntroductionService {
	return &IntroductionService{}
}

// findIntroduction returns the anchor for the pair, or nil if none exists yet.
func (s *IntroductionService) findIntroduction(scope models.Scope, receiverUserID uint) (*models.Introduction, error) {
	var introduction models.Introduction
	err := scope.Apply(models.DB).
		Where("receiver_user_id = ?", receiverUserID).
		First(&introduction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &introduction, nil
}

// findOrCreateIntroduction lazily creates the anchor on first grant/revoke.
func (s *IntroductionService) findOrCreateIntroduction(scope models.Scope, receiverUserID uint) (*models.Introduction, error) {
	introduction, err := s.findIntroduction(scope, receiverUserID)
	if err != nil {
		return nil, err
	}
	if introduction != nil {
		return introduction, nil
	}

	resourceID, resourceGroupID := scope.Columns()
	introduction = &models.Introduction{
		ResourceID:      resourceID,
		ResourceGroupID: resourceGroupID,
		ReceiverUserID:  receiverUserID,
	}
	if err := models.DB.Create(introduction).Error; err != nil {
		return nil, err
	}

	return introduction, nil
}

func (s *IntroductionService) latestHistoryItem(introductionID uint) (*models.IntroductionHistoryItem, error) {
	var item models.IntroductionHistoryItem
	err := models.DB.
		Where("introduction_id = ?", introductionID).
		Order("created_at DESC, id DESC").
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &item, nil
}

func (s *IntroductionService) appendHistory(
	scope models.Scope,
	receiverUserID uint,
	action models.IntroductionAction,
	performedByUserID uint,
	comment string,
) (*models.IntroductionHistoryItem, error) {
	introduction, err := s.findOrCreateIntroduction(scope, receiverUserID)
	if err != nil {
		return nil, err
	}

	item := &models.IntroductionHistoryItem{
		IntroductionID:    introduction.ID,
		Action:            action,
		PerformedByUserID: performedByUserID,
		Comment:           comment,
	}
	if err := models.DB.Create(item).Error; err != nil {
		return nil, err
	}

	return item, nil
}

// Grant appends a grant entry to the ledger. Repeated grants append further
// entries; granting is never an error.
func (s *IntroductionService) Grant(scope models.Scope, receiverUserID, performedByUserID uint, comment string) (*models.IntroductionHistoryItem, error) {
	return s.appendHistory(scope, receiverUserID, models.IntroductionGrant, performedByUserID, comment)
}

// Revoke appends a revoke entry to the ledger.
func (s *IntroductionService) Revoke(scope models.Scope, receiverUserID, performedByUserID uint, comment string) (*models.IntroductionHistoryItem, error) {
	return s.appendHistory(scope, receiverUserID, models.IntroductionRevoke, performedByUserID, comment)
}

// HasValidIntroduction reports whether the user currently holds a valid
// introduction for the scope: an anchor exists and its newest history item
// is a grant.
func (s *IntroductionService) HasValidIntroduction(scope models.Scope, userID uint) (bool, error) {
	introduction, err := s.findIntroduction(scope, userID)
	if err != nil {
		return false, err
	}
	if introduction == nil {
		return false, nil
	}

	latest, err := s.latestHistoryItem(introduction.ID)
	if err != nil {
		return false, err
	}
	if latest == nil {
		return false, nil
	}

	return latest.Action == models.IntroductionGrant, nil
}

// HistoryOf returns the full ledger for a pair, newest first, for audit
// display. An empty slice means no grant or revoke was ever recorded.
func (s *IntroductionService) HistoryOf(scope models.Scope, userID uint) ([]models.IntroductionHistoryItem, error) {
	introduction, err := s.findIntroduction(scope, userID)
	if err != nil {
		return nil, err
	}
	if introduction == nil {
		return []models.IntroductionHistoryItem{}, nil
	}

	var items []models.IntroductionHistoryItem
	err = models.DB.
		Where("introduction_id = ?", introduction.ID).
		Preload("PerformedByUser").
		Order("created_at DESC, id DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	return items, nil
}

// GetIntroductions lists all introduction anchors in a scope with their
// receivers and histories preloaded.
func (s *IntroductionService) GetIntroductions(scope models.Scope) ([]models.Introduction, error) {
	var introductions []models.Introduction
	err := scope.Apply(models.DB).
		Preload("ReceiverUser").
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC, id DESC")
		}).
		Find(&introductions).Error
	if err != nil {
		return nil, err
	}

	for i := range introductions {
		introductions[i].ReceiverUser.PasswordHash = ""
	}

	return introductions, nil
}
