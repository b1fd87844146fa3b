package models

import (
	"time"

	"gorm.io/gorm"
)

// ScopeKind selects whether an introduction or introducer role applies to a
// single resource or to a resource group.
type ScopeKind string

const (
	ScopeResource      ScopeKind = "resource"
	ScopeResourceGroup ScopeKind = "resource_group"
)

// Scope identifies the unit over which introductions and introducer roles
// are defined: one resource or one resource group.
type Scope struct {
	Kind ScopeKind
	ID   uint
}

func ResourceScope(id uint) Scope {
	return Scope{Kind: ScopeResource, ID: id}
}

func GroupScope(id uint) Scope {
	return Scope{Kind: ScopeResourceGroup, ID: id}
}

// Apply narrows a query to rows belonging to this scope. The scoped tables
// carry a nullable (resource_id, resource_group_id) pair where exactly one
// column is set.
func (s Scope) Apply(tx *gorm.DB) *gorm.DB {
	if s.Kind == ScopeResourceGroup {
		return tx.Where("resource_group_id = ? AND resource_id IS NULL", s.ID)
	}
	return tx.Where("resource_id = ? AND resource_group_id IS NULL", s.ID)
}

// Columns returns the nullable scope column values for inserts.
func (s Scope) Columns() (resourceID *uint, resourceGroupID *uint) {
	id := s.ID
	if s.Kind == ScopeResourceGroup {
		return nil, &id
	}
	return &id, nil
}

// Introducer marks a user as allowed to grant and revoke introductions
// within one scope. Plain membership row, deleted on revoke.
type Introducer struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	ResourceID      *uint     `json:"resource_id" gorm:"index:idx_introducer_scope_user,unique"`
	ResourceGroupID *uint     `json:"resource_group_id" gorm:"index:idx_introducer_scope_user,unique"`
	UserID          uint      `json:"user_id" gorm:"not null;index:idx_introducer_scope_user,unique"`
	CreatedAt       time.Time `json:"created_at"`
	User            User      `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// Introduction is the anchor record for one (scope, receiver) pair. Its
// current status is derived from the newest history item; the anchor itself
// is never deleted.
type Introduction struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	ResourceID      *uint     `json:"resource_id" gorm:"index:idx_introduction_scope_user,unique"`
	ResourceGroupID *uint     `json:"resource_group_id" gorm:"index:idx_introduction_scope_user,unique"`
	ReceiverUserID  uint      `json:"receiver_user_id" gorm:"not null;index:idx_introduction_scope_user,unique"`
	CreatedAt       time.Time `json:"created_at"`

	ReceiverUser User                      `json:"receiver_user,omitempty" gorm:"foreignKey:ReceiverUserID"`
	History      []IntroductionHistoryItem `json:"history,omitempty" gorm:"foreignKey:IntroductionID"`
}

type IntroductionAction string

const (
	IntroductionGrant  IntroductionAction = "grant"
	IntroductionRevoke IntroductionAction = "revoke"
)

// IntroductionHistoryItem is an immutable ledger entry. The newest item per
// introduction defines whether the introduction is currently valid.
type IntroductionHistoryItem struct {
	ID                uint               `json:"id" gorm:"primaryKey"`
	IntroductionID    uint               `json:"introduction_id" gorm:"not null;index"`
	Action            IntroductionAction `json:"action" gorm:"type:varchar(20);not null"`
	PerformedByUserID uint               `json:"performed_by_user_id" gorm:"not null"`
	Comment           string             `json:"comment" gorm:"type:text"`
	CreatedAt         time.Time          `json:"created_at" gorm:"index"`

	PerformedByUser User `json:"performed_by_user,omitempty" gorm:"foreignKey:PerformedByUserID"`
}
