package models

import (
	"time"
)

// Resource is a physical machine or tool that users can take control of
// after being introduced to it.
type Resource struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	Name          string    `json:"name" gorm:"type:varchar(255);not null"`
	Description   string    `json:"description" gorm:"type:text"`
	AllowTakeOver bool      `json:"allow_take_over" gorm:"default:false"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Groups []ResourceGroup `json:"groups,omitempty" gorm:"many2many:resource_group_resources;"`
}

// ResourceGroup bundles resources so introductions and introducer roles can
// be granted for a whole set of machines at once.
type ResourceGroup struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Resources []Resource `json:"resources,omitempty" gorm:"many2many:resource_group_resources;"`
}
