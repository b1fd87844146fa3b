package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// SystemPermissions is the set of system-wide permission flags attached to a
// user. Stored as a JSON column so new flags can be added without migrations.
type SystemPermissions struct {
	CanManageResources           bool `json:"canManageResources"`
	CanManageSystemConfiguration bool `json:"canManageSystemConfiguration"`
	CanManageUsers               bool `json:"canManageUsers"`
}

// Value implements the driver.Valuer interface
func (p SystemPermissions) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements the sql.Scanner interface
func (p *SystemPermissions) Scan(value interface{}) error {
	if value == nil {
		*p = SystemPermissions{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported type for SystemPermissions: %T", value)
	}

	return json.Unmarshal(bytes, p)
}

type User struct {
	ID                uint              `json:"id" gorm:"primaryKey"`
	Username          string            `json:"username" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash      string            `json:"-" gorm:"type:varchar(255);not null"`
	SystemPermissions SystemPermissions `json:"system_permissions" gorm:"type:json"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// AuthSession is a login session bound to an issued JWT token.
type AuthSession struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	Token     string    `json:"token" gorm:"type:varchar(500);uniqueIndex;not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
	User      User      `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

type AuditLog struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	UserID     uint           `json:"user_id" gorm:"index"`
	Action     string         `json:"action" gorm:"type:varchar(100);not null"` // login, logout, usage.started, ...
	Resource   string         `json:"resource" gorm:"type:varchar(100)"`        // resource, resource_group
	ResourceID string         `json:"resource_id" gorm:"type:varchar(255)"`
	Details    datatypes.JSON `json:"details" gorm:"type:json"`
	IPAddress  string         `json:"ip_address" gorm:"type:varchar(45)"`
	UserAgent  string         `json:"user_agent" gorm:"type:varchar(500)"`
	CreatedAt  time.Time      `json:"created_at" gorm:"index"`
	User       User           `json:"user,omitempty" gorm:"foreignKey:UserID"`
}
