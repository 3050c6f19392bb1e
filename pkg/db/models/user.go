package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lc3lx/backend-zouhal/pkg/enums"
)

// User represents the canonical identity entity. Authentication lives in
// a separate identity service; this table only carries what settlement
// needs to attribute orders and wallets.
type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Email     string     `gorm:"type:text;not null;uniqueIndex"`
	Name      string     `gorm:"column:name;not null"`
	Phone     *string    `gorm:"column:phone"`
	Role      enums.Role `gorm:"column:role;type:text;not null;default:'user'"`
	IsActive  bool       `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
