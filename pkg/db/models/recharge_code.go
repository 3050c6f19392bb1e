package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lc3lx/backend-zouhal/pkg/enums"
)

// RechargeCode is a single-use voucher that credits a wallet when
// redeemed. IsUsed flips exactly once through a guarded update.
type RechargeCode struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Code        string         `gorm:"column:code;not null;uniqueIndex"`
	AmountCents int64          `gorm:"column:amount_cents;not null"`
	Currency    enums.Currency `gorm:"column:currency;type:text;not null;default:'USD'"`
	CreatedBy   uuid.UUID      `gorm:"column:created_by;type:uuid;not null"`
	UsedBy      *uuid.UUID     `gorm:"column:used_by;type:uuid"`
	IsUsed      bool           `gorm:"column:is_used;not null;default:false"`
	UsedAt      *time.Time     `gorm:"column:used_at"`
	ExpiresAt   time.Time      `gorm:"column:expires_at;not null"`
	Description *string        `gorm:"column:description"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// IsExpired reports whether the code can no longer be redeemed at now.
func (r RechargeCode) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
