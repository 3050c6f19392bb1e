package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lc3lx/backend-zouhal/pkg/enums"
)

// Wallet is the per-user stored-value account. BalanceCents only moves
// through guarded updates so a concurrent debit can never overdraw it.
type Wallet struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID       uuid.UUID           `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	BalanceCents int64               `gorm:"column:balance_cents;not null;default:0"`
	Currency     enums.Currency      `gorm:"column:currency;type:text;not null;default:'USD'"`
	IsActive     bool                `gorm:"column:is_active;not null;default:true"`
	Transactions []WalletTransaction `gorm:"foreignKey:WalletID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
