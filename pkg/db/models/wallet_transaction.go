package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lc3lx/backend-zouhal/pkg/enums"
)

// WalletTransaction is the append-only ledger entry behind every wallet
// balance movement. AmountCents is always positive; Type determines the
// direction.
type WalletTransaction struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	WalletID       uuid.UUID             `gorm:"column:wallet_id;type:uuid;not null;index"`
	Type           enums.TransactionType `gorm:"column:type;type:text;not null"`
	AmountCents    int64                 `gorm:"column:amount_cents;not null"`
	Description    string                `gorm:"column:description;not null"`
	OrderID        *uuid.UUID            `gorm:"column:order_id;type:uuid"`
	RechargeCodeID *uuid.UUID            `gorm:"column:recharge_code_id;type:uuid"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
}
