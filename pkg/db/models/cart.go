package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart holds the buyer's pending items until an order is created from it.
// TotalAfterDiscountCents is set only when a coupon was applied.
type Cart struct {
	ID                      uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID                  uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	TotalCents              int64      `gorm:"column:total_cents;not null;default:0"`
	TotalAfterDiscountCents *int64     `gorm:"column:total_after_discount_cents"`
	Items                   []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt               time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectiveTotalCents returns the discounted total when a coupon was
// applied, otherwise the raw total.
func (c Cart) EffectiveTotalCents() int64 {
	if c.TotalAfterDiscountCents != nil {
		return *c.TotalAfterDiscountCents
	}
	return c.TotalCents
}
