package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lc3lx/backend-zouhal/pkg/enums"
	"github.com/lc3lx/backend-zouhal/pkg/types"
)

// Order is the settled purchase produced from a cart. Money is stored as
// integer cents. TransferDetail is populated only for transfer orders
// and carries what admins review before approving them.
type Order struct {
	ID                   uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	UserID               uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	ShippingAddress      types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	PaymentMethod        enums.PaymentMethod   `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus        enums.PaymentStatus   `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	TransferDetail       *types.TransferDetail `gorm:"column:transfer_detail;type:jsonb;serializer:json"`
	AdminNotes           *string               `gorm:"column:admin_notes"`
	ItemsPriceCents      int64                 `gorm:"column:items_price_cents;not null"`
	TaxPriceCents        int64                 `gorm:"column:tax_price_cents;not null;default:0"`
	ShippingPriceCents   int64                 `gorm:"column:shipping_price_cents;not null;default:0"`
	DeliveryFeeCents     int64                 `gorm:"column:delivery_fee_cents;not null;default:0"`
	TotalOrderPriceCents int64                 `gorm:"column:total_order_price_cents;not null"`
	IsPaid               bool                  `gorm:"column:is_paid;not null;default:false"`
	PaidAt               *time.Time            `gorm:"column:paid_at"`
	IsDelivered          bool                  `gorm:"column:is_delivered;not null;default:false"`
	DeliveredAt          *time.Time            `gorm:"column:delivered_at"`
	Items                []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
